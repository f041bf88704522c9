package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults_EmptySettings(t *testing.T) {
	s := &Settings{}

	assert.Equal(t, DefaultBridgeAddr, s.GetBridgeAddr())
	assert.Equal(t, DefaultDBPath, s.GetDBPath())
	assert.Equal(t, DefaultMaxLogFiles, s.GetMaxLogFiles())
	assert.False(t, s.GetDebug())

	timings := s.Timings()
	assert.Equal(t, DefaultDebounce, timings.Debounce)
	assert.Equal(t, DefaultHeartbeat, timings.Heartbeat)
	assert.Equal(t, DefaultRestoreDelay, timings.RestoreDelay)
	assert.Equal(t, DefaultStartupPause, timings.StartupPause)
	assert.Equal(t, DefaultFinalSaveLag, timings.FinalSaveLag)
}

func TestGetters_ConfiguredValuesWin(t *testing.T) {
	debug := true
	maxLogFiles := 5
	s := &Settings{
		BridgeAddr:  "127.0.0.1:9000",
		DBPath:      "/tmp/tabspaces.db",
		Debug:       &debug,
		MaxLogFiles: &maxLogFiles,
		DebounceMS:  50,
	}

	assert.Equal(t, "127.0.0.1:9000", s.GetBridgeAddr())
	assert.Equal(t, "/tmp/tabspaces.db", s.GetDBPath())
	assert.Equal(t, 5, s.GetMaxLogFiles())
	assert.True(t, s.GetDebug())

	timings := s.Timings()
	assert.Equal(t, 50*time.Millisecond, timings.Debounce)
	assert.Equal(t, DefaultHeartbeat, timings.Heartbeat, "unset overrides keep defaults")
}
