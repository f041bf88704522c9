package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingSave(count *atomic.Int32) SaveFunc {
	return func(ctx context.Context) error {
		count.Add(1)
		return nil
	}
}

func TestSchedule_CoalescesBurstsIntoOneSave(t *testing.T) {
	var saves atomic.Int32
	s := New(NewState(), countingSave(&saves), 40*time.Millisecond, time.Hour)

	for i := 0; i < 5; i++ {
		s.Schedule()
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), saves.Load(), "debounce still pending ~40ms after last call")

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), saves.Load(), "exactly one save after the burst")
}

func TestSchedule_NoOpWhileRestoring(t *testing.T) {
	var saves atomic.Int32
	state := NewState()
	s := New(state, countingSave(&saves), 10*time.Millisecond, time.Hour)

	state.SetRestoring(true)
	s.Schedule()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), saves.Load())

	state.SetRestoring(false)
	s.Schedule()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), saves.Load())
}

func TestSchedule_FireRechecksRestoreFlag(t *testing.T) {
	var saves atomic.Int32
	state := NewState()
	s := New(state, countingSave(&saves), 20*time.Millisecond, time.Hour)

	s.Schedule()
	state.SetRestoring(true) // restore starts after arming
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), saves.Load())
}

func TestPause_MaxMergeNeverShortens(t *testing.T) {
	state := NewState()

	state.PauseFor(time.Hour)
	state.PauseFor(time.Millisecond) // shorter request must not shorten
	assert.True(t, state.Paused())

	state.ResumeNow()
	assert.False(t, state.Paused())
}

func TestHeartbeat_SavesEvenWithoutScheduledCalls(t *testing.T) {
	var saves atomic.Int32
	s := New(NewState(), countingSave(&saves), time.Hour, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()
	err := s.RunHeartbeat(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.GreaterOrEqual(t, saves.Load(), int32(3), "heartbeat fires every interval")
}

func TestHeartbeat_SkipsWhilePaused(t *testing.T) {
	var saves atomic.Int32
	state := NewState()
	state.PauseFor(time.Hour)
	s := New(state, countingSave(&saves), time.Hour, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_ = s.RunHeartbeat(ctx)

	assert.Equal(t, int32(0), saves.Load())
}

func TestFlush_CancelsPendingTimerAndSavesOnce(t *testing.T) {
	var saves atomic.Int32
	s := New(NewState(), countingSave(&saves), 30*time.Millisecond, time.Hour)

	s.Schedule()
	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, int32(1), saves.Load())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), saves.Load(), "cancelled debounce does not fire later")
}
