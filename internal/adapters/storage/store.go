// Package storage implements the state port on a sqlite-backed key/value
// object store via GORM.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"tabspaces/internal/domain"
	"tabspaces/internal/logging"
	"tabspaces/internal/ports"
)

const busyRetries = 3

// Store implements ports.StatePort using GORM
type Store struct {
	db *gorm.DB
}

// Verify interface compliance at compile time
var _ ports.StatePort = (*Store)(nil)

// gormLogger wraps the tabspaces logger for GORM
type gormLogger struct {
	level logger.LogLevel
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &gormLogger{level: level}
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Info {
		logging.Logger.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Warn {
		logging.Logger.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Error {
		logging.Logger.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level < logger.Info {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logging.Logger.Error("gorm query error",
			"error", err,
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	} else if elapsed > 200*time.Millisecond {
		logging.Logger.Warn("slow query",
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	} else {
		logging.Logger.Debug("gorm query",
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	}
}

func newGormLogger() logger.Interface {
	if os.Getenv("TABSPACES_DEBUG") == "1" {
		return (&gormLogger{}).LogMode(logger.Info)
	}
	return (&gormLogger{}).LogMode(logger.Silent)
}

// NewStore opens (creating if needed) the sqlite object store at dbPath
func NewStore(dbPath string) (*Store, error) {
	// Expand home directory if present
	if len(dbPath) > 0 && dbPath[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(homeDir, dbPath[1:])
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		PrepareStmt: false,
		NowFunc:     func() time.Time { return time.Now().UTC() },
		Logger:      newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for concurrent access
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	db.Exec("PRAGMA synchronous=NORMAL")

	if err := db.AutoMigrate(&RecordModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate records schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.Close()
}

// GetState loads the extension state record, merging the stored partial
// onto defaults. A missing or malformed record yields defaults.
func (s *Store) GetState(ctx context.Context) (domain.ExtensionState, error) {
	state := domain.ExtensionState{Workspaces: []domain.Workspace{}}

	raw, err := s.LoadRecord(ctx, domain.StateKey)
	if err != nil {
		return state, err
	}
	if raw == nil {
		return state, nil
	}

	// Field-by-field tolerant decode: a bad field falls back to its default
	var loose struct {
		Workspaces        json.RawMessage `json:"workspaces"`
		ActiveWorkspaceID json.RawMessage `json:"activeWorkspaceId"`
	}
	if err := json.Unmarshal(raw, &loose); err != nil {
		logging.Logger.Warn("malformed state record, using defaults", "error", err)
		return state, nil
	}
	if loose.Workspaces != nil {
		var workspaces []domain.Workspace
		if err := json.Unmarshal(loose.Workspaces, &workspaces); err == nil && workspaces != nil {
			state.Workspaces = workspaces
		}
	}
	if loose.ActiveWorkspaceID != nil {
		var activeID string
		if err := json.Unmarshal(loose.ActiveWorkspaceID, &activeID); err == nil {
			state.ActiveWorkspaceID = activeID
		}
	}
	return state, nil
}

// SetState merges the patch onto a freshly loaded state and writes the
// result back.
func (s *Store) SetState(ctx context.Context, patch ports.StatePatch) error {
	state, err := s.GetState(ctx)
	if err != nil {
		return err
	}
	if patch.Workspaces != nil {
		state.Workspaces = *patch.Workspaces
	}
	if patch.ActiveWorkspaceID != nil {
		state.ActiveWorkspaceID = *patch.ActiveWorkspaceID
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	return s.SaveRecord(ctx, domain.StateKey, raw)
}

// LoadRecord implements ports.RecordStore; a missing key is nil, not an
// error.
func (s *Store) LoadRecord(ctx context.Context, key string) ([]byte, error) {
	var record RecordModel
	err := s.db.WithContext(ctx).First(&record, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record %q: %w", key, err)
	}
	return record.Value, nil
}

// SaveRecord upserts the value under key, retrying briefly when sqlite
// reports the database busy.
func (s *Store) SaveRecord(ctx context.Context, key string, value []byte) error {
	record := RecordModel{Key: key, Value: value}

	var err error
	for attempt := 0; attempt < busyRetries; attempt++ {
		err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&record).Error
		if err == nil {
			return nil
		}
		var sqliteErr sqlite3.Error
		if !errors.As(err, &sqliteErr) || sqliteErr.Code != sqlite3.ErrBusy {
			break
		}
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return fmt.Errorf("failed to save record %q: %w", key, err)
}
