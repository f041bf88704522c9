package ports

import (
	"context"

	"tabspaces/internal/domain"
)

// StatePatch is a partial update to the extension state record. Nil fields
// are left as stored.
type StatePatch struct {
	Workspaces        *[]domain.Workspace
	ActiveWorkspaceID *string
}

// StateReader reads the persisted extension state
type StateReader interface {
	// GetState merges the stored partial record onto defaults
	GetState(ctx context.Context) (domain.ExtensionState, error)
}

// StateWriter mutates the persisted extension state.
//
// SetState is a read-modify-write merge and is not atomic against
// concurrent writers; the store has a single consumer per device.
type StateWriter interface {
	SetState(ctx context.Context, patch StatePatch) error
}

// RecordStore is raw keyed access to the versioned object store, used for
// the session snapshot blob.
type RecordStore interface {
	// LoadRecord returns nil with no error when the key is absent
	LoadRecord(ctx context.Context, key string) ([]byte, error)
	SaveRecord(ctx context.Context, key string, value []byte) error
}

// StatePort is the composite persistence interface
type StatePort interface {
	StateReader
	StateWriter
	RecordStore
	Close() error
}
