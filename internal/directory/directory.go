// Package directory is the in-memory view over the persisted extension
// state record: the workspace list plus the active-workspace id.
package directory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"tabspaces/internal/domain"
	"tabspaces/internal/ports"
)

// Directory provides workspace lookup and mutation over the state store
type Directory struct {
	store ports.StatePort
}

// New creates a Directory backed by store
func New(store ports.StatePort) *Directory {
	return &Directory{store: store}
}

// List returns all workspaces in display order plus the active workspace id
func (d *Directory) List(ctx context.Context) ([]domain.Workspace, string, error) {
	state, err := d.store.GetState(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load state: %w", err)
	}
	return state.Workspaces, state.ActiveWorkspaceID, nil
}

// Get returns the workspace with the given id
func (d *Directory) Get(ctx context.Context, id string) (*domain.Workspace, error) {
	state, err := d.store.GetState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	for _, ws := range state.Workspaces {
		if ws.ID == id {
			return &ws, nil
		}
	}
	return nil, domain.ErrWorkspaceNotFound
}

// FindByTitle returns the first workspace (display order) whose derived
// group title matches. Title is the sole cross-restart key, so a stale or
// colliding title resolves to the first match rather than failing.
func (d *Directory) FindByTitle(ctx context.Context, title string) (*domain.Workspace, error) {
	state, err := d.store.GetState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	for _, ws := range state.Workspaces {
		if ws.GroupTitle() == title {
			return &ws, nil
		}
	}
	return nil, domain.ErrWorkspaceNotFound
}

// Active returns the active workspace, or nil when none is recorded or the
// recorded id no longer exists.
func (d *Directory) Active(ctx context.Context) (*domain.Workspace, error) {
	state, err := d.store.GetState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	if state.ActiveWorkspaceID == "" {
		return nil, nil
	}
	for _, ws := range state.Workspaces {
		if ws.ID == state.ActiveWorkspaceID {
			return &ws, nil
		}
	}
	return nil, nil
}

// SetActive records id as the active workspace. An empty id clears it; a
// non-empty id must name an existing workspace.
func (d *Directory) SetActive(ctx context.Context, id string) error {
	if id != "" {
		if _, err := d.Get(ctx, id); err != nil {
			return err
		}
	}
	return d.store.SetState(ctx, ports.StatePatch{ActiveWorkspaceID: &id})
}

// Create adds a new workspace at the end of the display order
func (d *Directory) Create(ctx context.Context, name, color, icon string) (*domain.Workspace, error) {
	ws := domain.Workspace{
		ID:    uuid.New().String(),
		Name:  name,
		Color: color,
		Icon:  icon,
	}

	state, err := d.store.GetState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	for _, existing := range state.Workspaces {
		if existing.GroupTitle() == ws.GroupTitle() {
			return nil, domain.ErrTitleCollision
		}
	}

	workspaces := append(state.Clone().Workspaces, ws)
	if err := d.store.SetState(ctx, ports.StatePatch{Workspaces: &workspaces}); err != nil {
		return nil, fmt.Errorf("failed to save workspace: %w", err)
	}
	return &ws, nil
}

// Update rewrites the name/color/icon of an existing workspace
func (d *Directory) Update(ctx context.Context, id, name, color, icon string) (*domain.Workspace, error) {
	state, err := d.store.GetState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	updated := domain.Workspace{ID: id, Name: name, Color: color, Icon: icon}
	for _, existing := range state.Workspaces {
		if existing.ID != id && existing.GroupTitle() == updated.GroupTitle() {
			return nil, domain.ErrTitleCollision
		}
	}

	workspaces := state.Clone().Workspaces
	found := false
	for i := range workspaces {
		if workspaces[i].ID == id {
			workspaces[i] = updated
			found = true
			break
		}
	}
	if !found {
		return nil, domain.ErrWorkspaceNotFound
	}

	if err := d.store.SetState(ctx, ports.StatePatch{Workspaces: &workspaces}); err != nil {
		return nil, fmt.Errorf("failed to save workspace: %w", err)
	}
	return &updated, nil
}

// Delete removes a workspace. If it was the active workspace the active id
// is cleared in the same write.
func (d *Directory) Delete(ctx context.Context, id string) error {
	state, err := d.store.GetState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	workspaces := make([]domain.Workspace, 0, len(state.Workspaces))
	found := false
	for _, ws := range state.Workspaces {
		if ws.ID == id {
			found = true
			continue
		}
		workspaces = append(workspaces, ws)
	}
	if !found {
		return domain.ErrWorkspaceNotFound
	}

	patch := ports.StatePatch{Workspaces: &workspaces}
	if state.ActiveWorkspaceID == id {
		cleared := ""
		patch.ActiveWorkspaceID = &cleared
	}
	if err := d.store.SetState(ctx, patch); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// Move shifts a workspace by delta positions in the display order,
// clamping at the ends.
func (d *Directory) Move(ctx context.Context, id string, delta int) error {
	state, err := d.store.GetState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	workspaces := state.Clone().Workspaces
	from := -1
	for i, ws := range workspaces {
		if ws.ID == id {
			from = i
			break
		}
	}
	if from == -1 {
		return domain.ErrWorkspaceNotFound
	}

	to := from + delta
	if to < 0 {
		to = 0
	}
	if to > len(workspaces)-1 {
		to = len(workspaces) - 1
	}
	if to == from {
		return nil
	}

	ws := workspaces[from]
	workspaces = append(workspaces[:from], workspaces[from+1:]...)
	rest := append([]domain.Workspace{ws}, workspaces[to:]...)
	workspaces = append(workspaces[:to], rest...)

	if err := d.store.SetState(ctx, ports.StatePatch{Workspaces: &workspaces}); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}
