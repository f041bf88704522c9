// Package snapshot serializes the observed state of all normal windows
// into the versioned session snapshot record, and decodes/upgrades
// persisted snapshots back into the current schema.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tabspaces/internal/directory"
	"tabspaces/internal/domain"
	"tabspaces/internal/logging"
	"tabspaces/internal/ports"
)

// Codec captures live browser state and decodes persisted snapshots
type Codec struct {
	browser ports.BrowserPort
	dir     *directory.Directory
	now     func() time.Time
}

// New creates a Codec
func New(browser ports.BrowserPort, dir *directory.Directory) *Codec {
	return &Codec{browser: browser, dir: dir, now: time.Now}
}

// Capture builds a v2 snapshot from the live browser. Returns nil (no
// error) when there are no windows or no window produced any tab, so an
// empty moment never overwrites a good snapshot.
func (c *Codec) Capture(ctx context.Context) (*domain.Snapshot, error) {
	windows, err := c.browser.ListWindows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list windows: %w", err)
	}

	workspaces, activeID, err := c.dir.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	workspaceByTitle := make(map[string]string, len(workspaces))
	for _, ws := range workspaces {
		if _, ok := workspaceByTitle[ws.GroupTitle()]; !ok {
			workspaceByTitle[ws.GroupTitle()] = ws.ID
		}
	}

	snap := &domain.Snapshot{
		Version:           domain.SnapshotVersion,
		SavedAt:           c.now().UnixMilli(),
		ActiveWorkspaceID: activeID,
	}

	totalTabs := 0
	for _, win := range windows {
		if win.Type != "normal" {
			continue
		}
		wsnap, tabCount := c.captureWindow(ctx, win, workspaceByTitle)
		snap.Windows = append(snap.Windows, wsnap)
		totalTabs += tabCount
	}

	if len(snap.Windows) == 0 || totalTabs == 0 {
		return nil, nil
	}
	return snap, nil
}

func (c *Codec) captureWindow(ctx context.Context, win ports.Window, workspaceByTitle map[string]string) (domain.WindowSnapshot, int) {
	wsnap := domain.WindowSnapshot{
		Focused: win.Focused,
		State:   win.State,
		Tabs:    []domain.TabSnapshot{},
	}
	if !domain.ValidWindowState(wsnap.State) {
		wsnap.State = domain.WindowNormal
	}
	// Geometry is only meaningful for normal windows
	if wsnap.State == domain.WindowNormal {
		wsnap.Left, wsnap.Top = win.Left, win.Top
		wsnap.Width, wsnap.Height = win.Width, win.Height
	}

	workspaceByGroup := map[int]string{}
	groups, err := c.browser.ListGroups(ctx, win.ID)
	if err != nil {
		logging.Logger.Warn("failed to list groups during capture", "window_id", win.ID, "error", err)
	}
	for _, g := range groups {
		if wsID, ok := workspaceByTitle[g.Title]; ok {
			workspaceByGroup[g.ID] = wsID
		}
	}

	tabs, err := c.browser.ListTabs(ctx, win.ID)
	if err != nil {
		logging.Logger.Warn("failed to list tabs during capture", "window_id", win.ID, "error", err)
		return wsnap, 0
	}

	haveActive := false
	for _, t := range tabs {
		if domain.IsInternalURL(t.URL) {
			continue
		}
		ts := domain.TabSnapshot{
			URL:    t.URL,
			Pinned: t.Pinned,
			Active: t.Active && !haveActive,
		}
		if t.GroupID != ports.NoID {
			ts.WorkspaceID = workspaceByGroup[t.GroupID]
		}
		if ts.Active {
			haveActive = true
		}
		wsnap.Tabs = append(wsnap.Tabs, ts)
	}
	if !haveActive && len(wsnap.Tabs) > 0 {
		wsnap.Tabs[0].Active = true
	}
	return wsnap, len(wsnap.Tabs)
}

// Persist captures the live state and writes it to the snapshot record,
// overwriting the prior snapshot in place. A nil capture is skipped.
func (c *Codec) Persist(ctx context.Context, store ports.RecordStore) error {
	snap, err := c.Capture(ctx)
	if err != nil {
		return err
	}
	if snap == nil {
		logging.Logger.Debug("skipping empty snapshot")
		return nil
	}
	raw, err := Encode(snap)
	if err != nil {
		return err
	}
	if err := store.SaveRecord(ctx, domain.SnapshotKey, raw); err != nil {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}
	return nil
}

// Encode serializes a snapshot for persistence
func Encode(snap *domain.Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// Decode validates raw snapshot bytes, upgrading legacy v1 payloads.
// Unknown or malformed windows/tabs are dropped rather than failing the
// whole decode; a totally unparseable payload yields nil, meaning nothing
// to restore.
func Decode(raw []byte) *domain.Snapshot {
	if len(raw) == 0 {
		return nil
	}

	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		logging.Logger.Warn("unparseable snapshot payload", "error", err)
		return nil
	}

	switch probe.Version {
	case domain.SnapshotVersion:
		return decodeV2(raw)
	case 1:
		return upgradeV1(raw)
	default:
		logging.Logger.Warn("unknown snapshot version", "version", probe.Version)
		return nil
	}
}

func decodeV2(raw []byte) *domain.Snapshot {
	var loose struct {
		Version           int               `json:"version"`
		SavedAt           int64             `json:"savedAt"`
		ActiveWorkspaceID string            `json:"activeWorkspaceId"`
		Windows           []json.RawMessage `json:"windows"`
	}
	if err := json.Unmarshal(raw, &loose); err != nil {
		logging.Logger.Warn("malformed v2 snapshot", "error", err)
		return nil
	}

	snap := &domain.Snapshot{
		Version:           domain.SnapshotVersion,
		SavedAt:           loose.SavedAt,
		ActiveWorkspaceID: loose.ActiveWorkspaceID,
	}
	for _, rawWindow := range loose.Windows {
		if wsnap, ok := decodeWindow(rawWindow); ok {
			snap.Windows = append(snap.Windows, wsnap)
		}
	}
	if len(snap.Windows) == 0 {
		return nil
	}
	return snap
}

func decodeWindow(raw json.RawMessage) (domain.WindowSnapshot, bool) {
	var loose struct {
		Tabs    []json.RawMessage `json:"tabs"`
		Focused bool              `json:"focused"`
		State   string            `json:"state"`
		Left    *int              `json:"left"`
		Top     *int              `json:"top"`
		Width   *int              `json:"width"`
		Height  *int              `json:"height"`
	}
	if err := json.Unmarshal(raw, &loose); err != nil {
		logging.Logger.Debug("dropping malformed window snapshot", "error", err)
		return domain.WindowSnapshot{}, false
	}

	wsnap := domain.WindowSnapshot{
		Focused: loose.Focused,
		State:   domain.WindowState(loose.State),
		Tabs:    []domain.TabSnapshot{},
	}
	if !domain.ValidWindowState(wsnap.State) {
		wsnap.State = domain.WindowNormal
	}
	if wsnap.State == domain.WindowNormal {
		wsnap.Left, wsnap.Top = loose.Left, loose.Top
		wsnap.Width, wsnap.Height = loose.Width, loose.Height
	}

	haveActive := false
	for _, rawTab := range loose.Tabs {
		var tab domain.TabSnapshot
		if err := json.Unmarshal(rawTab, &tab); err != nil {
			logging.Logger.Debug("dropping malformed tab snapshot", "error", err)
			continue
		}
		if domain.IsInternalURL(tab.URL) {
			continue
		}
		if tab.Active && haveActive {
			tab.Active = false
		}
		if tab.Active {
			haveActive = true
		}
		wsnap.Tabs = append(wsnap.Tabs, tab)
	}
	if !haveActive && len(wsnap.Tabs) > 0 {
		wsnap.Tabs[0].Active = true
	}
	return wsnap, true
}

// upgradeV1 converts a legacy flat per-workspace snapshot into a single
// synthetic v2 window, flattening workspaces into one tab sequence.
func upgradeV1(raw []byte) *domain.Snapshot {
	var legacy domain.SnapshotV1
	if err := json.Unmarshal(raw, &legacy); err != nil {
		logging.Logger.Warn("malformed v1 snapshot", "error", err)
		return nil
	}

	window := domain.WindowSnapshot{
		Focused: true,
		State:   domain.WindowNormal,
		Tabs:    []domain.TabSnapshot{},
	}

	haveActive := false
	for _, entry := range legacy.Workspaces {
		for i, rawURL := range entry.TabURLs {
			if domain.IsInternalURL(rawURL) {
				continue
			}
			active := !haveActive &&
				legacy.ActiveWorkspaceID != "" &&
				entry.WorkspaceID == legacy.ActiveWorkspaceID &&
				entry.ActiveTabIndex != nil && *entry.ActiveTabIndex == i
			if active {
				haveActive = true
			}
			window.Tabs = append(window.Tabs, domain.TabSnapshot{
				URL:         rawURL,
				WorkspaceID: entry.WorkspaceID,
				Active:      active,
			})
		}
	}
	if len(window.Tabs) == 0 {
		return nil
	}
	if !haveActive {
		window.Tabs[0].Active = true
	}

	return &domain.Snapshot{
		Version:           domain.SnapshotVersion,
		SavedAt:           legacy.SavedAt,
		ActiveWorkspaceID: legacy.ActiveWorkspaceID,
		Windows:           []domain.WindowSnapshot{window},
	}
}
