// Package restore reconciles the live browser against the persisted
// session snapshot at startup: reuse/create/destroy windows, recreate tabs
// in order, regroup them into workspace groups, and restore layout/focus.
package restore

import (
	"context"
	"fmt"
	"time"

	"tabspaces/internal/directory"
	"tabspaces/internal/domain"
	"tabspaces/internal/logging"
	"tabspaces/internal/ports"
	"tabspaces/internal/reconcile"
	"tabspaces/internal/scheduler"
	"tabspaces/internal/snapshot"
)

// Engine runs the one-shot startup restore
type Engine struct {
	browser ports.BrowserPort
	dir     *directory.Directory
	rec     *reconcile.Reconciler
	store   ports.RecordStore
	sched   *scheduler.Scheduler

	startDelay   time.Duration
	startupPause time.Duration
}

// New creates an Engine
func New(
	browser ports.BrowserPort,
	dir *directory.Directory,
	rec *reconcile.Reconciler,
	store ports.RecordStore,
	sched *scheduler.Scheduler,
	startDelay, startupPause time.Duration,
) *Engine {
	return &Engine{
		browser:      browser,
		dir:          dir,
		rec:          rec,
		store:        store,
		sched:        sched,
		startDelay:   startDelay,
		startupPause: startupPause,
	}
}

// Run executes one restore pass. It waits out the startup delay so the
// platform's own native session restore finishes first, then reconciles
// windows against the snapshot under the restore guard. The guard and the
// save pause are always released, even when the restore fails mid-way,
// otherwise the process would wedge in permanent restore mode.
func (e *Engine) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(e.startDelay):
	}

	raw, err := e.store.LoadRecord(ctx, domain.SnapshotKey)
	if err != nil {
		return fmt.Errorf("failed to load snapshot record: %w", err)
	}
	snap := snapshot.Decode(raw)
	if snap == nil {
		logging.Logger.Info("no session snapshot to restore")
		return nil
	}

	guard := e.sched.State()
	guard.SetRestoring(true)
	guard.PauseFor(e.startupPause)
	defer func() {
		guard.SetRestoring(false)
		guard.ResumeNow()
		// Record the freshly restored state right away
		if err := e.sched.Flush(context.Background()); err != nil {
			logging.Logger.Error("post-restore snapshot save failed", "error", err)
		}
	}()

	if err := e.restore(ctx, snap); err != nil {
		logging.Logger.Error("session restore failed", "error", err)
		return err
	}
	return nil
}

func (e *Engine) restore(ctx context.Context, snap *domain.Snapshot) error {
	all, err := e.browser.ListWindows(ctx)
	if err != nil {
		return fmt.Errorf("failed to list windows: %w", err)
	}
	var existing []ports.Window
	for _, w := range all {
		if w.Type == "normal" {
			existing = append(existing, w)
		}
	}

	// Pair snapshot window i with existing window i; create the rest
	liveIDs := make([]int, 0, len(snap.Windows))
	derivedWorkspaces := make([]string, 0, len(snap.Windows))
	for i, wsnap := range snap.Windows {
		var windowID int
		if i < len(existing) {
			windowID = existing[i].ID
		} else {
			created, err := e.browser.CreateWindow(ctx, ports.CreateWindowOptions{
				State:  wsnap.State,
				Left:   wsnap.Left,
				Top:    wsnap.Top,
				Width:  wsnap.Width,
				Height: wsnap.Height,
			})
			if err != nil {
				return fmt.Errorf("failed to create window: %w", err)
			}
			if created == nil {
				continue
			}
			windowID = created.ID
		}
		liveIDs = append(liveIDs, windowID)
		derivedWorkspaces = append(derivedWorkspaces, e.restoreWindow(ctx, windowID, wsnap))
	}

	// Destroy surplus windows beyond the snapshot's count
	for i := len(snap.Windows); i < len(existing); i++ {
		if err := e.browser.RemoveWindow(ctx, existing[i].ID); err != nil {
			logging.Logger.Warn("failed to remove surplus window", "window_id", existing[i].ID, "error", err)
		}
	}

	e.finalize(ctx, snap, liveIDs, derivedWorkspaces)
	return nil
}

// restoreWindow rebuilds one window's tabs from its snapshot and returns
// the workspace id of the restored active tab, if it was grouped.
func (e *Engine) restoreWindow(ctx context.Context, windowID int, wsnap domain.WindowSnapshot) string {
	// Throwaway anchor tab: insurance against the window hitting zero tabs
	// mid-transition, which the platform disallows
	anchor, err := e.browser.CreateTab(ctx, ports.CreateTabOptions{
		WindowID: windowID,
		URL:      domain.BlankTabURL,
		Index:    -1,
		Active:   true,
	})
	if err != nil || anchor == nil {
		logging.Logger.Warn("failed to create anchor tab, skipping window", "window_id", windowID, "error", err)
		return ""
	}

	preExisting, err := e.browser.ListTabs(ctx, windowID)
	if err != nil {
		logging.Logger.Warn("failed to list pre-existing tabs", "window_id", windowID, "error", err)
	}
	var removeIDs []int
	for _, t := range preExisting {
		if t.ID != anchor.ID {
			removeIDs = append(removeIDs, t.ID)
		}
	}
	if len(removeIDs) > 0 {
		if err := e.browser.RemoveTabs(ctx, removeIDs); err != nil {
			logging.Logger.Warn("failed to remove pre-existing tabs", "window_id", windowID, "error", err)
		}
	}

	var wanted []domain.TabSnapshot
	for _, ts := range wsnap.Tabs {
		if !domain.IsInternalURL(ts.URL) {
			wanted = append(wanted, ts)
		}
	}

	var created []createdTab
	for i, ts := range wanted {
		tab, err := e.browser.CreateTab(ctx, ports.CreateTabOptions{
			WindowID: windowID,
			URL:      ts.URL,
			Index:    i,
			Pinned:   ts.Pinned,
			Active:   false,
		})
		if err != nil {
			logging.Logger.Warn("failed to create tab", "url", ts.URL, "error", err)
			continue
		}
		if tab == nil {
			continue
		}
		created = append(created, createdTab{id: tab.ID, snap: ts})
	}

	if len(created) == 0 {
		// Repurpose the anchor as the sole blank active tab
		active := true
		if _, err := e.browser.UpdateTab(ctx, anchor.ID, ports.UpdateTabOptions{Active: &active}); err != nil {
			logging.Logger.Warn("failed to activate anchor tab", "window_id", windowID, "error", err)
		}
		e.applyLayout(ctx, windowID, wsnap)
		return ""
	}
	if err := e.browser.RemoveTabs(ctx, []int{anchor.ID}); err != nil {
		logging.Logger.Warn("failed to remove anchor tab", "window_id", windowID, "error", err)
	}

	// Group created tabs by recorded workspace, keeping first-seen order
	groupIDs := e.regroup(ctx, windowID, created)

	// Exactly one active tab: the snapshot-flagged one, else the first
	activeTab := created[0]
	for _, ct := range created {
		if ct.snap.Active {
			activeTab = ct
			break
		}
	}
	active := true
	if _, err := e.browser.UpdateTab(ctx, activeTab.id, ports.UpdateTabOptions{Active: &active}); err != nil {
		logging.Logger.Warn("failed to activate restored tab", "tab_id", activeTab.id, "error", err)
	}
	if groupID, ok := groupIDs[activeTab.snap.WorkspaceID]; ok {
		e.rec.CollapseOtherGroups(ctx, windowID, groupID)
	}

	e.applyLayout(ctx, windowID, wsnap)

	if _, ok := groupIDs[activeTab.snap.WorkspaceID]; ok {
		return activeTab.snap.WorkspaceID
	}
	return ""
}

// createdTab pairs a freshly created tab id with its snapshot record
type createdTab struct {
	id   int
	snap domain.TabSnapshot
}

// regroup assigns created tabs to their workspace groups; workspace ids no
// longer present in the directory are left ungrouped.
func (e *Engine) regroup(ctx context.Context, windowID int, created []createdTab) map[string]int {
	workspaces, _, err := e.dir.List(ctx)
	if err != nil {
		logging.Logger.Warn("failed to list workspaces during restore", "error", err)
		return map[string]int{}
	}
	byID := make(map[string]domain.Workspace, len(workspaces))
	for _, ws := range workspaces {
		byID[ws.ID] = ws
	}

	var order []string
	members := map[string][]int{}
	for _, ct := range created {
		wsID := ct.snap.WorkspaceID
		if wsID == "" {
			continue
		}
		if _, known := byID[wsID]; !known {
			continue
		}
		if _, seen := members[wsID]; !seen {
			order = append(order, wsID)
		}
		members[wsID] = append(members[wsID], ct.id)
	}

	groupIDs := map[string]int{}
	for _, wsID := range order {
		groupID, err := e.rec.GroupTabsAs(ctx, byID[wsID], windowID, members[wsID])
		if err != nil {
			logging.Logger.Warn("failed to group restored tabs", "workspace_id", wsID, "error", err)
			continue
		}
		if groupID != ports.NoID {
			groupIDs[wsID] = groupID
		}
	}
	return groupIDs
}

func (e *Engine) applyLayout(ctx context.Context, windowID int, wsnap domain.WindowSnapshot) {
	opts := ports.UpdateWindowOptions{State: &wsnap.State}
	if wsnap.State == domain.WindowNormal {
		opts.Left, opts.Top = wsnap.Left, wsnap.Top
		opts.Width, opts.Height = wsnap.Width, wsnap.Height
	}
	if _, err := e.browser.UpdateWindow(ctx, windowID, opts); err != nil {
		logging.Logger.Warn("failed to apply window layout", "window_id", windowID, "error", err)
	}
}

func (e *Engine) finalize(ctx context.Context, snap *domain.Snapshot, liveIDs []int, derivedWorkspaces []string) {
	if len(liveIDs) == 0 {
		return
	}

	// Focus the snapshot-flagged window, else the first
	focusIdx := 0
	for i, wsnap := range snap.Windows {
		if i >= len(liveIDs) {
			break
		}
		if wsnap.Focused {
			focusIdx = i
			break
		}
	}
	focused := true
	if _, err := e.browser.UpdateWindow(ctx, liveIDs[focusIdx], ports.UpdateWindowOptions{Focused: &focused}); err != nil {
		logging.Logger.Warn("failed to focus window", "window_id", liveIDs[focusIdx], "error", err)
	}

	// Active workspace: the snapshot's stored id if it still exists, else
	// the first one derived from a restored window's active tab
	activeID := ""
	if snap.ActiveWorkspaceID != "" {
		if _, err := e.dir.Get(ctx, snap.ActiveWorkspaceID); err == nil {
			activeID = snap.ActiveWorkspaceID
		}
	}
	if activeID == "" {
		for _, wsID := range derivedWorkspaces {
			if wsID != "" {
				activeID = wsID
				break
			}
		}
	}
	if activeID != "" {
		if err := e.dir.SetActive(ctx, activeID); err != nil {
			logging.Logger.Warn("failed to record active workspace", "workspace_id", activeID, "error", err)
		}
	}
}
