// Package events routes platform lifecycle events into the snapshot
// scheduler and the workspace auto-assignment heuristic.
package events

import (
	"context"

	"tabspaces/internal/directory"
	"tabspaces/internal/domain"
	"tabspaces/internal/logging"
	"tabspaces/internal/ports"
	"tabspaces/internal/reconcile"
	"tabspaces/internal/scheduler"
)

// Type tags a platform lifecycle event
type Type string

const (
	TabCreated   Type = "tab.created"
	TabRemoved   Type = "tab.removed"
	TabMoved     Type = "tab.moved"
	TabAttached  Type = "tab.attached"
	TabDetached  Type = "tab.detached"
	TabUpdated   Type = "tab.updated"
	TabActivated Type = "tab.activated"
	GroupCreated Type = "group.created"
	GroupUpdated Type = "group.updated"
	GroupRemoved Type = "group.removed"
	Suspend      Type = "runtime.suspend"
)

// Event is one platform lifecycle event. Tab is populated for tab events
// where the platform reports the full tab.
type Event struct {
	Type       Type
	Tab        *ports.Tab
	URLChanged bool
	Status     string // load status on TabUpdated, "complete" when done
}

// Bridge dispatches events to the scheduler and the reconciler
type Bridge struct {
	guard   *scheduler.State
	sched   *scheduler.Scheduler
	rec     *reconcile.Reconciler
	dir     *directory.Directory
	browser ports.BrowserPort
}

// New creates a Bridge
func New(guard *scheduler.State, sched *scheduler.Scheduler, rec *reconcile.Reconciler, dir *directory.Directory, browser ports.BrowserPort) *Bridge {
	return &Bridge{guard: guard, sched: sched, rec: rec, dir: dir, browser: browser}
}

// Handle processes one event. Every event schedules a save, except pure
// navigation updates that are neither a URL change nor a load completion.
func (b *Bridge) Handle(ctx context.Context, ev Event) {
	switch ev.Type {
	case TabUpdated:
		if ev.URLChanged || ev.Status == "complete" {
			b.sched.Schedule()
		}
	case Suspend:
		if err := b.sched.Flush(ctx); err != nil {
			logging.Logger.Error("suspend snapshot save failed", "error", err)
		}
	case TabActivated:
		b.sched.Schedule()
		if ev.Tab != nil {
			b.syncActiveWorkspace(ctx, ev.Tab)
		}
	case TabCreated:
		b.sched.Schedule()
		if ev.Tab != nil {
			b.AutoAssign(ctx, ev.Tab)
		}
	default:
		b.sched.Schedule()
	}
}

// syncActiveWorkspace records the activated tab's workspace as active when
// it differs from the currently recorded one.
func (b *Bridge) syncActiveWorkspace(ctx context.Context, tab *ports.Tab) {
	if tab.GroupID == ports.NoID {
		return
	}
	title, ok := b.groupTitle(ctx, tab.WindowID, tab.GroupID)
	if !ok {
		return
	}
	ws, err := b.dir.FindByTitle(ctx, title)
	if err != nil {
		return // not a workspace-titled group
	}

	_, activeID, err := b.dir.List(ctx)
	if err != nil {
		logging.Logger.Warn("failed to read active workspace", "error", err)
		return
	}
	if activeID == ws.ID {
		return
	}
	if err := b.dir.SetActive(ctx, ws.ID); err != nil {
		logging.Logger.Warn("failed to sync active workspace", "workspace_id", ws.ID, "error", err)
	}
}

// AutoAssign places a newly created tab into a workspace group: the
// opener's workspace when the opener is grouped under one, else the active
// workspace. Skipped during restore, during the post-startup pause, and
// for pinned, already-grouped, or internal-URL tabs.
func (b *Bridge) AutoAssign(ctx context.Context, tab *ports.Tab) {
	if b.guard.Restoring() || b.guard.Paused() {
		return
	}
	if tab.Pinned || tab.GroupID != ports.NoID {
		return
	}
	// The URL may not be committed yet; check pendingUrl first, and only
	// reject when something is actually known to be internal
	candidate := tab.PendingURL
	if candidate == "" {
		candidate = tab.URL
	}
	if candidate != "" && domain.IsInternalURL(candidate) {
		return
	}

	ws := b.resolveWorkspaceForNewTab(ctx, tab)
	if ws == nil {
		return
	}
	if err := b.rec.AddTabToWorkspace(ctx, tab.ID, tab.WindowID, *ws); err != nil {
		logging.Logger.Warn("auto-assign failed", "tab_id", tab.ID, "workspace_id", ws.ID, "error", err)
	}
}

func (b *Bridge) resolveWorkspaceForNewTab(ctx context.Context, tab *ports.Tab) *domain.Workspace {
	if tab.OpenerTabID != ports.NoID {
		opener, err := b.browser.GetTab(ctx, tab.OpenerTabID)
		if err == nil && opener != nil && opener.GroupID != ports.NoID {
			if title, ok := b.groupTitle(ctx, opener.WindowID, opener.GroupID); ok {
				if ws, err := b.dir.FindByTitle(ctx, title); err == nil {
					return ws
				}
			}
		}
	}

	ws, err := b.dir.Active(ctx)
	if err != nil {
		logging.Logger.Warn("failed to resolve active workspace", "error", err)
		return nil
	}
	return ws
}

func (b *Bridge) groupTitle(ctx context.Context, windowID, groupID int) (string, bool) {
	groups, err := b.browser.ListGroups(ctx, windowID)
	if err != nil {
		logging.Logger.Warn("failed to list groups", "window_id", windowID, "error", err)
		return "", false
	}
	for _, g := range groups {
		if g.ID == groupID {
			return g.Title, true
		}
	}
	return "", false
}
