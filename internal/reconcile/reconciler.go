// Package reconcile keeps native tab-groups in sync with workspaces:
// find-or-create by derived title, self-heal title/color drift, and enforce
// the single-expanded-group invariant per window.
package reconcile

import (
	"context"

	"tabspaces/internal/directory"
	"tabspaces/internal/domain"
	"tabspaces/internal/groupcolor"
	"tabspaces/internal/logging"
	"tabspaces/internal/ports"
)

// Reconciler maps workspaces onto native tab-groups
type Reconciler struct {
	browser ports.BrowserPort
	dir     *directory.Directory
}

// New creates a Reconciler
func New(browser ports.BrowserPort, dir *directory.Directory) *Reconciler {
	return &Reconciler{browser: browser, dir: dir}
}

// EnsureGroup finds or creates the native group for ws in windowID, syncs
// its title/color, and collapses every other group in that window. Returns
// ports.NoID without error when the window vanished mid-operation.
func (r *Reconciler) EnsureGroup(ctx context.Context, ws domain.Workspace, windowID int) (int, error) {
	groupID, err := r.resolveGroup(ctx, ws, windowID)
	if err != nil || groupID == ports.NoID {
		return groupID, err
	}
	r.CollapseOtherGroups(ctx, windowID, groupID)
	return groupID, nil
}

// resolveGroup is EnsureGroup without the collapse pass
func (r *Reconciler) resolveGroup(ctx context.Context, ws domain.Workspace, windowID int) (int, error) {
	title := ws.GroupTitle()
	color := groupcolor.Classify(ws.Color)

	groups, err := r.browser.ListGroups(ctx, windowID)
	if err != nil {
		return ports.NoID, err
	}
	for _, g := range groups {
		if g.Title == title {
			// Self-heal color drift: the user or another extension may have
			// recolored the group
			if g.Color != color {
				r.styleGroup(ctx, g.ID, title, color)
			}
			return g.ID, nil
		}
	}

	baseTabID, err := r.pickBaseTab(ctx, windowID)
	if err != nil {
		return ports.NoID, err
	}
	if baseTabID == ports.NoID {
		logging.Logger.Debug("no base tab available for group creation", "window_id", windowID)
		return ports.NoID, nil
	}

	groupID, err := r.browser.GroupTabs(ctx, ports.GroupTabsOptions{
		TabIDs:   []int{baseTabID},
		GroupID:  ports.NoID,
		WindowID: windowID,
	})
	if err != nil {
		return ports.NoID, err
	}
	if groupID == ports.NoID {
		return ports.NoID, nil
	}

	r.styleGroup(ctx, groupID, title, color)
	return groupID, nil
}

// ExpandGroup expands the workspace's existing group in windowID and
// collapses every other group there. Lookup only: when the workspace has no
// group in that window nothing is created and no tab is touched.
func (r *Reconciler) ExpandGroup(ctx context.Context, ws domain.Workspace, windowID int) error {
	title := ws.GroupTitle()

	groups, err := r.browser.ListGroups(ctx, windowID)
	if err != nil {
		return err
	}
	for _, g := range groups {
		if g.Title == title {
			r.CollapseOtherGroups(ctx, windowID, g.ID)
			return nil
		}
	}
	logging.Logger.Debug("no group to expand", "workspace_id", ws.ID, "window_id", windowID)
	return nil
}

// AddTabToWorkspace merges the tab into the workspace's group in windowID,
// creating the group if needed, and re-collapses siblings.
func (r *Reconciler) AddTabToWorkspace(ctx context.Context, tabID, windowID int, ws domain.Workspace) error {
	groupID, err := r.resolveGroup(ctx, ws, windowID)
	if err != nil {
		return err
	}
	if groupID == ports.NoID {
		return nil
	}

	if _, err := r.browser.GroupTabs(ctx, ports.GroupTabsOptions{
		TabIDs:  []int{tabID},
		GroupID: groupID,
	}); err != nil {
		return err
	}
	r.CollapseOtherGroups(ctx, windowID, groupID)
	return nil
}

// GroupTabsAs groups the given tabs under the workspace's group in
// windowID, merging into an existing titled group or creating a new group
// directly from the tabs. Used by restore, which already holds the tabs to
// group and manages collapse itself.
func (r *Reconciler) GroupTabsAs(ctx context.Context, ws domain.Workspace, windowID int, tabIDs []int) (int, error) {
	if len(tabIDs) == 0 {
		return ports.NoID, nil
	}
	title := ws.GroupTitle()
	color := groupcolor.Classify(ws.Color)

	groups, err := r.browser.ListGroups(ctx, windowID)
	if err != nil {
		return ports.NoID, err
	}
	groupID := ports.NoID
	for _, g := range groups {
		if g.Title == title {
			groupID = g.ID
			break
		}
	}

	groupID, err = r.browser.GroupTabs(ctx, ports.GroupTabsOptions{
		TabIDs:   tabIDs,
		GroupID:  groupID,
		WindowID: windowID,
	})
	if err != nil || groupID == ports.NoID {
		return ports.NoID, err
	}
	r.styleGroup(ctx, groupID, title, color)
	return groupID, nil
}

// CollapseOtherGroups collapses every group in windowID except keepGroupID
// and expands keepGroupID. Exactly one group stays expanded per window.
func (r *Reconciler) CollapseOtherGroups(ctx context.Context, windowID, keepGroupID int) {
	groups, err := r.browser.ListGroups(ctx, windowID)
	if err != nil {
		logging.Logger.Warn("failed to list groups for collapse", "window_id", windowID, "error", err)
		return
	}
	for _, g := range groups {
		collapsed := g.ID != keepGroupID
		if g.Collapsed == collapsed {
			continue
		}
		if _, err := r.browser.UpdateGroup(ctx, g.ID, ports.UpdateGroupOptions{Collapsed: &collapsed}); err != nil {
			logging.Logger.Warn("failed to update group collapse state", "group_id", g.ID, "error", err)
		}
	}
}

// UngroupWorkspaceTabs removes grouping from every tab in groups titled for
// the workspace, across all windows. Tabs themselves are left open.
func (r *Reconciler) UngroupWorkspaceTabs(ctx context.Context, ws domain.Workspace) error {
	title := ws.GroupTitle()

	groups, err := r.browser.ListGroups(ctx, ports.NoID)
	if err != nil {
		return err
	}
	for _, g := range groups {
		if g.Title != title {
			continue
		}
		tabs, err := r.browser.ListTabs(ctx, g.WindowID)
		if err != nil {
			logging.Logger.Warn("failed to list tabs for ungroup", "window_id", g.WindowID, "error", err)
			continue
		}
		var memberIDs []int
		for _, t := range tabs {
			if t.GroupID == g.ID {
				memberIDs = append(memberIDs, t.ID)
			}
		}
		if len(memberIDs) == 0 {
			continue
		}
		if err := r.browser.UngroupTabs(ctx, memberIDs); err != nil {
			logging.Logger.Warn("failed to ungroup tabs", "group_id", g.ID, "error", err)
		}
	}
	return nil
}

// pickBaseTab returns the window's active tab, or creates a blank tab as
// last resort. NoID means the window is gone.
func (r *Reconciler) pickBaseTab(ctx context.Context, windowID int) (int, error) {
	tabs, err := r.browser.ListTabs(ctx, windowID)
	if err != nil {
		return ports.NoID, err
	}
	for _, t := range tabs {
		if t.Active {
			return t.ID, nil
		}
	}
	created, err := r.browser.CreateTab(ctx, ports.CreateTabOptions{
		WindowID: windowID,
		URL:      domain.BlankTabURL,
		Index:    -1,
	})
	if err != nil {
		return ports.NoID, err
	}
	if created == nil {
		return ports.NoID, nil
	}
	return created.ID, nil
}

func (r *Reconciler) styleGroup(ctx context.Context, groupID int, title string, color domain.GroupColor) {
	expanded := false
	if _, err := r.browser.UpdateGroup(ctx, groupID, ports.UpdateGroupOptions{
		Title:     &title,
		Color:     &color,
		Collapsed: &expanded,
	}); err != nil {
		logging.Logger.Warn("failed to style group", "group_id", groupID, "error", err)
	}
}
