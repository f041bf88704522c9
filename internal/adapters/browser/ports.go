package browser

import (
	"context"

	"tabspaces/internal/ports"
)

type createWindowParams struct {
	State  string `json:"state,omitempty"`
	Left   *int   `json:"left,omitempty"`
	Top    *int   `json:"top,omitempty"`
	Width  *int   `json:"width,omitempty"`
	Height *int   `json:"height,omitempty"`
}

type updateWindowParams struct {
	WindowID int     `json:"windowId"`
	State    *string `json:"state,omitempty"`
	Focused  *bool   `json:"focused,omitempty"`
	Left     *int    `json:"left,omitempty"`
	Top      *int    `json:"top,omitempty"`
	Width    *int    `json:"width,omitempty"`
	Height   *int    `json:"height,omitempty"`
}

type createTabParams struct {
	WindowID int    `json:"windowId"`
	URL      string `json:"url,omitempty"`
	Index    *int   `json:"index,omitempty"`
	Pinned   bool   `json:"pinned,omitempty"`
	Active   bool   `json:"active"`
}

type updateTabParams struct {
	TabID  int     `json:"tabId"`
	URL    *string `json:"url,omitempty"`
	Pinned *bool   `json:"pinned,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

type updateGroupParams struct {
	GroupID   int     `json:"groupId"`
	Title     *string `json:"title,omitempty"`
	Color     *string `json:"color,omitempty"`
	Collapsed *bool   `json:"collapsed,omitempty"`
}

type groupTabsParams struct {
	TabIDs   []int `json:"tabIds"`
	GroupID  *int  `json:"groupId,omitempty"`
	WindowID *int  `json:"windowId,omitempty"`
}

// ListWindows implements ports.WindowPort
func (b *Bridge) ListWindows(ctx context.Context) ([]ports.Window, error) {
	var wire []wireWindow
	ok, err := b.call(ctx, methodWindowsList, struct{}{}, &wire)
	if err != nil || !ok {
		return nil, err
	}
	out := make([]ports.Window, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.port())
	}
	return out, nil
}

// CreateWindow implements ports.WindowPort
func (b *Bridge) CreateWindow(ctx context.Context, opts ports.CreateWindowOptions) (*ports.Window, error) {
	params := createWindowParams{
		State:  string(opts.State),
		Left:   opts.Left,
		Top:    opts.Top,
		Width:  opts.Width,
		Height: opts.Height,
	}
	var wire wireWindow
	ok, err := b.call(ctx, methodWindowsCreate, params, &wire)
	if err != nil || !ok {
		return nil, err
	}
	w := wire.port()
	return &w, nil
}

// UpdateWindow implements ports.WindowPort
func (b *Bridge) UpdateWindow(ctx context.Context, windowID int, opts ports.UpdateWindowOptions) (*ports.Window, error) {
	params := updateWindowParams{
		WindowID: windowID,
		Focused:  opts.Focused,
		Left:     opts.Left,
		Top:      opts.Top,
		Width:    opts.Width,
		Height:   opts.Height,
	}
	if opts.State != nil {
		state := string(*opts.State)
		params.State = &state
	}
	var wire wireWindow
	ok, err := b.call(ctx, methodWindowsUpdate, params, &wire)
	if err != nil || !ok {
		return nil, err
	}
	w := wire.port()
	return &w, nil
}

// RemoveWindow implements ports.WindowPort
func (b *Bridge) RemoveWindow(ctx context.Context, windowID int) error {
	_, err := b.call(ctx, methodWindowsRemove, map[string]int{"windowId": windowID}, nil)
	return err
}

// ListTabs implements ports.TabPort
func (b *Bridge) ListTabs(ctx context.Context, windowID int) ([]ports.Tab, error) {
	var wire []wireTab
	ok, err := b.call(ctx, methodTabsList, map[string]int{"windowId": windowID}, &wire)
	if err != nil || !ok {
		return nil, err
	}
	out := make([]ports.Tab, 0, len(wire))
	for _, t := range wire {
		out = append(out, t.port())
	}
	return out, nil
}

// GetTab implements ports.TabPort
func (b *Bridge) GetTab(ctx context.Context, tabID int) (*ports.Tab, error) {
	var wire wireTab
	ok, err := b.call(ctx, methodTabsGet, map[string]int{"tabId": tabID}, &wire)
	if err != nil || !ok {
		return nil, err
	}
	t := wire.port()
	return &t, nil
}

// CreateTab implements ports.TabPort
func (b *Bridge) CreateTab(ctx context.Context, opts ports.CreateTabOptions) (*ports.Tab, error) {
	params := createTabParams{
		WindowID: opts.WindowID,
		URL:      opts.URL,
		Pinned:   opts.Pinned,
		Active:   opts.Active,
	}
	if opts.Index >= 0 {
		params.Index = &opts.Index
	}
	var wire wireTab
	ok, err := b.call(ctx, methodTabsCreate, params, &wire)
	if err != nil || !ok {
		return nil, err
	}
	t := wire.port()
	return &t, nil
}

// UpdateTab implements ports.TabPort
func (b *Bridge) UpdateTab(ctx context.Context, tabID int, opts ports.UpdateTabOptions) (*ports.Tab, error) {
	params := updateTabParams{
		TabID:  tabID,
		URL:    opts.URL,
		Pinned: opts.Pinned,
		Active: opts.Active,
	}
	var wire wireTab
	ok, err := b.call(ctx, methodTabsUpdate, params, &wire)
	if err != nil || !ok {
		return nil, err
	}
	t := wire.port()
	return &t, nil
}

// RemoveTabs implements ports.TabPort
func (b *Bridge) RemoveTabs(ctx context.Context, tabIDs []int) error {
	if len(tabIDs) == 0 {
		return nil
	}
	_, err := b.call(ctx, methodTabsRemove, map[string][]int{"tabIds": tabIDs}, nil)
	return err
}

// ListGroups implements ports.GroupPort
func (b *Bridge) ListGroups(ctx context.Context, windowID int) ([]ports.TabGroup, error) {
	params := struct {
		WindowID *int `json:"windowId,omitempty"`
	}{}
	if windowID != ports.NoID {
		params.WindowID = &windowID
	}
	var wire []wireGroup
	ok, err := b.call(ctx, methodGroupsList, params, &wire)
	if err != nil || !ok {
		return nil, err
	}
	out := make([]ports.TabGroup, 0, len(wire))
	for _, g := range wire {
		out = append(out, g.port())
	}
	return out, nil
}

// GroupTabs implements ports.GroupPort
func (b *Bridge) GroupTabs(ctx context.Context, opts ports.GroupTabsOptions) (int, error) {
	params := groupTabsParams{TabIDs: opts.TabIDs}
	if opts.GroupID != ports.NoID {
		params.GroupID = &opts.GroupID
	} else {
		params.WindowID = &opts.WindowID
	}
	var result struct {
		GroupID int `json:"groupId"`
	}
	ok, err := b.call(ctx, methodGroupsGroup, params, &result)
	if err != nil || !ok {
		return ports.NoID, err
	}
	return result.GroupID, nil
}

// UpdateGroup implements ports.GroupPort
func (b *Bridge) UpdateGroup(ctx context.Context, groupID int, opts ports.UpdateGroupOptions) (*ports.TabGroup, error) {
	params := updateGroupParams{
		GroupID:   groupID,
		Title:     opts.Title,
		Collapsed: opts.Collapsed,
	}
	if opts.Color != nil {
		color := string(*opts.Color)
		params.Color = &color
	}
	var wire wireGroup
	ok, err := b.call(ctx, methodGroupsUpdate, params, &wire)
	if err != nil || !ok {
		return nil, err
	}
	g := wire.port()
	return &g, nil
}

// UngroupTabs implements ports.GroupPort
func (b *Bridge) UngroupTabs(ctx context.Context, tabIDs []int) error {
	if len(tabIDs) == 0 {
		return nil
	}
	_, err := b.call(ctx, methodGroupsUngroup, map[string][]int{"tabIds": tabIDs}, nil)
	return err
}
