// Package browsertest provides in-memory implementations of the browser
// and state ports for tests: a full windows/tabs/groups model with the
// same soft-miss semantics as the real bridge, plus mutation counters so
// tests can assert on side-effect volume.
package browsertest

import (
	"context"
	"sort"
	"sync"

	"tabspaces/internal/domain"
	"tabspaces/internal/ports"
)

// FakeBrowser is an in-memory ports.BrowserPort
type FakeBrowser struct {
	mu      sync.Mutex
	nextID  int
	windows map[int]*ports.Window
	tabs    map[int]*ports.Tab
	groups  map[int]*ports.TabGroup

	// Err, when set, is returned by every call (simulates bridge loss)
	Err error

	// GroupMutations counts group-affecting calls (GroupTabs, UpdateGroup,
	// UngroupTabs)
	GroupMutations int
	// CreatedWindows and RemovedWindows count window lifecycle calls
	CreatedWindows int
	RemovedWindows int
}

var _ ports.BrowserPort = (*FakeBrowser)(nil)

// New creates an empty fake browser
func New() *FakeBrowser {
	return &FakeBrowser{
		windows: make(map[int]*ports.Window),
		tabs:    make(map[int]*ports.Tab),
		groups:  make(map[int]*ports.TabGroup),
	}
}

func (f *FakeBrowser) id() int {
	f.nextID++
	return f.nextID
}

// AddWindow seeds a window of the given type
func (f *FakeBrowser) AddWindow(typ string, focused bool, state domain.WindowState) *ports.Window {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &ports.Window{ID: f.id(), Type: typ, Focused: focused, State: state}
	f.windows[w.ID] = w
	return w
}

// AddTab seeds a tab appended to the window's tab strip
func (f *FakeBrowser) AddTab(windowID int, url string, pinned, active bool) *ports.Tab {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &ports.Tab{
		ID:          f.id(),
		WindowID:    windowID,
		Index:       f.tabCountLocked(windowID),
		URL:         url,
		Pinned:      pinned,
		Active:      active,
		GroupID:     ports.NoID,
		OpenerTabID: ports.NoID,
	}
	f.tabs[t.ID] = t
	return t
}

// AddGroup seeds a group and assigns the given tabs to it
func (f *FakeBrowser) AddGroup(windowID int, title string, color domain.GroupColor, tabIDs ...int) *ports.TabGroup {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := &ports.TabGroup{ID: f.id(), WindowID: windowID, Title: title, Color: color}
	f.groups[g.ID] = g
	for _, id := range tabIDs {
		if t, ok := f.tabs[id]; ok {
			t.GroupID = g.ID
		}
	}
	return g
}

// SetOpener records tab's opener
func (f *FakeBrowser) SetOpener(tabID, openerID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tabs[tabID]; ok {
		t.OpenerTabID = openerID
	}
}

// Tab returns a copy of the tab, or nil
func (f *FakeBrowser) Tab(tabID int) *ports.Tab {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tabs[tabID]; ok {
		cp := *t
		return &cp
	}
	return nil
}

// Group returns a copy of the group, or nil
func (f *FakeBrowser) Group(groupID int) *ports.TabGroup {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.groups[groupID]; ok {
		cp := *g
		return &cp
	}
	return nil
}

// WindowCount returns the number of live windows
func (f *FakeBrowser) WindowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.windows)
}

// GroupCount returns the number of live groups
func (f *FakeBrowser) GroupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.groups)
}

// ExpandedGroupIDs returns the ids of non-collapsed groups in a window
func (f *FakeBrowser) ExpandedGroupIDs(windowID int) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int
	for _, g := range f.groups {
		if g.WindowID == windowID && !g.Collapsed {
			out = append(out, g.ID)
		}
	}
	sort.Ints(out)
	return out
}

// ListWindows implements ports.WindowPort
func (f *FakeBrowser) ListWindows(ctx context.Context) ([]ports.Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var out []ports.Window
	for _, w := range f.windows {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateWindow implements ports.WindowPort
func (f *FakeBrowser) CreateWindow(ctx context.Context, opts ports.CreateWindowOptions) (*ports.Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	state := opts.State
	if state == "" {
		state = "normal"
	}
	w := &ports.Window{
		ID:    f.id(),
		Type:  "normal",
		State: state,
		Left:  opts.Left, Top: opts.Top, Width: opts.Width, Height: opts.Height,
	}
	f.windows[w.ID] = w
	f.CreatedWindows++
	// A fresh window always carries one blank tab
	t := &ports.Tab{ID: f.id(), WindowID: w.ID, URL: "about:blank", Active: true, GroupID: ports.NoID, OpenerTabID: ports.NoID}
	f.tabs[t.ID] = t
	return w, nil
}

// UpdateWindow implements ports.WindowPort
func (f *FakeBrowser) UpdateWindow(ctx context.Context, windowID int, opts ports.UpdateWindowOptions) (*ports.Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	w, ok := f.windows[windowID]
	if !ok {
		return nil, nil // soft miss
	}
	if opts.State != nil {
		w.State = *opts.State
	}
	if opts.Focused != nil && *opts.Focused {
		for _, other := range f.windows {
			other.Focused = false
		}
		w.Focused = true
	}
	if opts.Left != nil {
		w.Left = opts.Left
	}
	if opts.Top != nil {
		w.Top = opts.Top
	}
	if opts.Width != nil {
		w.Width = opts.Width
	}
	if opts.Height != nil {
		w.Height = opts.Height
	}
	cp := *w
	return &cp, nil
}

// RemoveWindow implements ports.WindowPort
func (f *FakeBrowser) RemoveWindow(ctx context.Context, windowID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	if _, ok := f.windows[windowID]; !ok {
		return nil // soft miss
	}
	delete(f.windows, windowID)
	f.RemovedWindows++
	for id, t := range f.tabs {
		if t.WindowID == windowID {
			delete(f.tabs, id)
		}
	}
	for id, g := range f.groups {
		if g.WindowID == windowID {
			delete(f.groups, id)
		}
	}
	return nil
}

// ListTabs implements ports.TabPort
func (f *FakeBrowser) ListTabs(ctx context.Context, windowID int) ([]ports.Tab, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var out []ports.Tab
	for _, t := range f.tabs {
		if windowID == ports.NoID || t.WindowID == windowID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WindowID != out[j].WindowID {
			return out[i].WindowID < out[j].WindowID
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

// GetTab implements ports.TabPort
func (f *FakeBrowser) GetTab(ctx context.Context, tabID int) (*ports.Tab, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	t, ok := f.tabs[tabID]
	if !ok {
		return nil, nil // soft miss
	}
	cp := *t
	return &cp, nil
}

// CreateTab implements ports.TabPort
func (f *FakeBrowser) CreateTab(ctx context.Context, opts ports.CreateTabOptions) (*ports.Tab, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	if _, ok := f.windows[opts.WindowID]; !ok {
		return nil, nil // soft miss
	}
	index := opts.Index
	count := f.tabCountLocked(opts.WindowID)
	if index < 0 || index > count {
		index = count
	}
	for _, t := range f.tabs {
		if t.WindowID == opts.WindowID && t.Index >= index {
			t.Index++
		}
	}
	t := &ports.Tab{
		ID:          f.id(),
		WindowID:    opts.WindowID,
		Index:       index,
		URL:         opts.URL,
		Pinned:      opts.Pinned,
		Active:      opts.Active,
		GroupID:     ports.NoID,
		OpenerTabID: ports.NoID,
	}
	if t.Active {
		f.deactivateOthersLocked(t.WindowID, t.ID)
	}
	f.tabs[t.ID] = t
	cp := *t
	return &cp, nil
}

// UpdateTab implements ports.TabPort
func (f *FakeBrowser) UpdateTab(ctx context.Context, tabID int, opts ports.UpdateTabOptions) (*ports.Tab, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	t, ok := f.tabs[tabID]
	if !ok {
		return nil, nil // soft miss
	}
	if opts.URL != nil {
		t.URL = *opts.URL
	}
	if opts.Pinned != nil {
		t.Pinned = *opts.Pinned
	}
	if opts.Active != nil && *opts.Active {
		f.deactivateOthersLocked(t.WindowID, t.ID)
		t.Active = true
	}
	cp := *t
	return &cp, nil
}

// RemoveTabs implements ports.TabPort
func (f *FakeBrowser) RemoveTabs(ctx context.Context, tabIDs []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	touched := map[int]bool{}
	for _, id := range tabIDs {
		if t, ok := f.tabs[id]; ok {
			touched[t.WindowID] = true
			delete(f.tabs, id)
		}
	}
	for windowID := range touched {
		f.reindexLocked(windowID)
	}
	return nil
}

// ListGroups implements ports.GroupPort
func (f *FakeBrowser) ListGroups(ctx context.Context, windowID int) ([]ports.TabGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var out []ports.TabGroup
	for _, g := range f.groups {
		if windowID == ports.NoID || g.WindowID == windowID {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GroupTabs implements ports.GroupPort
func (f *FakeBrowser) GroupTabs(ctx context.Context, opts ports.GroupTabsOptions) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return ports.NoID, f.Err
	}
	f.GroupMutations++

	groupID := opts.GroupID
	if groupID == ports.NoID {
		g := &ports.TabGroup{ID: f.id(), WindowID: opts.WindowID}
		f.groups[g.ID] = g
		groupID = g.ID
	} else if _, ok := f.groups[groupID]; !ok {
		return ports.NoID, nil // soft miss
	}
	for _, id := range opts.TabIDs {
		if t, ok := f.tabs[id]; ok {
			t.GroupID = groupID
		}
	}
	f.collectEmptyGroupsLocked()
	return groupID, nil
}

// UpdateGroup implements ports.GroupPort
func (f *FakeBrowser) UpdateGroup(ctx context.Context, groupID int, opts ports.UpdateGroupOptions) (*ports.TabGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	f.GroupMutations++
	g, ok := f.groups[groupID]
	if !ok {
		return nil, nil // soft miss
	}
	if opts.Title != nil {
		g.Title = *opts.Title
	}
	if opts.Color != nil {
		g.Color = *opts.Color
	}
	if opts.Collapsed != nil {
		g.Collapsed = *opts.Collapsed
	}
	cp := *g
	return &cp, nil
}

// UngroupTabs implements ports.GroupPort
func (f *FakeBrowser) UngroupTabs(ctx context.Context, tabIDs []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.GroupMutations++
	for _, id := range tabIDs {
		if t, ok := f.tabs[id]; ok {
			t.GroupID = ports.NoID
		}
	}
	f.collectEmptyGroupsLocked()
	return nil
}

func (f *FakeBrowser) tabCountLocked(windowID int) int {
	n := 0
	for _, t := range f.tabs {
		if t.WindowID == windowID {
			n++
		}
	}
	return n
}

func (f *FakeBrowser) reindexLocked(windowID int) {
	var ids []int
	for id, t := range f.tabs {
		if t.WindowID == windowID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return f.tabs[ids[i]].Index < f.tabs[ids[j]].Index })
	for i, id := range ids {
		f.tabs[id].Index = i
	}
}

func (f *FakeBrowser) deactivateOthersLocked(windowID, keepTabID int) {
	for _, t := range f.tabs {
		if t.WindowID == windowID && t.ID != keepTabID {
			t.Active = false
		}
	}
}

// Groups with no member tabs disappear, as the platform does
func (f *FakeBrowser) collectEmptyGroupsLocked() {
	members := map[int]int{}
	for _, t := range f.tabs {
		if t.GroupID != ports.NoID {
			members[t.GroupID]++
		}
	}
	for id := range f.groups {
		if members[id] == 0 {
			delete(f.groups, id)
		}
	}
}
