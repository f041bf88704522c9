package ports

import (
	"context"

	"tabspaces/internal/domain"
)

// NoID marks an absent window/tab/group id
const NoID = -1

// Window is a native browser window as reported by the platform
type Window struct {
	ID      int
	Type    string // "normal", "popup", "devtools", ...
	Focused bool
	State   domain.WindowState
	Left    *int
	Top     *int
	Width   *int
	Height  *int
}

// Tab is a native browser tab. GroupID and OpenerTabID are NoID when absent.
type Tab struct {
	ID          int
	WindowID    int
	Index       int
	URL         string
	PendingURL  string
	Pinned      bool
	Active      bool
	GroupID     int
	OpenerTabID int
}

// TabGroup is a native tab-group
type TabGroup struct {
	ID        int
	WindowID  int
	Title     string
	Color     domain.GroupColor
	Collapsed bool
}

// CreateWindowOptions controls window creation
type CreateWindowOptions struct {
	State  domain.WindowState
	Left   *int
	Top    *int
	Width  *int
	Height *int
}

// UpdateWindowOptions controls window mutation; nil fields are untouched
type UpdateWindowOptions struct {
	State   *domain.WindowState
	Focused *bool
	Left    *int
	Top     *int
	Width   *int
	Height  *int
}

// CreateTabOptions controls tab creation. Index < 0 appends.
type CreateTabOptions struct {
	WindowID int
	URL      string
	Index    int
	Pinned   bool
	Active   bool
}

// UpdateTabOptions controls tab mutation; nil fields are untouched
type UpdateTabOptions struct {
	URL    *string
	Pinned *bool
	Active *bool
}

// UpdateGroupOptions controls group mutation; nil fields are untouched
type UpdateGroupOptions struct {
	Title     *string
	Color     *domain.GroupColor
	Collapsed *bool
}

// GroupTabsOptions groups tabs either into an existing group (GroupID set)
// or into a fresh group in WindowID.
type GroupTabsOptions struct {
	TabIDs   []int
	GroupID  int // NoID to create a new group
	WindowID int // target window for a new group
}

// WindowPort manipulates native windows.
//
// Soft-miss contract (applies to every browser port): a platform-reported
// failure caused by racing the user, such as the target window/tab/group no
// longer existing, resolves to a zero value and a nil error. A non-nil
// error means the capability itself is unavailable (bridge down), not a
// lost race.
type WindowPort interface {
	ListWindows(ctx context.Context) ([]Window, error)
	CreateWindow(ctx context.Context, opts CreateWindowOptions) (*Window, error)
	UpdateWindow(ctx context.Context, windowID int, opts UpdateWindowOptions) (*Window, error)
	RemoveWindow(ctx context.Context, windowID int) error
}

// TabPort manipulates native tabs
type TabPort interface {
	ListTabs(ctx context.Context, windowID int) ([]Tab, error)
	GetTab(ctx context.Context, tabID int) (*Tab, error)
	CreateTab(ctx context.Context, opts CreateTabOptions) (*Tab, error)
	UpdateTab(ctx context.Context, tabID int, opts UpdateTabOptions) (*Tab, error)
	RemoveTabs(ctx context.Context, tabIDs []int) error
}

// GroupPort manipulates native tab-groups. ListGroups with windowID == NoID
// enumerates groups across all windows.
type GroupPort interface {
	ListGroups(ctx context.Context, windowID int) ([]TabGroup, error)
	GroupTabs(ctx context.Context, opts GroupTabsOptions) (int, error)
	UpdateGroup(ctx context.Context, groupID int, opts UpdateGroupOptions) (*TabGroup, error)
	UngroupTabs(ctx context.Context, tabIDs []int) error
}

// BrowserPort is the composite platform capability interface
type BrowserPort interface {
	WindowPort
	TabPort
	GroupPort
}
