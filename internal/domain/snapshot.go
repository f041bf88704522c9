package domain

// SnapshotVersion is the current session snapshot schema version
const SnapshotVersion = 2

// SnapshotKey is the storage key for the session snapshot. The "V1" suffix
// is historical and does not track the schema version; the payload carries
// its own version field. Kept verbatim for backward compatibility.
const SnapshotKey = "workspaceSessionSnapshotV1"

// StateKey is the storage key for the persisted extension state record
const StateKey = "extensionState"

// WindowState mirrors the platform's window display states
type WindowState string

const (
	WindowNormal     WindowState = "normal"
	WindowMaximized  WindowState = "maximized"
	WindowFullscreen WindowState = "fullscreen"
	WindowMinimized  WindowState = "minimized"
)

// ValidWindowState reports whether s is one of the known display states
func ValidWindowState(s WindowState) bool {
	switch s {
	case WindowNormal, WindowMaximized, WindowFullscreen, WindowMinimized:
		return true
	}
	return false
}

// TabSnapshot is one captured tab. WorkspaceID is empty for ungrouped tabs.
type TabSnapshot struct {
	URL         string `json:"url"`
	Pinned      bool   `json:"pinned"`
	WorkspaceID string `json:"workspaceId,omitempty"`
	Active      bool   `json:"active"`
}

// WindowSnapshot is one captured window. Geometry is only meaningful when
// State is normal; maximized/fullscreen windows carry no bounds.
type WindowSnapshot struct {
	Tabs    []TabSnapshot `json:"tabs"`
	Focused bool          `json:"focused"`
	State   WindowState   `json:"state"`
	Left    *int          `json:"left,omitempty"`
	Top     *int          `json:"top,omitempty"`
	Width   *int          `json:"width,omitempty"`
	Height  *int          `json:"height,omitempty"`
}

// Snapshot is the current (v2) session snapshot: a point-in-time capture of
// all normal windows sufficient to reconstruct the browser layout.
type Snapshot struct {
	Version           int              `json:"version"`
	SavedAt           int64            `json:"savedAt"`
	ActiveWorkspaceID string           `json:"activeWorkspaceId,omitempty"`
	Windows           []WindowSnapshot `json:"windows"`
}

// SnapshotV1 is the legacy flat per-workspace snapshot. Read-only; upgraded
// on load into a single synthetic v2 window.
type SnapshotV1 struct {
	Version           int                `json:"version"`
	SavedAt           int64              `json:"savedAt"`
	ActiveWorkspaceID string             `json:"activeWorkspaceId,omitempty"`
	Workspaces        []WorkspaceEntryV1 `json:"workspaces"`
}

// WorkspaceEntryV1 is one legacy per-workspace tab list
type WorkspaceEntryV1 struct {
	WorkspaceID    string   `json:"workspaceId"`
	TabURLs        []string `json:"tabUrls"`
	ActiveTabIndex *int     `json:"activeTabIndex"`
}
