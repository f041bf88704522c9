package domain

// GroupColor is the closed set of native tab-group colors
type GroupColor string

const (
	ColorGrey   GroupColor = "grey"
	ColorBlue   GroupColor = "blue"
	ColorRed    GroupColor = "red"
	ColorYellow GroupColor = "yellow"
	ColorGreen  GroupColor = "green"
	ColorPink   GroupColor = "pink"
	ColorPurple GroupColor = "purple"
	ColorCyan   GroupColor = "cyan"
)

// GroupColors lists every valid native group color
var GroupColors = []GroupColor{
	ColorGrey, ColorBlue, ColorRed, ColorYellow,
	ColorGreen, ColorPink, ColorPurple, ColorCyan,
}

// Workspace is a user-defined named bucket that tabs can belong to,
// rendered as a native tab-group (domain entity)
type Workspace struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// GroupTitle derives the tab-group title for this workspace. The title is
// the sole key used to re-associate native groups with workspaces after a
// restart, so derivation must stay deterministic.
func (w Workspace) GroupTitle() string {
	if w.Icon == "" {
		return w.Name
	}
	return w.Icon + " " + w.Name
}

// ExtensionState is the single persisted process-wide state record.
// Workspace order is display order. ActiveWorkspaceID is the last focused
// workspace; empty means none.
type ExtensionState struct {
	Workspaces        []Workspace `json:"workspaces"`
	ActiveWorkspaceID string      `json:"activeWorkspaceId,omitempty"`
}

// Clone returns a deep copy so callers can mutate without aliasing the
// stored record.
func (s ExtensionState) Clone() ExtensionState {
	out := ExtensionState{ActiveWorkspaceID: s.ActiveWorkspaceID}
	if s.Workspaces != nil {
		out.Workspaces = make([]Workspace, len(s.Workspaces))
		copy(out.Workspaces, s.Workspaces)
	}
	return out
}
