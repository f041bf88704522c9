package browser

import (
	"encoding/json"

	"tabspaces/internal/domain"
	"tabspaces/internal/ports"
)

// Method names understood by the extension host
const (
	methodWindowsList   = "windows.list"
	methodWindowsCreate = "windows.create"
	methodWindowsUpdate = "windows.update"
	methodWindowsRemove = "windows.remove"
	methodTabsList      = "tabs.list"
	methodTabsGet       = "tabs.get"
	methodTabsCreate    = "tabs.create"
	methodTabsUpdate    = "tabs.update"
	methodTabsRemove    = "tabs.remove"
	methodGroupsList    = "tabGroups.list"
	methodGroupsGroup   = "tabGroups.group"
	methodGroupsUpdate  = "tabGroups.update"
	methodGroupsUngroup = "tabGroups.ungroup"
)

// frame is one websocket message in either direction. Exactly one of
// Method (core request), Result/Error (host response), Event (host push),
// or Command (forwarded UI command) is populated.
type frame struct {
	ID      int64           `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	Event   string          `json:"event,omitempty"`
	Command json.RawMessage `json:"command,omitempty"`
}

// wireWindow mirrors the platform's window shape
type wireWindow struct {
	ID      int    `json:"id"`
	Type    string `json:"type"`
	Focused bool   `json:"focused"`
	State   string `json:"state"`
	Left    *int   `json:"left,omitempty"`
	Top     *int   `json:"top,omitempty"`
	Width   *int   `json:"width,omitempty"`
	Height  *int   `json:"height,omitempty"`
}

func (w wireWindow) port() ports.Window {
	return ports.Window{
		ID:      w.ID,
		Type:    w.Type,
		Focused: w.Focused,
		State:   domain.WindowState(w.State),
		Left:    w.Left,
		Top:     w.Top,
		Width:   w.Width,
		Height:  w.Height,
	}
}

// wireTab mirrors the platform's tab shape; groupId/openerTabId use -1 for
// absent, as the platform does.
type wireTab struct {
	ID          int    `json:"id"`
	WindowID    int    `json:"windowId"`
	Index       int    `json:"index"`
	URL         string `json:"url"`
	PendingURL  string `json:"pendingUrl,omitempty"`
	Pinned      bool   `json:"pinned"`
	Active      bool   `json:"active"`
	GroupID     *int   `json:"groupId,omitempty"`
	OpenerTabID *int   `json:"openerTabId,omitempty"`
}

func (t wireTab) port() ports.Tab {
	out := ports.Tab{
		ID:          t.ID,
		WindowID:    t.WindowID,
		Index:       t.Index,
		URL:         t.URL,
		PendingURL:  t.PendingURL,
		Pinned:      t.Pinned,
		Active:      t.Active,
		GroupID:     ports.NoID,
		OpenerTabID: ports.NoID,
	}
	if t.GroupID != nil {
		out.GroupID = *t.GroupID
	}
	if t.OpenerTabID != nil {
		out.OpenerTabID = *t.OpenerTabID
	}
	return out
}

// wireGroup mirrors the platform's tab-group shape
type wireGroup struct {
	ID        int    `json:"id"`
	WindowID  int    `json:"windowId"`
	Title     string `json:"title"`
	Color     string `json:"color"`
	Collapsed bool   `json:"collapsed"`
}

func (g wireGroup) port() ports.TabGroup {
	return ports.TabGroup{
		ID:        g.ID,
		WindowID:  g.WindowID,
		Title:     g.Title,
		Color:     domain.GroupColor(g.Color),
		Collapsed: g.Collapsed,
	}
}

// eventPayload is the body of a host event push
type eventPayload struct {
	Tab        *wireTab `json:"tab,omitempty"`
	URLChanged bool     `json:"urlChanged,omitempty"`
	Status     string   `json:"status,omitempty"`
}
