// Package commands is the UI-facing command bridge: tagged requests from
// the options/popup UI dispatched through a handler registry. Handler
// errors are serialized into the response instead of crossing the channel
// as faults.
package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"tabspaces/internal/directory"
	"tabspaces/internal/domain"
	"tabspaces/internal/logging"
	"tabspaces/internal/ports"
	"tabspaces/internal/reconcile"
)

// Command tags
const (
	ActivateWorkspace  = "ACTIVATE_WORKSPACE"
	UngroupWorkspace   = "UNGROUP_WORKSPACE_TABS"
	InitWorkspaceGroup = "INIT_WORKSPACE_GROUP"
	ListWorkspaces     = "LIST_WORKSPACES"
	CreateWorkspace    = "CREATE_WORKSPACE"
	UpdateWorkspace    = "UPDATE_WORKSPACE"
	DeleteWorkspace    = "DELETE_WORKSPACE"
)

// Request is one UI command
type Request struct {
	Type           string `json:"type"`
	WorkspaceID    string `json:"workspaceId,omitempty"`
	MoveCurrentTab *bool  `json:"moveCurrentTab,omitempty"`
	Name           string `json:"name,omitempty"`
	Color          string `json:"color,omitempty"`
	Icon           string `json:"icon,omitempty"`
}

// Response is the serialized command result
type Response struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler executes one command and returns optional response data
type Handler func(ctx context.Context, req Request) (any, error)

// Registry dispatches requests by command tag
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry builds the registry with all command handlers wired
func NewRegistry(dir *directory.Directory, rec *reconcile.Reconciler, browser ports.BrowserPort) *Registry {
	h := &handlers{dir: dir, rec: rec, browser: browser}
	return &Registry{handlers: map[string]Handler{
		ActivateWorkspace:  h.activateWorkspace,
		UngroupWorkspace:   h.ungroupWorkspace,
		InitWorkspaceGroup: h.initWorkspaceGroup,
		ListWorkspaces:     h.listWorkspaces,
		CreateWorkspace:    h.createWorkspace,
		UpdateWorkspace:    h.updateWorkspace,
		DeleteWorkspace:    h.deleteWorkspace,
	}}
}

// Dispatch runs the handler for req. Errors never propagate: they come
// back as a structured failure response.
func (r *Registry) Dispatch(ctx context.Context, req Request) Response {
	handler, ok := r.handlers[req.Type]
	if !ok {
		return Response{OK: false, Error: fmt.Sprintf("unknown command: %s", req.Type)}
	}

	data, err := handler(ctx, req)
	if err != nil {
		logging.Logger.Warn("command failed", "type", req.Type, "error", err)
		return Response{OK: false, Error: err.Error()}
	}

	resp := Response{OK: true}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			logging.Logger.Error("failed to encode command response", "type", req.Type, "error", err)
			return Response{OK: false, Error: "failed to encode response"}
		}
		resp.Data = raw
	}
	return resp
}

type handlers struct {
	dir     *directory.Directory
	rec     *reconcile.Reconciler
	browser ports.BrowserPort
}

// activateWorkspace focuses a workspace. By default the active tab moves
// into the workspace's group (created if needed); with moveCurrentTab false
// only an existing group is expanded and nothing moves.
func (h *handlers) activateWorkspace(ctx context.Context, req Request) (any, error) {
	ws, err := h.dir.Get(ctx, req.WorkspaceID)
	if err != nil {
		return nil, err
	}

	windowID, activeTabID, err := h.focusedWindow(ctx)
	if err != nil {
		return nil, err
	}

	moveCurrentTab := req.MoveCurrentTab == nil || *req.MoveCurrentTab
	if moveCurrentTab && activeTabID != ports.NoID {
		if err := h.rec.AddTabToWorkspace(ctx, activeTabID, windowID, *ws); err != nil {
			return nil, err
		}
	} else {
		if err := h.rec.ExpandGroup(ctx, *ws, windowID); err != nil {
			return nil, err
		}
	}

	if err := h.dir.SetActive(ctx, ws.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (h *handlers) ungroupWorkspace(ctx context.Context, req Request) (any, error) {
	ws, err := h.dir.Get(ctx, req.WorkspaceID)
	if err != nil {
		return nil, err
	}
	return nil, h.rec.UngroupWorkspaceTabs(ctx, *ws)
}

// initWorkspaceGroup re-syncs the workspace's group in the focused window
// so the platform's own "add tab to group" UI reflects a create/edit
// immediately.
func (h *handlers) initWorkspaceGroup(ctx context.Context, req Request) (any, error) {
	ws, err := h.dir.Get(ctx, req.WorkspaceID)
	if err != nil {
		return nil, err
	}
	windowID, _, err := h.focusedWindow(ctx)
	if err != nil {
		return nil, err
	}
	_, err = h.rec.EnsureGroup(ctx, *ws, windowID)
	return nil, err
}

func (h *handlers) listWorkspaces(ctx context.Context, req Request) (any, error) {
	workspaces, activeID, err := h.dir.List(ctx)
	if err != nil {
		return nil, err
	}
	return domain.ExtensionState{Workspaces: workspaces, ActiveWorkspaceID: activeID}, nil
}

func (h *handlers) createWorkspace(ctx context.Context, req Request) (any, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("workspace name is required")
	}
	return h.dir.Create(ctx, req.Name, req.Color, req.Icon)
}

func (h *handlers) updateWorkspace(ctx context.Context, req Request) (any, error) {
	return h.dir.Update(ctx, req.WorkspaceID, req.Name, req.Color, req.Icon)
}

// deleteWorkspace ungroups the workspace's tabs everywhere, then removes
// it from the directory. The tabs themselves stay open.
func (h *handlers) deleteWorkspace(ctx context.Context, req Request) (any, error) {
	ws, err := h.dir.Get(ctx, req.WorkspaceID)
	if err != nil {
		return nil, err
	}
	if err := h.rec.UngroupWorkspaceTabs(ctx, *ws); err != nil {
		logging.Logger.Warn("failed to ungroup tabs before delete", "workspace_id", ws.ID, "error", err)
	}
	return nil, h.dir.Delete(ctx, ws.ID)
}

// focusedWindow returns the focused normal window and its active tab
func (h *handlers) focusedWindow(ctx context.Context) (int, int, error) {
	windows, err := h.browser.ListWindows(ctx)
	if err != nil {
		return ports.NoID, ports.NoID, err
	}
	windowID := ports.NoID
	for _, w := range windows {
		if w.Type != "normal" {
			continue
		}
		if windowID == ports.NoID || w.Focused {
			windowID = w.ID
		}
		if w.Focused {
			break
		}
	}
	if windowID == ports.NoID {
		return ports.NoID, ports.NoID, domain.ErrNoWindow
	}

	tabs, err := h.browser.ListTabs(ctx, windowID)
	if err != nil {
		return ports.NoID, ports.NoID, err
	}
	activeTabID := ports.NoID
	for _, t := range tabs {
		if t.Active {
			activeTabID = t.ID
			break
		}
	}
	return windowID, activeTabID, nil
}
