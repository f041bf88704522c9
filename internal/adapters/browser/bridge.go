// Package browser implements the browser ports over a websocket bridge to
// the extension host. The core is the server; the extension connects and
// stays connected, answering port calls and pushing lifecycle events and
// forwarded UI commands.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tabspaces/internal/commands"
	"tabspaces/internal/domain"
	"tabspaces/internal/events"
	"tabspaces/internal/logging"
	"tabspaces/internal/ports"
)

const (
	callTimeout    = 15 * time.Second
	writeWait      = 10 * time.Second
	shutdownGrace  = 5 * time.Second
	maxMessageSize = 4 << 20
)

// EventHandler consumes one lifecycle event pushed by the extension host
type EventHandler func(ctx context.Context, ev events.Event)

// Bridge is the websocket endpoint the extension host connects to. It
// implements ports.BrowserPort by round-tripping request frames, routes
// pushed events to the event handler, and dispatches forwarded UI commands
// through the command registry.
type Bridge struct {
	addr     string
	upgrader websocket.Upgrader

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[int64]chan frame
	nextID  int64

	// writeMu serializes frame writes; gorilla permits one writer at a time
	writeMu sync.Mutex

	registry *commands.Registry
	onEvent  EventHandler
}

// Verify interface compliance at compile time
var _ ports.BrowserPort = (*Bridge)(nil)

// NewBridge creates a Bridge listening on addr once Run is called
func NewBridge(addr string) *Bridge {
	return &Bridge{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Loopback-only endpoint; the extension connects without an Origin
			// the checker would accept
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pending: make(map[int64]chan frame),
	}
}

// SetCommandRegistry wires the UI command dispatcher. Must be called before
// Run.
func (b *Bridge) SetCommandRegistry(r *commands.Registry) {
	b.registry = r
}

// SetEventHandler wires the lifecycle event consumer. Must be called before
// Run.
func (b *Bridge) SetEventHandler(fn EventHandler) {
	b.onEvent = fn
}

// Connected reports whether an extension host is currently attached
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// Run serves the websocket endpoint until ctx is cancelled
func (b *Bridge) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/bridge", func(w http.ResponseWriter, r *http.Request) {
		b.serveConn(ctx, w, r)
	})

	server := &http.Server{Addr: b.addr, Handler: mux}

	errCh := make(chan error, 1)
	logging.Go("bridge-listener", func() error {
		logging.Logger.Info("bridge listening", "addr", b.addr)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return err
		}
		errCh <- nil
		return nil
	})

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Logger.Warn("bridge shutdown", "error", err)
		}
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// serveConn upgrades one extension connection and pumps its frames. A new
// connection replaces the previous one; the extension host reconnects after
// a service-worker restart.
func (b *Bridge) serveConn(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Logger.Warn("bridge upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	b.attach(conn)
	logging.Logger.Info("extension connected", "remote", conn.RemoteAddr().String())

	defer func() {
		b.detach(conn)
		_ = conn.Close()
		logging.Logger.Info("extension disconnected")
	}()

	for {
		var fr frame
		if err := conn.ReadJSON(&fr); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Logger.Warn("bridge read failed", "error", err)
			}
			return
		}
		b.handleFrame(ctx, conn, fr)
	}
}

func (b *Bridge) handleFrame(ctx context.Context, conn *websocket.Conn, fr frame) {
	switch {
	case fr.Event != "":
		b.handleEvent(ctx, fr)
	case fr.Command != nil:
		b.handleCommand(ctx, conn, fr)
	case fr.ID != 0:
		b.deliver(fr)
	default:
		logging.Logger.Debug("ignoring unrecognized frame")
	}
}

// deliver routes a response frame to its waiting caller
func (b *Bridge) deliver(fr frame) {
	b.mu.Lock()
	ch, ok := b.pending[fr.ID]
	if ok {
		delete(b.pending, fr.ID)
	}
	b.mu.Unlock()
	if !ok {
		logging.Logger.Debug("response for unknown call", "id", fr.ID)
		return
	}
	ch <- fr
}

func (b *Bridge) handleEvent(ctx context.Context, fr frame) {
	if b.onEvent == nil {
		return
	}

	ev := events.Event{Type: events.Type(fr.Event)}
	if len(fr.Params) > 0 {
		var payload eventPayload
		if err := json.Unmarshal(fr.Params, &payload); err != nil {
			logging.Logger.Warn("malformed event payload", "event", fr.Event, "error", err)
			return
		}
		if payload.Tab != nil {
			tab := payload.Tab.port()
			ev.Tab = &tab
		}
		ev.URLChanged = payload.URLChanged
		ev.Status = payload.Status
	}
	b.onEvent(ctx, ev)
}

// handleCommand dispatches a forwarded UI command off the read pump so a
// slow handler cannot stall event delivery.
func (b *Bridge) handleCommand(ctx context.Context, conn *websocket.Conn, fr frame) {
	if b.registry == nil {
		return
	}

	var req commands.Request
	if err := json.Unmarshal(fr.Command, &req); err != nil {
		logging.Logger.Warn("malformed command frame", "error", err)
		b.writeResponse(conn, fr.ID, commands.Response{OK: false, Error: "malformed command"})
		return
	}

	logging.Go(fmt.Sprintf("command-%s", req.Type), func() error {
		resp := b.registry.Dispatch(ctx, req)
		b.writeResponse(conn, fr.ID, resp)
		return nil
	})
}

func (b *Bridge) writeResponse(conn *websocket.Conn, id int64, resp commands.Response) {
	raw, err := json.Marshal(resp)
	if err != nil {
		logging.Logger.Error("failed to encode command response", "error", err)
		return
	}
	if err := b.write(conn, frame{ID: id, Result: raw}); err != nil {
		logging.Logger.Warn("failed to write command response", "error", err)
	}
}

func (b *Bridge) write(conn *websocket.Conn, fr frame) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(fr)
}

func (b *Bridge) attach(conn *websocket.Conn) {
	b.mu.Lock()
	old := b.conn
	b.conn = conn
	b.failPendingLocked()
	b.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
}

func (b *Bridge) detach(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == conn {
		b.conn = nil
		b.failPendingLocked()
	}
}

// failPendingLocked aborts every in-flight call; their connection is gone
func (b *Bridge) failPendingLocked() {
	for id, ch := range b.pending {
		delete(b.pending, id)
		ch <- frame{ID: id, Error: "connection lost"}
	}
}

// call round-trips one request frame. It returns false with a nil error
// when the host rejected the call: by the soft-miss contract a platform
// rejection is a lost race against the user, not a failure. A non-nil
// error means the bridge itself is unavailable.
func (b *Bridge) call(ctx context.Context, method string, params any, out any) (bool, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return false, fmt.Errorf("failed to encode %s params: %w", method, err)
	}

	b.mu.Lock()
	conn := b.conn
	if conn == nil {
		b.mu.Unlock()
		return false, fmt.Errorf("%s: %w", method, domain.ErrNoBrowser)
	}
	b.nextID++
	id := b.nextID
	ch := make(chan frame, 1)
	b.pending[id] = ch
	b.mu.Unlock()

	if err := b.write(conn, frame{ID: id, Method: method, Params: raw}); err != nil {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
		return false, fmt.Errorf("failed to send %s: %w", method, err)
	}

	select {
	case fr := <-ch:
		if fr.Error != "" {
			if fr.Error == "connection lost" {
				return false, fmt.Errorf("%s: %w", method, domain.ErrNoBrowser)
			}
			logging.Logger.Debug("platform rejected call", "method", method, "error", fr.Error)
			return false, nil
		}
		if out != nil && len(fr.Result) > 0 {
			if err := json.Unmarshal(fr.Result, out); err != nil {
				return false, fmt.Errorf("failed to decode %s result: %w", method, err)
			}
		}
		return true, nil
	case <-time.After(callTimeout):
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
		return false, fmt.Errorf("%s: timed out: %w", method, domain.ErrNoBrowser)
	case <-ctx.Done():
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
		return false, ctx.Err()
	}
}
