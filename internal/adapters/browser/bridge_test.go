package browser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabspaces/internal/browsertest"
	"tabspaces/internal/commands"
	"tabspaces/internal/directory"
	"tabspaces/internal/domain"
	"tabspaces/internal/events"
	"tabspaces/internal/ports"
	"tabspaces/internal/reconcile"
)

// dialHost connects a fake extension host to the bridge
func dialHost(t *testing.T, b *Bridge) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.serveConn(context.Background(), w, r)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/bridge"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, b.Connected, time.Second, 5*time.Millisecond)
	return conn
}

// answer reads one request frame and replies with the given result or
// error. Runs on the host side of the test connection; failures surface as
// timeouts in the caller.
func answer(conn *websocket.Conn, wantMethod string, result any, errMsg string) {
	var req frame
	if err := conn.ReadJSON(&req); err != nil || req.Method != wantMethod {
		return
	}
	resp := frame{ID: req.ID, Error: errMsg}
	if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			return
		}
		resp.Result = raw
	}
	_ = conn.WriteJSON(resp)
}

func TestGetTab_RoundTrip(t *testing.T) {
	b := NewBridge("127.0.0.1:0")
	conn := dialHost(t, b)

	go answer(conn, methodTabsGet, wireTab{
		ID:       4,
		WindowID: 1,
		Index:    2,
		URL:      "https://example.com",
		Active:   true,
	}, "")

	tab, err := b.GetTab(context.Background(), 4)
	require.NoError(t, err)
	require.NotNil(t, tab)
	assert.Equal(t, 4, tab.ID)
	assert.Equal(t, "https://example.com", tab.URL)
	assert.Equal(t, ports.NoID, tab.GroupID, "absent groupId maps to NoID")
	assert.Equal(t, ports.NoID, tab.OpenerTabID)
}

func TestGetTab_PlatformRejectionIsSoftMiss(t *testing.T) {
	b := NewBridge("127.0.0.1:0")
	conn := dialHost(t, b)

	go answer(conn, methodTabsGet, nil, "No tab with id: 4.")

	tab, err := b.GetTab(context.Background(), 4)
	require.NoError(t, err)
	assert.Nil(t, tab)
}

func TestCall_NoConnectionIsErrNoBrowser(t *testing.T) {
	b := NewBridge("127.0.0.1:0")

	_, err := b.ListWindows(context.Background())
	require.ErrorIs(t, err, domain.ErrNoBrowser)
}

func TestCall_DisconnectFailsInFlight(t *testing.T) {
	b := NewBridge("127.0.0.1:0")
	conn := dialHost(t, b)

	done := make(chan error, 1)
	go func() {
		_, err := b.ListWindows(context.Background())
		done <- err
	}()

	// Swallow the request, then drop the connection
	var req frame
	require.NoError(t, conn.ReadJSON(&req))
	require.NoError(t, conn.Close())

	select {
	case err := <-done:
		require.ErrorIs(t, err, domain.ErrNoBrowser)
	case <-time.After(time.Second):
		t.Fatal("in-flight call not failed on disconnect")
	}
}

func TestGroupTabs_ResultAndParamShape(t *testing.T) {
	b := NewBridge("127.0.0.1:0")
	conn := dialHost(t, b)

	go func() {
		var req frame
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		var params groupTabsParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return
		}
		// Fresh group: windowId present, groupId absent
		if params.GroupID != nil || params.WindowID == nil {
			_ = conn.WriteJSON(frame{ID: req.ID, Error: "bad params"})
			return
		}
		_ = conn.WriteJSON(frame{ID: req.ID, Result: json.RawMessage(`{"groupId":77}`)})
	}()

	groupID, err := b.GroupTabs(context.Background(), ports.GroupTabsOptions{
		TabIDs:   []int{1, 2},
		GroupID:  ports.NoID,
		WindowID: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 77, groupID)
}

func TestEventPush_ReachesHandler(t *testing.T) {
	b := NewBridge("127.0.0.1:0")

	got := make(chan events.Event, 1)
	b.SetEventHandler(func(ctx context.Context, ev events.Event) { got <- ev })

	conn := dialHost(t, b)
	require.NoError(t, conn.WriteJSON(frame{
		Event:  string(events.TabCreated),
		Params: json.RawMessage(`{"tab":{"id":9,"windowId":1,"url":"https://example.com","openerTabId":3}}`),
	}))

	select {
	case ev := <-got:
		assert.Equal(t, events.TabCreated, ev.Type)
		require.NotNil(t, ev.Tab)
		assert.Equal(t, 9, ev.Tab.ID)
		assert.Equal(t, 3, ev.Tab.OpenerTabID)
	case <-time.After(time.Second):
		t.Fatal("event never reached handler")
	}
}

func TestCommandFrame_DispatchedAndAnswered(t *testing.T) {
	b := NewBridge("127.0.0.1:0")

	fake := browsertest.New()
	dir := directory.New(browsertest.NewStore())
	b.SetCommandRegistry(commands.NewRegistry(dir, reconcile.New(fake, dir), fake))

	conn := dialHost(t, b)
	require.NoError(t, conn.WriteJSON(frame{
		ID:      9,
		Command: json.RawMessage(`{"type":"CREATE_WORKSPACE","name":"Work","color":"#4285F4"}`),
	}))

	var resp frame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, int64(9), resp.ID)

	var cmdResp commands.Response
	require.NoError(t, json.Unmarshal(resp.Result, &cmdResp))
	require.True(t, cmdResp.OK, cmdResp.Error)

	var ws domain.Workspace
	require.NoError(t, json.Unmarshal(cmdResp.Data, &ws))
	assert.Equal(t, "Work", ws.Name)
}
