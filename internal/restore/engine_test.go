package restore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabspaces/internal/browsertest"
	"tabspaces/internal/directory"
	"tabspaces/internal/domain"
	"tabspaces/internal/ports"
	"tabspaces/internal/reconcile"
	"tabspaces/internal/scheduler"
	"tabspaces/internal/snapshot"
)

type fixture struct {
	engine  *Engine
	browser *browsertest.FakeBrowser
	store   *browsertest.FakeStore
	dir     *directory.Directory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	browser := browsertest.New()
	store := browsertest.NewStore()
	dir := directory.New(store)
	rec := reconcile.New(browser, dir)
	codec := snapshot.New(browser, dir)
	sched := scheduler.New(scheduler.NewState(), func(ctx context.Context) error {
		return codec.Persist(ctx, store)
	}, time.Hour, time.Hour)
	engine := New(browser, dir, rec, store, sched, time.Millisecond, 50*time.Millisecond)
	return &fixture{engine: engine, browser: browser, store: store, dir: dir}
}

func (f *fixture) saveSnapshot(t *testing.T, snap *domain.Snapshot) {
	t.Helper()
	raw, err := snapshot.Encode(snap)
	require.NoError(t, err)
	require.NoError(t, f.store.SaveRecord(context.Background(), domain.SnapshotKey, raw))
}

func intPtr(v int) *int { return &v }

func TestRun_NoSnapshotIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.browser.AddWindow("normal", true, domain.WindowNormal)

	require.NoError(t, f.engine.Run(context.Background()))
	assert.Equal(t, 0, f.browser.CreatedWindows)
	assert.Equal(t, 0, f.browser.RemovedWindows)
}

func TestRun_CreatesMissingWindowWithStateAndGeometry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	live := f.browser.AddWindow("normal", true, domain.WindowNormal)
	f.browser.AddTab(live.ID, "https://example.com/old", false, true)

	f.saveSnapshot(t, &domain.Snapshot{
		Version: 2,
		Windows: []domain.WindowSnapshot{
			{
				Tabs:    []domain.TabSnapshot{{URL: "https://example.com/a", Active: true}},
				Focused: true,
				State:   domain.WindowNormal,
			},
			{
				Tabs:  []domain.TabSnapshot{{URL: "https://example.com/b", Active: true}},
				State: domain.WindowNormal,
				Left:  intPtr(100), Top: intPtr(50), Width: intPtr(800), Height: intPtr(600),
			},
		},
	})

	require.NoError(t, f.engine.Run(ctx))

	assert.Equal(t, 1, f.browser.CreatedWindows, "exactly one window created")
	assert.Equal(t, 0, f.browser.RemovedWindows)
	assert.Equal(t, 2, f.browser.WindowCount())

	windows, err := f.browser.ListWindows(ctx)
	require.NoError(t, err)
	second := windows[1]
	require.NotNil(t, second.Left)
	assert.Equal(t, 100, *second.Left)
	assert.Equal(t, 600, *second.Height)

	tabs, err := f.browser.ListTabs(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, tabs, 1)
	assert.Equal(t, "https://example.com/b", tabs[0].URL)
}

func TestRun_DestroysSurplusWindows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.browser.AddWindow("normal", true, domain.WindowNormal)
	f.browser.AddTab(first.ID, "https://example.com/keep", false, true)
	for i := 0; i < 2; i++ {
		extra := f.browser.AddWindow("normal", false, domain.WindowNormal)
		f.browser.AddTab(extra.ID, "https://example.com/extra", false, true)
	}

	f.saveSnapshot(t, &domain.Snapshot{
		Version: 2,
		Windows: []domain.WindowSnapshot{
			{
				Tabs:    []domain.TabSnapshot{{URL: "https://example.com/a", Active: true}},
				Focused: true,
				State:   domain.WindowNormal,
			},
		},
	})

	require.NoError(t, f.engine.Run(ctx))

	assert.Equal(t, 0, f.browser.CreatedWindows)
	assert.Equal(t, 2, f.browser.RemovedWindows)
	assert.Equal(t, 1, f.browser.WindowCount())

	tabs, err := f.browser.ListTabs(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, tabs, 1, "old tabs replaced, anchor discarded")
	assert.Equal(t, "https://example.com/a", tabs[0].URL)
	assert.True(t, tabs[0].Active)
}

func TestRun_RestoresTabsInOrderWithPinsAndGroups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ws, err := f.dir.Create(ctx, "Work", "#4285F4", "💼")
	require.NoError(t, err)

	win := f.browser.AddWindow("normal", true, domain.WindowNormal)
	f.browser.AddTab(win.ID, "https://example.com/stale", false, true)

	f.saveSnapshot(t, &domain.Snapshot{
		Version:           2,
		ActiveWorkspaceID: ws.ID,
		Windows: []domain.WindowSnapshot{
			{
				Tabs: []domain.TabSnapshot{
					{URL: "https://example.com/pinned", Pinned: true},
					{URL: "https://example.com/work1", WorkspaceID: ws.ID},
					{URL: "https://example.com/work2", WorkspaceID: ws.ID, Active: true},
					{URL: "chrome://flags"},
					{URL: "https://example.com/loose", WorkspaceID: "deleted-ws"},
				},
				Focused: true,
				State:   domain.WindowNormal,
			},
		},
	})

	require.NoError(t, f.engine.Run(ctx))

	tabs, err := f.browser.ListTabs(ctx, win.ID)
	require.NoError(t, err)
	require.Len(t, tabs, 4, "internal URL dropped, stale tab and anchor removed")

	assert.Equal(t, "https://example.com/pinned", tabs[0].URL)
	assert.True(t, tabs[0].Pinned)
	assert.Equal(t, "https://example.com/work1", tabs[1].URL)
	assert.Equal(t, "https://example.com/work2", tabs[2].URL)
	assert.Equal(t, "https://example.com/loose", tabs[3].URL)

	assert.True(t, tabs[2].Active, "snapshot-flagged tab is active")
	for i, tab := range tabs {
		if i != 2 {
			assert.False(t, tab.Active, "tab %d inactive", i)
		}
	}

	require.NotEqual(t, ports.NoID, tabs[1].GroupID)
	assert.Equal(t, tabs[1].GroupID, tabs[2].GroupID, "workspace tabs share one group")
	group := f.browser.Group(tabs[1].GroupID)
	require.NotNil(t, group)
	assert.Equal(t, "💼 Work", group.Title)
	assert.Equal(t, domain.ColorBlue, group.Color)

	assert.Equal(t, ports.NoID, tabs[3].GroupID, "unknown workspace id stays ungrouped")

	active, err := f.dir.Active(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, ws.ID, active.ID)
}

func TestRun_DerivesActiveWorkspaceWhenStoredIdIsGone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ws, err := f.dir.Create(ctx, "Home", "#34A853", "")
	require.NoError(t, err)

	win := f.browser.AddWindow("normal", true, domain.WindowNormal)
	f.browser.AddTab(win.ID, "https://example.com/stale", false, true)

	f.saveSnapshot(t, &domain.Snapshot{
		Version:           2,
		ActiveWorkspaceID: "gone",
		Windows: []domain.WindowSnapshot{
			{
				Tabs:    []domain.TabSnapshot{{URL: "https://example.com/h", WorkspaceID: ws.ID, Active: true}},
				Focused: true,
				State:   domain.WindowNormal,
			},
		},
	})

	require.NoError(t, f.engine.Run(ctx))

	active, err := f.dir.Active(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, ws.ID, active.ID)
}

func TestRun_AllTabsFilteredFallsBackToBlankTab(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	win := f.browser.AddWindow("normal", true, domain.WindowNormal)
	f.browser.AddTab(win.ID, "https://example.com/stale", false, true)

	// Second window restores from an empty tab list
	f.saveSnapshot(t, &domain.Snapshot{
		Version: 2,
		Windows: []domain.WindowSnapshot{
			{
				Tabs:    []domain.TabSnapshot{{URL: "https://example.com/real", Active: true}},
				Focused: true,
				State:   domain.WindowNormal,
			},
			{
				Tabs:  []domain.TabSnapshot{},
				State: domain.WindowNormal,
			},
		},
	})

	require.NoError(t, f.engine.Run(ctx))

	windows, err := f.browser.ListWindows(ctx)
	require.NoError(t, err)
	require.Len(t, windows, 2)

	tabs, err := f.browser.ListTabs(ctx, windows[1].ID)
	require.NoError(t, err)
	require.NotEmpty(t, tabs)
	assert.Equal(t, domain.BlankTabURL, tabs[len(tabs)-1].URL)
}

func TestRun_ReleasesGuardAndPersistsFreshSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	win := f.browser.AddWindow("normal", true, domain.WindowNormal)
	f.browser.AddTab(win.ID, "https://example.com/stale", false, true)

	f.saveSnapshot(t, &domain.Snapshot{
		Version: 2,
		Windows: []domain.WindowSnapshot{
			{
				Tabs:    []domain.TabSnapshot{{URL: "https://example.com/a", Active: true}},
				Focused: true,
				State:   domain.WindowNormal,
			},
		},
	})
	before := f.store.Saves(domain.SnapshotKey)

	require.NoError(t, f.engine.Run(ctx))

	guard := f.engine.sched.State()
	assert.False(t, guard.Restoring())
	assert.False(t, guard.Paused(), "pause collapses to now, not the original future value")
	assert.Greater(t, f.store.Saves(domain.SnapshotKey), before, "restored state captured immediately")

	raw, err := f.store.LoadRecord(ctx, domain.SnapshotKey)
	require.NoError(t, err)
	fresh := snapshot.Decode(raw)
	require.NotNil(t, fresh)
	require.Len(t, fresh.Windows, 1)
	assert.Equal(t, "https://example.com/a", fresh.Windows[0].Tabs[0].URL)
}
