package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabspaces/internal/browsertest"
	"tabspaces/internal/directory"
	"tabspaces/internal/domain"
	"tabspaces/internal/ports"
)

func newFixture(t *testing.T) (*Reconciler, *browsertest.FakeBrowser, *directory.Directory) {
	t.Helper()
	browser := browsertest.New()
	dir := directory.New(browsertest.NewStore())
	return New(browser, dir), browser, dir
}

func TestEnsureGroup_CreatesGroupAroundActiveTab(t *testing.T) {
	rec, browser, _ := newFixture(t)
	ctx := context.Background()

	win := browser.AddWindow("normal", true, domain.WindowNormal)
	browser.AddTab(win.ID, "https://example.com/a", false, false)
	active := browser.AddTab(win.ID, "https://example.com/b", false, true)

	ws := domain.Workspace{ID: "ws1", Name: "Work", Color: "#4285F4", Icon: "💼"}
	groupID, err := rec.EnsureGroup(ctx, ws, win.ID)
	require.NoError(t, err)
	require.NotEqual(t, ports.NoID, groupID)

	group := browser.Group(groupID)
	require.NotNil(t, group)
	assert.Equal(t, "💼 Work", group.Title)
	assert.Equal(t, domain.ColorBlue, group.Color)
	assert.False(t, group.Collapsed)
	assert.Equal(t, groupID, browser.Tab(active.ID).GroupID, "active tab is the base tab")
}

func TestEnsureGroup_IsIdempotent(t *testing.T) {
	rec, browser, _ := newFixture(t)
	ctx := context.Background()

	win := browser.AddWindow("normal", true, domain.WindowNormal)
	browser.AddTab(win.ID, "https://example.com", false, true)

	ws := domain.Workspace{ID: "ws1", Name: "Work", Color: "#4285F4"}
	first, err := rec.EnsureGroup(ctx, ws, win.ID)
	require.NoError(t, err)
	second, err := rec.EnsureGroup(ctx, ws, win.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second, "no duplicate group created")
	assert.Equal(t, 1, browser.GroupCount())
	assert.Equal(t, []int{first}, browser.ExpandedGroupIDs(win.ID), "exactly one expanded group")
}

func TestEnsureGroup_SelfHealsColor(t *testing.T) {
	rec, browser, _ := newFixture(t)
	ctx := context.Background()

	win := browser.AddWindow("normal", true, domain.WindowNormal)
	tab := browser.AddTab(win.ID, "https://example.com", false, true)
	group := browser.AddGroup(win.ID, "Work", domain.ColorRed, tab.ID)

	ws := domain.Workspace{ID: "ws1", Name: "Work", Color: "#4285F4"}
	groupID, err := rec.EnsureGroup(ctx, ws, win.ID)
	require.NoError(t, err)

	assert.Equal(t, group.ID, groupID)
	assert.Equal(t, domain.ColorBlue, browser.Group(groupID).Color)
}

func TestEnsureGroup_CollapsesSiblingGroups(t *testing.T) {
	rec, browser, _ := newFixture(t)
	ctx := context.Background()

	win := browser.AddWindow("normal", true, domain.WindowNormal)
	otherTab := browser.AddTab(win.ID, "https://example.com/other", false, false)
	browser.AddGroup(win.ID, "🏠 Home", domain.ColorGreen, otherTab.ID)
	browser.AddTab(win.ID, "https://example.com", false, true)

	ws := domain.Workspace{ID: "ws1", Name: "Work", Color: "#4285F4", Icon: "💼"}
	groupID, err := rec.EnsureGroup(ctx, ws, win.ID)
	require.NoError(t, err)

	assert.Equal(t, []int{groupID}, browser.ExpandedGroupIDs(win.ID))
}

func TestEnsureGroup_CreatesBlankBaseTabWhenNoActiveTab(t *testing.T) {
	rec, browser, _ := newFixture(t)
	ctx := context.Background()

	win := browser.AddWindow("normal", true, domain.WindowNormal)

	ws := domain.Workspace{ID: "ws1", Name: "Work", Color: "#4285F4"}
	groupID, err := rec.EnsureGroup(ctx, ws, win.ID)
	require.NoError(t, err)
	require.NotEqual(t, ports.NoID, groupID)

	tabs, err := browser.ListTabs(ctx, win.ID)
	require.NoError(t, err)
	require.Len(t, tabs, 1)
	assert.Equal(t, domain.BlankTabURL, tabs[0].URL)
	assert.Equal(t, groupID, tabs[0].GroupID)
}

func TestEnsureGroup_MissingWindowIsSoftMiss(t *testing.T) {
	rec, _, _ := newFixture(t)

	ws := domain.Workspace{ID: "ws1", Name: "Work", Color: "#4285F4"}
	groupID, err := rec.EnsureGroup(context.Background(), ws, 999)
	require.NoError(t, err)
	assert.Equal(t, ports.NoID, groupID)
}

func TestExpandGroup_ExpandsExistingAndCollapsesSiblings(t *testing.T) {
	rec, browser, _ := newFixture(t)
	ctx := context.Background()

	win := browser.AddWindow("normal", true, domain.WindowNormal)
	a := browser.AddTab(win.ID, "https://example.com/a", false, false)
	work := browser.AddGroup(win.ID, "Work", domain.ColorBlue, a.ID)
	b := browser.AddTab(win.ID, "https://example.com/b", false, false)
	browser.AddGroup(win.ID, "Home", domain.ColorGreen, b.ID)

	ws := domain.Workspace{ID: "ws1", Name: "Work", Color: "#4285F4"}
	require.NoError(t, rec.ExpandGroup(ctx, ws, win.ID))

	assert.Equal(t, []int{work.ID}, browser.ExpandedGroupIDs(win.ID))
}

func TestExpandGroup_NoGroupIsANoOp(t *testing.T) {
	rec, browser, _ := newFixture(t)
	ctx := context.Background()

	win := browser.AddWindow("normal", true, domain.WindowNormal)
	active := browser.AddTab(win.ID, "https://example.com", false, true)

	ws := domain.Workspace{ID: "ws1", Name: "Work", Color: "#4285F4"}
	require.NoError(t, rec.ExpandGroup(ctx, ws, win.ID))

	assert.Zero(t, browser.GroupCount(), "nothing created")
	assert.Equal(t, ports.NoID, browser.Tab(active.ID).GroupID, "active tab untouched")
	assert.Zero(t, browser.GroupMutations)
}

func TestAddTabToWorkspace_MergesAndRecollapses(t *testing.T) {
	rec, browser, _ := newFixture(t)
	ctx := context.Background()

	win := browser.AddWindow("normal", true, domain.WindowNormal)
	existing := browser.AddTab(win.ID, "https://example.com", false, true)
	group := browser.AddGroup(win.ID, "Work", domain.ColorBlue, existing.ID)
	newcomer := browser.AddTab(win.ID, "https://example.com/new", false, false)

	ws := domain.Workspace{ID: "ws1", Name: "Work", Color: "#4285F4"}
	require.NoError(t, rec.AddTabToWorkspace(ctx, newcomer.ID, win.ID, ws))

	assert.Equal(t, group.ID, browser.Tab(newcomer.ID).GroupID)
	assert.Equal(t, []int{group.ID}, browser.ExpandedGroupIDs(win.ID))
}

func TestUngroupWorkspaceTabs_LeavesTabsOpenAndOtherGroupsIntact(t *testing.T) {
	rec, browser, _ := newFixture(t)
	ctx := context.Background()

	win1 := browser.AddWindow("normal", true, domain.WindowNormal)
	a := browser.AddTab(win1.ID, "https://example.com/a", false, true)
	b := browser.AddTab(win1.ID, "https://example.com/b", false, false)
	browser.AddGroup(win1.ID, "Work", domain.ColorBlue, a.ID, b.ID)

	win2 := browser.AddWindow("normal", false, domain.WindowNormal)
	c := browser.AddTab(win2.ID, "https://example.com/c", false, true)
	browser.AddGroup(win2.ID, "Work", domain.ColorBlue, c.ID)
	d := browser.AddTab(win2.ID, "https://example.com/d", false, false)
	other := browser.AddGroup(win2.ID, "Home", domain.ColorGreen, d.ID)

	ws := domain.Workspace{ID: "ws1", Name: "Work", Color: "#4285F4"}
	require.NoError(t, rec.UngroupWorkspaceTabs(ctx, ws))

	for _, id := range []int{a.ID, b.ID, c.ID} {
		tab := browser.Tab(id)
		require.NotNil(t, tab, "tab stays open")
		assert.Equal(t, ports.NoID, tab.GroupID)
	}
	assert.Equal(t, other.ID, browser.Tab(d.ID).GroupID, "other workspace group untouched")
	assert.Equal(t, 1, browser.GroupCount())
}
