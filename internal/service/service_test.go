package service

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"

	"github.com/MrSnakeDoc/groupmark/internal/domain"
	"github.com/MrSnakeDoc/groupmark/internal/index"
	"github.com/MrSnakeDoc/groupmark/internal/logger"
	"github.com/MrSnakeDoc/groupmark/internal/store/file"
	"github.com/MrSnakeDoc/groupmark/internal/store/session"
)

type fixture struct {
	*Services
	idx   *index.MemoryIndex
	store *file.Store
	sess  *session.Memory
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	log := logger.New("error", false)
	st, err := file.New(afero.NewMemMapFs(), file.Options{Dir: "/ws/.vscode/groupbookmarks"}, log)
	if err != nil {
		t.Fatalf("file.New: %v", err)
	}
	idx := index.NewMemoryIndex(st, log)
	sess := session.NewMemory()
	return fixture{Services: New(idx, sess, log), idx: idx, store: st, sess: sess}
}

func (f fixture) group(t *testing.T, name string) domain.Group {
	t.Helper()
	g, err := f.Groups.CreateGroup(context.Background(), name, "")
	if err != nil {
		t.Fatalf("CreateGroup(%q): %v", name, err)
	}
	return g
}

func (f fixture) mark(t *testing.T, fileURI string, line int, groupID, title string) domain.Bookmark {
	t.Helper()
	b, _, err := f.Bookmarks.CreateBookmarkInGroup(context.Background(), fileURI, line, 0, groupID, title)
	if err != nil {
		t.Fatalf("CreateBookmarkInGroup: %v", err)
	}
	return b
}

func TestTodoBugsScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	todo, err := f.Groups.CreateGroup(ctx, "Todo", "Blue")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	bugs, err := f.Groups.CreateGroup(ctx, "Bugs", "Red")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if todo.Number != 1 || todo.Order != 0 || todo.DisplayName != "1. Todo" || todo.Color != domain.ColorBlue {
		t.Errorf("todo = %+v", todo)
	}
	if bugs.Number != 2 || bugs.Order != 1 || bugs.DisplayName != "2. Bugs" || bugs.Color != domain.ColorRed {
		t.Errorf("bugs = %+v", bugs)
	}
	if todo.SortMode != domain.SortCustom || !todo.GhostTextVisible() {
		t.Errorf("defaults not applied: %+v", todo)
	}

	b, fix, err := f.Bookmarks.CreateBookmarkInGroup(ctx, "a.ts", 10, 0, todo.ID, "fix")
	if err != nil {
		t.Fatalf("CreateBookmarkInGroup: %v", err)
	}
	if fix.Order != 0 || fix.ID != b.ID+"_"+todo.ID {
		t.Errorf("first relation = %+v", fix)
	}
	track, err := f.Relations.AddBookmarkToGroup(ctx, b.ID, bugs.ID, "track")
	if err != nil {
		t.Fatalf("AddBookmarkToGroup: %v", err)
	}
	if track.Order != 0 || track.Title != "track" {
		t.Errorf("second relation = %+v", track)
	}

	groups := f.Relations.GetGroupsForBookmark(b.ID)
	if len(groups) != 2 || groups[0].ID != todo.ID || groups[1].ID != bugs.ID {
		t.Errorf("GroupsForBookmark = %+v", groups)
	}
	if err := f.Relations.UpdateBookmarkTitle(ctx, b.ID, bugs.ID, "triage"); err != nil {
		t.Fatalf("UpdateBookmarkTitle: %v", err)
	}
	if r, _ := f.idx.GetRelation(fix.ID); r.Title != "fix" {
		t.Errorf("todo title changed to %q", r.Title)
	}
	if _, err := f.Relations.AddBookmarkToGroup(ctx, b.ID, bugs.ID, "again"); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("duplicate link err = %v, want ErrConflict", err)
	}
}

func TestGroupNumbersAreNotReused(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	g1 := f.group(t, "one")
	f.group(t, "two")
	if err := f.Groups.DeleteGroup(ctx, g1.ID); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}
	g3 := f.group(t, "three")
	if g3.Number != 3 || g3.DisplayName != "3. three" {
		t.Errorf("third group = %d %q, want 3", g3.Number, g3.DisplayName)
	}
}

func TestRenameGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.group(t, "one")
	g := f.group(t, "two")
	if err := f.Groups.RenameGroup(ctx, g.ID, "Later"); err != nil {
		t.Fatalf("RenameGroup: %v", err)
	}
	got, _ := f.Groups.GetGroup(g.ID)
	if got.Number != 2 || got.Name != "Later" || got.DisplayName != "2. Later" {
		t.Errorf("renamed = %+v", got)
	}
	if err := f.Groups.RenameGroup(ctx, "missing", "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("rename unknown err = %v", err)
	}
	if err := f.Groups.RenameGroup(ctx, g.ID, "  "); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("rename blank err = %v", err)
	}
}

func TestGroupAttributes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.group(t, "g")

	if err := f.Groups.ChangeGroupColor(ctx, g.ID, "#9c27b0"); err != nil {
		t.Fatalf("ChangeGroupColor: %v", err)
	}
	if err := f.Groups.ChangeGroupColor(ctx, g.ID, "teal"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("bad color err = %v", err)
	}
	if err := f.Groups.ChangeSortMode(ctx, g.ID, "name"); err != nil {
		t.Fatalf("ChangeSortMode: %v", err)
	}
	if err := f.Groups.ChangeSortMode(ctx, g.ID, "random"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("bad sort mode err = %v", err)
	}
	visible, err := f.Groups.ToggleGroupGhostText(ctx, g.ID)
	if err != nil || visible {
		t.Fatalf("first toggle = %v, %v; want false", visible, err)
	}
	visible, _ = f.Groups.ToggleGroupGhostText(ctx, g.ID)
	if !visible {
		t.Error("second toggle should show ghost text again")
	}
	if _, err := f.Groups.ToggleGroupGhostText(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("toggle unknown err = %v", err)
	}

	got, _ := f.Groups.GetGroup(g.ID)
	if got.Color != domain.ColorPurple || got.SortMode != domain.SortName || !got.GhostTextVisible() {
		t.Errorf("group = %+v", got)
	}
}

func TestReorderGroupsPartial(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, b, c := f.group(t, "a"), f.group(t, "b"), f.group(t, "c")

	if err := f.Groups.ReorderGroups(ctx, []string{c.ID, a.ID, "missing"}); err != nil {
		t.Fatalf("ReorderGroups: %v", err)
	}
	orders := map[string]int{}
	for _, g := range f.Groups.GetAllGroups() {
		orders[g.ID] = g.Order
	}
	if orders[c.ID] != 0 || orders[a.ID] != 1 || orders[b.ID] != 1 {
		t.Errorf("orders = %v", orders)
	}
}

func TestRemoveLastRelationDeletesBookmark(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g1, g2 := f.group(t, "one"), f.group(t, "two")
	b := f.mark(t, "a.go", 3, g1.ID, "x")
	if _, err := f.Relations.CopyBookmarkToGroup(ctx, b.ID, g2.ID, "y"); err != nil {
		t.Fatalf("CopyBookmarkToGroup: %v", err)
	}

	if err := f.Relations.RemoveBookmarkFromGroup(ctx, b.ID, g1.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := f.Bookmarks.GetBookmark(b.ID); !ok {
		t.Fatal("bookmark still linked to g2 must survive")
	}
	if err := f.Relations.RemoveBookmarkFromGroup(ctx, b.ID, g2.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := f.Bookmarks.GetBookmark(b.ID); ok {
		t.Fatal("orphaned bookmark must be deleted")
	}
	if err := f.Relations.RemoveBookmarkFromGroup(ctx, b.ID, g2.ID); err != nil {
		t.Errorf("removing an absent link should be a no-op, got %v", err)
	}
}

func TestDeleteGroupCascade(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g1, g2 := f.group(t, "one"), f.group(t, "two")
	only := f.mark(t, "a.go", 1, g1.ID, "only")
	shared := f.mark(t, "a.go", 2, g1.ID, "shared")
	if _, err := f.Relations.AddBookmarkToGroup(ctx, shared.ID, g2.ID, "shared"); err != nil {
		t.Fatal(err)
	}
	if err := f.Groups.SetActiveGroup(ctx, g1.ID); err != nil {
		t.Fatalf("SetActiveGroup: %v", err)
	}

	if err := f.Groups.DeleteGroup(ctx, g1.ID); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}
	if _, ok := f.Bookmarks.GetBookmark(only.ID); ok {
		t.Error("bookmark only in the deleted group must go")
	}
	if _, ok := f.Bookmarks.GetBookmark(shared.ID); !ok {
		t.Error("bookmark still in another group must stay")
	}
	for _, r := range f.idx.AllRelations() {
		if r.GroupID == g1.ID {
			t.Errorf("relation %s survived its group", r.ID)
		}
	}
	if id, _ := f.Groups.GetActiveGroupID(ctx); id != "" {
		t.Errorf("active group = %q, want cleared", id)
	}
	if err := f.Groups.DeleteGroup(ctx, g1.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestSetActiveGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.group(t, "g")

	notified := 0
	f.idx.SubscribeGroups(func() { notified++ })

	if err := f.Groups.SetActiveGroup(ctx, g.ID); err != nil {
		t.Fatalf("SetActiveGroup: %v", err)
	}
	if id, _ := f.Groups.GetActiveGroupID(ctx); id != g.ID {
		t.Errorf("active = %q", id)
	}
	if notified != 1 {
		t.Errorf("notifications = %d, want 1", notified)
	}
	if err := f.Groups.SetActiveGroup(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown group err = %v", err)
	}
	if err := f.Groups.SetActiveGroup(ctx, ""); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if id, _ := f.Groups.GetActiveGroupID(ctx); id != "" {
		t.Errorf("active after clear = %q", id)
	}
}

func TestMoveBookmarkToGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	from, to := f.group(t, "from"), f.group(t, "to")
	f.mark(t, "b.go", 1, to.ID, "first")
	f.mark(t, "b.go", 2, to.ID, "second")
	b := f.mark(t, "a.go", 5, from.ID, "keep me")

	rel, err := f.Relations.MoveBookmarkToGroup(ctx, b.ID, from.ID, to.ID, nil)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if rel.Title != "keep me" || rel.Order != 2 {
		t.Errorf("moved relation = %+v, want title kept and appended", rel)
	}
	if _, ok := f.idx.GetRelation(domain.RelationID(b.ID, from.ID)); ok {
		t.Error("source relation still present")
	}
	if _, ok := f.Bookmarks.GetBookmark(b.ID); !ok {
		t.Error("moved bookmark was deleted")
	}

	title := "renamed"
	rel, err = f.Relations.MoveBookmarkToGroup(ctx, b.ID, to.ID, from.ID, &title)
	if err != nil || rel.Title != "renamed" {
		t.Fatalf("move back = %+v, %v", rel, err)
	}
}

func TestMoveBookmarkFailuresKeepSource(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	from, to := f.group(t, "from"), f.group(t, "to")
	b := f.mark(t, "a.go", 5, from.ID, "t")
	if _, err := f.Relations.AddBookmarkToGroup(ctx, b.ID, to.ID, "t"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		from, to string
		want     error
	}{
		{"no source link", "nowhere", to.ID, domain.ErrNotFound},
		{"missing destination", from.ID, "nowhere", domain.ErrNotFound},
		{"destination taken", from.ID, to.ID, domain.ErrConflict},
		{"same group", from.ID, from.ID, domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Relations.MoveBookmarkToGroup(ctx, b.ID, tt.from, tt.to, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if _, ok := f.idx.GetRelation(domain.RelationID(b.ID, from.ID)); !ok {
				t.Error("source relation was removed by a failed move")
			}
		})
	}
}

func TestReorderBookmarksInGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g, other := f.group(t, "g"), f.group(t, "other")
	a := f.mark(t, "a.go", 1, g.ID, "a")
	b := f.mark(t, "a.go", 2, g.ID, "b")
	c := f.mark(t, "a.go", 3, g.ID, "c")
	x := f.mark(t, "a.go", 4, other.ID, "x")

	if err := f.Relations.ReorderBookmarksInGroup(ctx, g.ID, []string{c.ID, a.ID, b.ID, x.ID}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	var got []string
	for _, r := range f.Relations.GetRelationsInGroup(g.ID) {
		got = append(got, r.Title)
	}
	if len(got) != 3 || got[0] != "c" || got[1] != "a" || got[2] != "b" {
		t.Errorf("order = %v", got)
	}
	if r, _ := f.idx.GetRelation(domain.RelationID(x.ID, other.ID)); r.Order != 0 {
		t.Errorf("foreign relation order changed to %d", r.Order)
	}
	if err := f.Relations.ReorderRelations(ctx, "missing", nil); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("reorder unknown group err = %v", err)
	}
	if n := f.Groups.GetBookmarkCountInGroup(g.ID); n != 3 {
		t.Errorf("count = %d", n)
	}
}

func TestCreateBookmarkValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.group(t, "g")

	tests := []struct {
		name   string
		file   string
		line   int
		column int
		group  string
		want   error
	}{
		{"empty file", "", 1, 0, g.ID, domain.ErrValidation},
		{"line zero", "a.go", 0, 0, g.ID, domain.ErrValidation},
		{"negative column", "a.go", 1, -1, g.ID, domain.ErrValidation},
		{"unknown group", "a.go", 1, 0, "missing", domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.Bookmarks.CreateBookmarkInGroup(ctx, tt.file, tt.line, tt.column, tt.group, "t")
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if n := len(f.Bookmarks.GetAllBookmarks()); n != 0 {
		t.Errorf("%d bookmarks left behind by failed creates", n)
	}
}

func TestShiftBookmarksBoundary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.group(t, "g")
	lines := []int{4, 5, 6, 10}
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = f.mark(t, "a.go", l, g.ID, "t").ID
	}
	other := f.mark(t, "b.go", 10, g.ID, "t")

	n, err := f.Bookmarks.ShiftBookmarks(ctx, "a.go", 5, 3)
	if err != nil {
		t.Fatalf("ShiftBookmarks: %v", err)
	}
	if n != 2 {
		t.Errorf("moved %d, want 2", n)
	}
	want := []int{4, 5, 9, 13}
	for i, id := range ids {
		if b, _ := f.Bookmarks.GetBookmark(id); b.Line != want[i] {
			t.Errorf("bookmark at %d now at %d, want %d", lines[i], b.Line, want[i])
		}
	}
	if b, _ := f.Bookmarks.GetBookmark(other.ID); b.Line != 10 {
		t.Errorf("bookmark in other file moved to %d", b.Line)
	}
}

func TestShiftBookmarksZeroDeltaIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.group(t, "g")
	b := f.mark(t, "a.go", 8, g.ID, "t")

	notified := 0
	f.idx.SubscribeBookmarks(func() { notified++ })
	n, err := f.Bookmarks.ShiftBookmarks(ctx, "a.go", 0, 0)
	if err != nil || n != 0 {
		t.Fatalf("ShiftBookmarks = %d, %v", n, err)
	}
	if notified != 0 {
		t.Errorf("zero delta notified %d times", notified)
	}
	if got, _ := f.Bookmarks.GetBookmark(b.ID); got.UpdatedAt != b.UpdatedAt {
		t.Error("zero delta touched updatedAt")
	}
}

func TestShiftBookmarksClampsToFirstLine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.group(t, "g")
	b := f.mark(t, "a.go", 3, g.ID, "t")

	if _, err := f.Bookmarks.ShiftBookmarks(ctx, "a.go", 1, -10); err != nil {
		t.Fatal(err)
	}
	if got, _ := f.Bookmarks.GetBookmark(b.ID); got.Line != 1 {
		t.Errorf("line = %d, want 1", got.Line)
	}
}

func TestFileLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.group(t, "g")
	f.mark(t, "old.go", 1, g.ID, "a")
	f.mark(t, "old.go", 2, g.ID, "b")
	keep := f.mark(t, "old.go.bak", 1, g.ID, "c")

	n, err := f.Bookmarks.UpdateBookmarkPath(ctx, "old.go", "new.go")
	if err != nil || n != 2 {
		t.Fatalf("UpdateBookmarkPath = %d, %v", n, err)
	}
	if b, _ := f.Bookmarks.GetBookmark(keep.ID); b.FileURI != "old.go.bak" {
		t.Errorf("prefix match moved %s", b.FileURI)
	}
	if got := f.Bookmarks.GetBookmarksForFile("new.go"); len(got) != 2 {
		t.Errorf("bookmarks in new.go = %+v", got)
	}

	n, err = f.Bookmarks.HandleFileDeleted(ctx, "new.go")
	if err != nil || n != 2 {
		t.Fatalf("HandleFileDeleted = %d, %v", n, err)
	}
	if got := f.Relations.GetRelationsInGroup(g.ID); len(got) != 1 || got[0].BookmarkID != keep.ID {
		t.Errorf("relations left = %+v", got)
	}
}

func TestUpdateBookmarkPosition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.group(t, "g")
	b := f.mark(t, "a.go", 1, g.ID, "a")

	if err := f.Bookmarks.UpdateBookmarkPosition(ctx, b.ID, 42, 7); err != nil {
		t.Fatal(err)
	}
	if got, _ := f.Bookmarks.GetBookmark(b.ID); got.Line != 42 || got.Column != 7 {
		t.Errorf("position = %d:%d", got.Line, got.Column)
	}
	if err := f.Bookmarks.UpdateBookmarkPosition(ctx, "missing", 1, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown err = %v", err)
	}
	if err := f.Bookmarks.UpdateBookmarkPosition(ctx, b.ID, 0, 0); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("line 0 err = %v", err)
	}
}

func TestServicesPersistThroughStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.group(t, "g")
	f.mark(t, "a.go", 1, g.ID, "a")

	reloaded := index.NewMemoryIndex(f.store, logger.Nop())
	if _, err := reloaded.LoadAll(ctx); err != nil {
		t.Fatal(err)
	}
	b, gr, r := reloaded.Counts()
	if b != 1 || gr != 1 || r != 1 {
		t.Errorf("reloaded counts = %d/%d/%d", b, gr, r)
	}
}
