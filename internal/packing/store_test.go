package packing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"testing"
	"time"

	"packliste/internal/api"
	"packliste/internal/model"
)

// fakeClient is a scriptable remote store. failOn maps an operation name to
// the 1-based invocation that should fail.
type fakeClient struct {
	mu     sync.Mutex
	seq    int
	failOn map[string]int
	counts map[string]int
	calls  []string

	touched []string

	fetchLists    []model.List
	fetchSections []model.Section
	fetchItems    []model.Item

	lastReorder  []api.PositionUpdate
	lastReassign []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{failOn: map[string]int{}, counts: map[string]int{}}
}

func (f *fakeClient) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	f.counts[op]++
	if n, ok := f.failOn[op]; ok && f.counts[op] == n {
		return errors.New(op + " failed")
	}
	return nil
}

func (f *fakeClient) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[op]
}

func (f *fakeClient) nextID(prefix string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeClient) FetchLists(ctx context.Context, ownerID string) ([]model.List, error) {
	if err := f.record("FetchLists"); err != nil {
		return nil, err
	}
	return slices.Clone(f.fetchLists), nil
}

func (f *fakeClient) CreateList(ctx context.Context, fields api.ListFields) (*model.List, error) {
	if err := f.record("CreateList"); err != nil {
		return nil, err
	}
	color := fields.Color
	if color == "" {
		color = model.DefaultListColor
	}
	return &model.List{ID: f.nextID("list"), OwnerID: "user-1", Name: fields.Name, Emoji: fields.Emoji, Color: color}, nil
}

func (f *fakeClient) UpdateList(ctx context.Context, id string, patch api.ListPatch) (*model.List, error) {
	if err := f.record("UpdateList"); err != nil {
		return nil, err
	}
	return &model.List{ID: id}, nil
}

func (f *fakeClient) DeleteList(ctx context.Context, id string) error {
	return f.record("DeleteList")
}

func (f *fakeClient) TouchList(ctx context.Context, id string) (time.Time, error) {
	if err := f.record("TouchList"); err != nil {
		return time.Time{}, err
	}
	f.mu.Lock()
	f.touched = append(f.touched, id)
	n := len(f.touched)
	f.mu.Unlock()
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(n) * time.Minute), nil
}

func (f *fakeClient) FetchSections(ctx context.Context, listIDs []string) ([]model.Section, error) {
	if err := f.record("FetchSections"); err != nil {
		return nil, err
	}
	return slices.Clone(f.fetchSections), nil
}

func (f *fakeClient) CreateSection(ctx context.Context, fields api.SectionFields) (*model.Section, error) {
	if err := f.record("CreateSection"); err != nil {
		return nil, err
	}
	return &model.Section{ID: f.nextID("section"), ListID: fields.ListID, Name: fields.Name, Position: fields.Position}, nil
}

func (f *fakeClient) UpdateSection(ctx context.Context, id string, patch api.SectionPatch) (*model.Section, error) {
	if err := f.record("UpdateSection"); err != nil {
		return nil, err
	}
	return &model.Section{ID: id}, nil
}

func (f *fakeClient) DeleteSection(ctx context.Context, id string) error {
	return f.record("DeleteSection")
}

func (f *fakeClient) ReorderSections(ctx context.Context, updates []api.PositionUpdate) error {
	return f.record("ReorderSections")
}

func (f *fakeClient) FetchItems(ctx context.Context, listIDs []string) ([]model.Item, error) {
	if err := f.record("FetchItems"); err != nil {
		return nil, err
	}
	return slices.Clone(f.fetchItems), nil
}

func (f *fakeClient) CreateItem(ctx context.Context, fields api.ItemFields) (*model.Item, error) {
	if err := f.record("CreateItem"); err != nil {
		return nil, err
	}
	return &model.Item{ID: f.nextID("item"), ListID: fields.ListID, SectionID: fields.SectionID, Text: fields.Text, Position: fields.Position}, nil
}

func (f *fakeClient) UpdateItem(ctx context.Context, id string, patch api.ItemPatch) (*model.Item, error) {
	if err := f.record("UpdateItem"); err != nil {
		return nil, err
	}
	return &model.Item{ID: id}, nil
}

func (f *fakeClient) DeleteItem(ctx context.Context, id string) error {
	return f.record("DeleteItem")
}

func (f *fakeClient) ReorderItems(ctx context.Context, updates []api.PositionUpdate) error {
	if err := f.record("ReorderItems"); err != nil {
		return err
	}
	f.mu.Lock()
	f.lastReorder = updates
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) ResetChecked(ctx context.Context, listID string) error {
	return f.record("ResetChecked")
}

func (f *fakeClient) ReassignSection(ctx context.Context, itemIDs []string, sectionID *string) error {
	if err := f.record("ReassignSection"); err != nil {
		return err
	}
	f.mu.Lock()
	f.lastReassign = itemIDs
	f.mu.Unlock()
	return nil
}

var _ api.Client = (*fakeClient)(nil)

type fakeNotifier struct {
	mu        sync.Mutex
	errors    []string
	successes []string
}

func (n *fakeNotifier) Notify(level Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if level == LevelError {
		n.errors = append(n.errors, message)
	} else {
		n.successes = append(n.successes, message)
	}
}

func (n *fakeNotifier) errorCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errors)
}

func strptr(s string) *string { return &s }

func testList(id, name string, updated time.Time) model.List {
	return model.List{ID: id, OwnerID: "user-1", Name: name, Color: model.DefaultListColor, UpdatedAt: updated}
}

func testSection(id, listID, name string, pos int) model.Section {
	return model.Section{ID: id, ListID: listID, Name: name, Position: pos}
}

func testItem(id, listID string, sectionID *string, text string, pos int, checked bool) model.Item {
	return model.Item{ID: id, ListID: listID, SectionID: sectionID, Text: text, Position: pos, Checked: checked}
}

func newTestStore(t *testing.T, fc *fakeClient) (*Store, *fakeNotifier) {
	t.Helper()
	fn := &fakeNotifier{}
	s := New(fc, fn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := s.Load(context.Background(), "user-1"); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s, fn
}

// groupedFixture builds:
//
//	l1 (grouped): sec-clothes [i1, i2], sec-other "Sonstiges" [i3], sec-empty
//	l2 (loose):   [j1, j2, j3]
//	l3 (grouped): sole section sec-solo "Sonstiges" [k1, k2, k3]
func groupedFixture() *fakeClient {
	fc := newFakeClient()
	t0 := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	fc.fetchLists = []model.List{
		testList("l1", "Norwegen", t0.Add(2*time.Hour)),
		testList("l2", "Strand", t0.Add(time.Hour)),
		testList("l3", "Wochenende", t0),
	}
	fc.fetchSections = []model.Section{
		testSection("sec-clothes", "l1", "Kleidung", 0),
		testSection("sec-other", "l1", model.CatchAllName, 1),
		testSection("sec-empty", "l1", "Technik", 2),
		testSection("sec-solo", "l3", model.CatchAllName, 0),
	}
	fc.fetchItems = []model.Item{
		testItem("i1", "l1", strptr("sec-clothes"), "Jacke", 0, false),
		testItem("i2", "l1", strptr("sec-clothes"), "Hose", 1, true),
		testItem("i3", "l1", strptr("sec-other"), "Ladekabel", 0, false),
		testItem("j1", "l2", nil, "Sonnencreme", 0, false),
		testItem("j2", "l2", nil, "Handtuch", 1, false),
		testItem("j3", "l2", nil, "Buch", 2, true),
		testItem("k1", "l3", strptr("sec-solo"), "Zahnbürste", 0, false),
		testItem("k2", "l3", strptr("sec-solo"), "Schlafsack", 1, false),
		testItem("k3", "l3", strptr("sec-solo"), "Proviant", 2, true),
	}
	return fc
}

func (s *Store) dump() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capture()
}

// assertDense fails unless the scope's positions are exactly 0..n-1.
func assertDense(t *testing.T, items []model.Item) {
	t.Helper()
	for i, it := range items {
		if it.Position != i {
			t.Errorf("position[%d] = %d, want %d (item %s)", i, it.Position, i, it.ID)
		}
	}
}

func TestLoadFailure(t *testing.T) {
	fc := newFakeClient()
	fc.failOn["FetchLists"] = 1
	fn := &fakeNotifier{}
	s := New(fc, fn, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := s.Load(context.Background(), "user-1"); err == nil {
		t.Fatal("expected load error")
	}
	if s.Loaded() {
		t.Error("store should stay unloaded")
	}
	if s.Err() == nil {
		t.Error("Err() should report the failure")
	}
	if len(s.Lists()) != 0 {
		t.Error("no partial data should be cached")
	}
	if fn.errorCount() != 1 {
		t.Errorf("notifications = %d, want 1", fn.errorCount())
	}
}

func TestLoadPartialFetchFailure(t *testing.T) {
	fc := groupedFixture()
	fc.failOn["FetchItems"] = 1
	fn := &fakeNotifier{}
	s := New(fc, fn, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := s.Load(context.Background(), "user-1"); err == nil {
		t.Fatal("expected load error")
	}
	if s.Loaded() || len(s.Lists()) != 0 {
		t.Error("a failed load must cache nothing")
	}
}

func TestClear(t *testing.T) {
	s, _ := newTestStore(t, groupedFixture())
	s.Clear()
	if s.Loaded() || s.Err() != nil || len(s.Lists()) != 0 {
		t.Error("Clear must reset to unloaded state")
	}
}

func TestListsSortedByActivity(t *testing.T) {
	s, _ := newTestStore(t, groupedFixture())
	lists := s.Lists()
	want := []string{"l1", "l2", "l3"}
	for i, id := range want {
		if lists[i].ID != id {
			t.Errorf("lists[%d] = %s, want %s", i, lists[i].ID, id)
		}
	}
}

func TestAddList(t *testing.T) {
	s, _ := newTestStore(t, groupedFixture())
	list, err := s.AddList(context.Background(), "Festival", "🎪")
	if err != nil {
		t.Fatalf("add list: %v", err)
	}
	if list.Color != model.DefaultListColor {
		t.Errorf("color = %q, want default", list.Color)
	}
	if s.ListByID(list.ID) == nil {
		t.Error("new list not cached")
	}
}

func TestDeleteListCascades(t *testing.T) {
	fc := groupedFixture()
	s, fn := newTestStore(t, fc)

	if err := s.DeleteList(context.Background(), "l1"); err != nil {
		t.Fatalf("delete list: %v", err)
	}
	if s.ListByID("l1") != nil {
		t.Error("list still cached")
	}
	if got := s.SectionsOf("l1"); len(got) != 0 {
		t.Errorf("%d orphan sections remain", len(got))
	}
	if got := s.ItemsOfList("l1"); len(got) != 0 {
		t.Errorf("%d orphan items remain", len(got))
	}
	if fc.count("DeleteList") != 1 {
		t.Errorf("DeleteList calls = %d, want 1", fc.count("DeleteList"))
	}
	if len(fn.successes) != 1 {
		t.Errorf("success toasts = %d, want 1", len(fn.successes))
	}
}

func TestAddItemAppendsToScope(t *testing.T) {
	fc := groupedFixture()
	s, _ := newTestStore(t, fc)

	it, err := s.AddItem(context.Background(), "l1", strptr("sec-clothes"), "Mütze")
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if it.Position != 2 {
		t.Errorf("position = %d, want 2", it.Position)
	}
	assertDense(t, s.ItemsOfSection("sec-clothes"))

	loose, err := s.AddItem(context.Background(), "l2", nil, "Sonnenbrille")
	if err != nil {
		t.Fatalf("add loose item: %v", err)
	}
	if loose.Position != 3 {
		t.Errorf("loose position = %d, want 3", loose.Position)
	}
	assertDense(t, s.LooseItems("l2"))
}

func TestDeleteItemClosesGap(t *testing.T) {
	fc := groupedFixture()
	s, _ := newTestStore(t, fc)

	if err := s.DeleteItem(context.Background(), "j2"); err != nil {
		t.Fatalf("delete item: %v", err)
	}
	loose := s.LooseItems("l2")
	if len(loose) != 2 {
		t.Fatalf("loose items = %d, want 2", len(loose))
	}
	assertDense(t, loose)
	if loose[0].ID != "j1" || loose[1].ID != "j3" {
		t.Errorf("order = [%s %s], want [j1 j3]", loose[0].ID, loose[1].ID)
	}
}

func TestToggleRollback(t *testing.T) {
	fc := groupedFixture()
	fc.failOn["UpdateItem"] = 1
	s, fn := newTestStore(t, fc)

	before := s.dump()
	if err := s.ToggleItem(context.Background(), "i1"); err == nil {
		t.Fatal("expected toggle error")
	}
	after := s.dump()

	if !reflect.DeepEqual(before, after) {
		t.Error("cache differs from pre-operation state after rollback")
	}
	for _, it := range s.ItemsOfSection("sec-clothes") {
		if it.ID == "i1" && it.Checked {
			t.Error("checked flag not rolled back")
		}
	}
	if fn.errorCount() != 1 {
		t.Errorf("notifications = %d, want exactly 1", fn.errorCount())
	}
}

func TestRollbackFidelity(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name   string
		failOp string
		run    func(s *Store) error
	}{
		{"update list", "UpdateList", func(s *Store) error {
			return s.UpdateList(ctx, "l1", api.ListPatch{Name: strptr("Schweden")})
		}},
		{"delete list", "DeleteList", func(s *Store) error {
			return s.DeleteList(ctx, "l1")
		}},
		{"edit item", "UpdateItem", func(s *Store) error {
			return s.UpdateItemText(ctx, "i1", "Regenjacke")
		}},
		{"delete item", "DeleteItem", func(s *Store) error {
			return s.DeleteItem(ctx, "j1")
		}},
		{"renumber after delete", "ReorderItems", func(s *Store) error {
			return s.DeleteItem(ctx, "j1")
		}},
		{"reorder loose items", "ReorderItems", func(s *Store) error {
			return s.ReorderItems(ctx, "l2", []string{"j3", "j1", "j2"})
		}},
		{"reorder section items", "ReorderItems", func(s *Store) error {
			return s.ReorderSectionItems(ctx, "sec-clothes", []string{"i2", "i1"})
		}},
		{"move item", "UpdateItem", func(s *Store) error {
			return s.MoveItemToSection(ctx, "i1", strptr("sec-other"), nil)
		}},
		{"move item second write", "UpdateItem", func(s *Store) error {
			return s.MoveItemToSection(ctx, "i1", strptr("sec-other"), nil)
		}},
		{"reset list", "ResetChecked", func(s *Store) error {
			return s.ResetListItems(ctx, "l1")
		}},
		{"update section", "UpdateSection", func(s *Store) error {
			return s.UpdateSection(ctx, "sec-clothes", api.SectionPatch{Name: strptr("Klamotten")})
		}},
		{"reorder sections", "ReorderSections", func(s *Store) error {
			return s.ReorderSections(ctx, "l1", []string{"sec-empty", "sec-clothes", "sec-other"})
		}},
		{"delete section all", "DeleteSection", func(s *Store) error {
			return s.DeleteSection(ctx, "sec-clothes", DeleteAll)
		}},
		{"delete section move", "ReassignSection", func(s *Store) error {
			return s.DeleteSection(ctx, "sec-clothes", MoveToCatchAll)
		}},
		{"delete section loose", "ReassignSection", func(s *Store) error {
			return s.DeleteSection(ctx, "sec-solo", KeepAsLoose)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fc := groupedFixture()
			s, fn := newTestStore(t, fc)
			failAt := 1
			if tc.name == "move item second write" {
				failAt = 2
			}
			fc.mu.Lock()
			fc.failOn[tc.failOp] = failAt
			fc.mu.Unlock()

			before := s.dump()
			if err := tc.run(s); err == nil {
				t.Fatal("expected remote failure")
			}
			after := s.dump()

			if !reflect.DeepEqual(before, after) {
				t.Error("cache differs from pre-operation state after rollback")
			}
			if fn.errorCount() != 1 {
				t.Errorf("notifications = %d, want exactly 1", fn.errorCount())
			}
		})
	}
}

func TestMissingEntityIsSilentNoop(t *testing.T) {
	fc := groupedFixture()
	s, fn := newTestStore(t, fc)
	ctx := context.Background()

	before := s.dump()
	callsBefore := fc.count("UpdateItem") + fc.count("DeleteItem") + fc.count("DeleteList") + fc.count("DeleteSection")

	if err := s.ToggleItem(ctx, "gone"); err != nil {
		t.Errorf("toggle: %v", err)
	}
	if err := s.DeleteItem(ctx, "gone"); err != nil {
		t.Errorf("delete item: %v", err)
	}
	if err := s.DeleteList(ctx, "gone"); err != nil {
		t.Errorf("delete list: %v", err)
	}
	if err := s.DeleteSection(ctx, "gone", DeleteAll); err != nil {
		t.Errorf("delete section: %v", err)
	}
	if err := s.UpdateItemText(ctx, "gone", "x"); err != nil {
		t.Errorf("edit item: %v", err)
	}

	if !reflect.DeepEqual(before, s.dump()) {
		t.Error("no-op mutated the cache")
	}
	callsAfter := fc.count("UpdateItem") + fc.count("DeleteItem") + fc.count("DeleteList") + fc.count("DeleteSection")
	if callsAfter != callsBefore {
		t.Error("no-op issued remote writes")
	}
	if fn.errorCount() != 0 {
		t.Error("no-op emitted notifications")
	}
}

func TestReorderSectionItems(t *testing.T) {
	fc := groupedFixture()
	s, _ := newTestStore(t, fc)

	// Scenario: [i1, i2] reordered to [i2, i1]; the catch-all item i3 and
	// every other list stay untouched.
	before := s.ItemsOfSection("sec-other")
	if err := s.ReorderSectionItems(context.Background(), "sec-clothes", []string{"i2", "i1"}); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	got := s.ItemsOfSection("sec-clothes")
	if got[0].ID != "i2" || got[1].ID != "i1" {
		t.Errorf("order = [%s %s], want [i2 i1]", got[0].ID, got[1].ID)
	}
	assertDense(t, got)
	if !reflect.DeepEqual(before, s.ItemsOfSection("sec-other")) {
		t.Error("items outside the scope were renumbered")
	}
}

func TestReorderIgnoresForeignIDs(t *testing.T) {
	fc := groupedFixture()
	s, _ := newTestStore(t, fc)

	// i1 lives in sec-clothes; a reorder of l2's loose items must skip it.
	if err := s.ReorderItems(context.Background(), "l2", []string{"j3", "i1", "j1", "j2"}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	loose := s.LooseItems("l2")
	want := []string{"j3", "j1", "j2"}
	for i, id := range want {
		if loose[i].ID != id {
			t.Errorf("loose[%d] = %s, want %s", i, loose[i].ID, id)
		}
	}
	assertDense(t, loose)
	for _, it := range s.ItemsOfSection("sec-clothes") {
		if it.ID == "i1" && it.Position != 0 {
			t.Error("cross-scope item was renumbered")
		}
	}
}

func TestMoveItemToSectionAppends(t *testing.T) {
	fc := groupedFixture()
	s, _ := newTestStore(t, fc)

	if err := s.MoveItemToSection(context.Background(), "i1", strptr("sec-other"), nil); err != nil {
		t.Fatalf("move: %v", err)
	}
	got := s.ItemsOfSection("sec-other")
	if len(got) != 2 {
		t.Fatalf("catch-all items = %d, want 2", len(got))
	}
	if got[1].ID != "i1" || got[1].Position != 1 {
		t.Errorf("moved item = %s@%d, want i1@1", got[1].ID, got[1].Position)
	}
	// Two independent writes: section_id, then position.
	if fc.count("UpdateItem") != 2 {
		t.Errorf("UpdateItem calls = %d, want 2", fc.count("UpdateItem"))
	}
}

func TestResetListItems(t *testing.T) {
	fc := groupedFixture()
	s, _ := newTestStore(t, fc)

	if err := s.ResetListItems(context.Background(), "l1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	for _, it := range s.ItemsOfList("l1") {
		if it.Checked {
			t.Errorf("item %s still checked", it.ID)
		}
	}
	st := s.Stats("l1")
	if st.Packed != 0 {
		t.Errorf("packed = %d, want 0", st.Packed)
	}
}

func TestStats(t *testing.T) {
	s, _ := newTestStore(t, groupedFixture())

	st := s.Stats("l1")
	if st.Total != 3 || st.Packed != 1 {
		t.Errorf("stats(l1) = %+v, want {3 1}", st)
	}
	st = s.Stats("l2")
	if st.Total != 3 || st.Packed != 1 {
		t.Errorf("stats(l2) = %+v, want {3 1}", st)
	}
	if err := s.ToggleItem(context.Background(), "i1"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if got := s.Stats("l1").Packed; got != 2 {
		t.Errorf("packed after toggle = %d, want 2", got)
	}
	if got := s.Stats("unknown"); got.Total != 0 || got.Packed != 0 {
		t.Errorf("stats(unknown) = %+v, want zero", got)
	}
}

func TestTouchProtocol(t *testing.T) {
	fc := groupedFixture()
	s, _ := newTestStore(t, fc)
	ctx := context.Background()

	if _, err := s.AddItem(ctx, "l2", nil, "Flip-Flops"); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if fc.count("TouchList") != 1 {
		t.Fatalf("TouchList calls after add = %d, want 1", fc.count("TouchList"))
	}
	// The merged timestamp makes l2 the most recently active list.
	if lists := s.Lists(); lists[0].ID != "l2" {
		t.Errorf("most recent list = %s, want l2", lists[0].ID)
	}

	// Toggle, reorder and reset are not list activity.
	if err := s.ToggleItem(ctx, "j1"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := s.ReorderItems(ctx, "l2", []string{"j2", "j1", "j3"}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if err := s.ResetListItems(ctx, "l2"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if fc.count("TouchList") != 1 {
		t.Errorf("TouchList calls = %d, want still 1", fc.count("TouchList"))
	}
}

func TestTouchFailureIsOnlyLogged(t *testing.T) {
	fc := groupedFixture()
	fc.failOn["TouchList"] = 1
	s, fn := newTestStore(t, fc)

	if _, err := s.AddItem(context.Background(), "l2", nil, "Kamera"); err != nil {
		t.Fatalf("add item must succeed despite touch failure: %v", err)
	}
	if len(s.LooseItems("l2")) != 4 {
		t.Error("item not cached")
	}
	if fn.errorCount() != 0 {
		t.Error("touch failure must not notify")
	}
}
