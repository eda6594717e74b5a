package store

import (
	"database/sql"
	"testing"

	"packliste/internal/database"
	"packliste/internal/model"
)

func setupTestDB(t *testing.T) (*ListStore, *SectionStore, *ItemStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewListStore(db), NewSectionStore(db), NewItemStore(db), NewUserStore(db)
}

func mustExec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func createTestUser(t *testing.T, us *UserStore) *model.User {
	t.Helper()
	user, err := us.Create("test@example.com", "not-a-real-hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestListCRUD(t *testing.T) {
	ls, _, _, us := setupTestDB(t)
	user := createTestUser(t, us)

	list, err := ls.Create(user.ID, "Norwegen", "🏔️", "")
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	if list.Name != "Norwegen" {
		t.Errorf("name = %q, want %q", list.Name, "Norwegen")
	}
	if list.Color != model.DefaultListColor {
		t.Errorf("color = %q, want default %q", list.Color, model.DefaultListColor)
	}
	if list.Emoji != "🏔️" {
		t.Errorf("emoji = %q, want 🏔️", list.Emoji)
	}

	got, err := ls.GetByID(list.ID)
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	if got == nil || got.ID != list.ID {
		t.Fatal("list not found after create")
	}

	newName := "Schweden"
	updated, err := ls.Update(list.ID, &newName, nil, nil)
	if err != nil {
		t.Fatalf("update list: %v", err)
	}
	if updated.Name != "Schweden" {
		t.Errorf("name = %q, want %q", updated.Name, "Schweden")
	}
	if updated.Emoji != "🏔️" {
		t.Errorf("emoji changed on partial update: %q", updated.Emoji)
	}

	if err := ls.Delete(list.ID); err != nil {
		t.Fatalf("delete list: %v", err)
	}
	got, err = ls.GetByID(list.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Error("list still exists after delete")
	}
}

func TestListGetMissing(t *testing.T) {
	ls, _, _, _ := setupTestDB(t)

	got, err := ls.GetByID("nope")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if got != nil {
		t.Error("expected nil for missing list")
	}

	updated, err := ls.Update("nope", nil, nil, nil)
	if err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if updated != nil {
		t.Error("expected nil for missing list update")
	}
}

func TestListByOwnerOrdersByActivity(t *testing.T) {
	ls, _, _, us := setupTestDB(t)
	user := createTestUser(t, us)

	older, err := ls.Create(user.ID, "Alt", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	newer, err := ls.Create(user.ID, "Neu", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Force distinct activity timestamps; datetime('now') has second
	// resolution, so back-to-back writes would tie.
	mustExec(t, ls.db, `UPDATE lists SET updated_at = datetime('now', '-1 hour') WHERE id = ?`, newer.ID)
	mustExec(t, ls.db, `UPDATE lists SET updated_at = datetime('now') WHERE id = ?`, older.ID)

	lists, err := ls.ListByOwner(user.ID)
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(lists) != 2 {
		t.Fatalf("lists = %d, want 2", len(lists))
	}
	if lists[0].ID != older.ID {
		t.Errorf("most recently active first: got %s, want %s", lists[0].ID, older.ID)
	}
}

func TestListTouch(t *testing.T) {
	ls, _, _, us := setupTestDB(t)
	user := createTestUser(t, us)

	list, err := ls.Create(user.ID, "Wochenende", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	mustExec(t, ls.db, `UPDATE lists SET updated_at = datetime('now', '-1 day') WHERE id = ?`, list.ID)

	stale, _ := ls.GetByID(list.ID)

	ts, err := ls.Touch(list.ID)
	if err != nil {
		t.Fatalf("touch: %v", err)
	}
	got, _ := ls.GetByID(list.ID)
	if !got.UpdatedAt.Equal(ts) {
		t.Errorf("returned timestamp %v differs from stored %v", ts, got.UpdatedAt)
	}
	if !ts.After(stale.UpdatedAt) {
		t.Errorf("touch did not advance updated_at: %v -> %v", stale.UpdatedAt, ts)
	}
}

func TestListDeleteCascades(t *testing.T) {
	ls, ss, is, us := setupTestDB(t)
	user := createTestUser(t, us)

	list, err := ls.Create(user.ID, "Camping", "", "")
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	sec, err := ss.Create(list.ID, "Sonstiges", 0)
	if err != nil {
		t.Fatalf("create section: %v", err)
	}
	if _, err := is.Create(list.ID, &sec.ID, "Zelt", 0); err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, err := is.Create(list.ID, nil, "Gaskocher", 0); err != nil {
		t.Fatalf("create loose item: %v", err)
	}

	if err := ls.Delete(list.ID); err != nil {
		t.Fatalf("delete list: %v", err)
	}

	sections, err := ss.ListByLists([]string{list.ID})
	if err != nil {
		t.Fatalf("list sections: %v", err)
	}
	if len(sections) != 0 {
		t.Errorf("%d orphan sections remain", len(sections))
	}
	items, err := is.ListByLists([]string{list.ID})
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("%d orphan items remain", len(items))
	}
}
