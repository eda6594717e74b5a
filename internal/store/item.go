package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"packliste/internal/model"
)

// PositionUpdate is one (id, position) pair of a bulk reorder.
type PositionUpdate struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}

type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

func scanItem(scanner interface{ Scan(...any) error }) (*model.Item, error) {
	var it model.Item
	var sectionID sql.NullString
	var checked int

	err := scanner.Scan(&it.ID, &it.ListID, &sectionID, &it.Text, &checked, &it.Position, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}

	it.Checked = checked != 0
	if sectionID.Valid {
		it.SectionID = &sectionID.String
	}
	return &it, nil
}

const itemCols = `id, list_id, section_id, text, checked, position, created_at, updated_at`

// ListByLists returns all items of the given lists as one unordered batch;
// callers sort by position.
func (s *ItemStore) ListByLists(listIDs []string) ([]model.Item, error) {
	if len(listIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(listIDs)-1) + "?"
	args := make([]any, len(listIDs))
	for i, id := range listIDs {
		args[i] = id
	}

	rows, err := s.db.Query(
		`SELECT `+itemCols+` FROM items WHERE list_id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (s *ItemStore) GetByID(id string) (*model.Item, error) {
	row := s.db.QueryRow(`SELECT `+itemCols+` FROM items WHERE id = ?`, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

func (s *ItemStore) Create(listID string, sectionID *string, text string, position int) (*model.Item, error) {
	var secID sql.NullString
	if sectionID != nil {
		secID = sql.NullString{String: *sectionID, Valid: true}
	}

	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO items (id, list_id, section_id, text, position) VALUES (?, ?, ?, ?, ?)`,
		id, listID, secID, text, position,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	return s.GetByID(id)
}

// Update applies the non-nil fields. Passing sectionID updates the
// assignment, where an inner nil moves the item to the loose scope.
func (s *ItemStore) Update(id string, text *string, checked *bool, position *int, sectionID **string) (*model.Item, error) {
	existing, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	if text != nil {
		existing.Text = *text
	}
	if checked != nil {
		existing.Checked = *checked
	}
	if position != nil {
		existing.Position = *position
	}
	if sectionID != nil {
		existing.SectionID = *sectionID
	}

	var secID sql.NullString
	if existing.SectionID != nil {
		secID = sql.NullString{String: *existing.SectionID, Valid: true}
	}
	checkedInt := 0
	if existing.Checked {
		checkedInt = 1
	}

	_, err = s.db.Exec(
		`UPDATE items SET text = ?, checked = ?, position = ?, section_id = ?, updated_at = datetime('now') WHERE id = ?`,
		existing.Text, checkedInt, existing.Position, secID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return s.GetByID(id)
}

func (s *ItemStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// Reorder applies the position updates one row at a time, in order, and
// stops at the first failure (same weakness as SectionStore.Reorder).
func (s *ItemStore) Reorder(updates []PositionUpdate) error {
	for _, u := range updates {
		_, err := s.db.Exec(
			`UPDATE items SET position = ?, updated_at = datetime('now') WHERE id = ?`,
			u.Position, u.ID,
		)
		if err != nil {
			return fmt.Errorf("reorder item %s: %w", u.ID, err)
		}
	}
	return nil
}

// ResetChecked unchecks every item of the list.
func (s *ItemStore) ResetChecked(listID string) error {
	_, err := s.db.Exec(
		`UPDATE items SET checked = 0, updated_at = datetime('now') WHERE list_id = ?`,
		listID,
	)
	if err != nil {
		return fmt.Errorf("reset checked: %w", err)
	}
	return nil
}

// ReassignSection moves the items into the given section (nil for loose),
// one row at a time, in the order given.
func (s *ItemStore) ReassignSection(itemIDs []string, sectionID *string) error {
	var secID sql.NullString
	if sectionID != nil {
		secID = sql.NullString{String: *sectionID, Valid: true}
	}

	for _, id := range itemIDs {
		_, err := s.db.Exec(
			`UPDATE items SET section_id = ?, updated_at = datetime('now') WHERE id = ?`,
			secID, id,
		)
		if err != nil {
			return fmt.Errorf("reassign item %s: %w", id, err)
		}
	}
	return nil
}
