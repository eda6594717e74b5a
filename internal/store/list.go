package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"packliste/internal/model"
)

type ListStore struct {
	db *sql.DB
}

func NewListStore(db *sql.DB) *ListStore {
	return &ListStore{db: db}
}

func scanList(scanner interface{ Scan(...any) error }) (*model.List, error) {
	var l model.List
	err := scanner.Scan(&l.ID, &l.OwnerID, &l.Name, &l.Emoji, &l.Color, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

const listCols = `id, owner_id, name, emoji, color, created_at, updated_at`

// ListByOwner returns the owner's lists, most recently active first.
func (s *ListStore) ListByOwner(ownerID string) ([]model.List, error) {
	rows, err := s.db.Query(
		`SELECT `+listCols+` FROM lists WHERE owner_id = ? ORDER BY updated_at DESC, created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	defer rows.Close()

	var lists []model.List
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		lists = append(lists, *l)
	}
	return lists, rows.Err()
}

func (s *ListStore) GetByID(id string) (*model.List, error) {
	row := s.db.QueryRow(`SELECT `+listCols+` FROM lists WHERE id = ?`, id)
	l, err := scanList(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get list: %w", err)
	}
	return l, nil
}

func (s *ListStore) Create(ownerID, name, emoji, color string) (*model.List, error) {
	if color == "" {
		color = model.DefaultListColor
	}
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO lists (id, owner_id, name, emoji, color) VALUES (?, ?, ?, ?, ?)`,
		id, ownerID, name, emoji, color,
	)
	if err != nil {
		return nil, fmt.Errorf("insert list: %w", err)
	}
	return s.GetByID(id)
}

// Update applies the non-nil fields. Name, emoji and color are the only
// caller-editable list fields.
func (s *ListStore) Update(id string, name, emoji, color *string) (*model.List, error) {
	existing, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	if name != nil {
		existing.Name = *name
	}
	if emoji != nil {
		existing.Emoji = *emoji
	}
	if color != nil {
		existing.Color = *color
	}

	_, err = s.db.Exec(
		`UPDATE lists SET name = ?, emoji = ?, color = ?, updated_at = datetime('now') WHERE id = ?`,
		existing.Name, existing.Emoji, existing.Color, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update list: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes the list together with all of its sections and items.
// Items go first so no row ever references a deleted section.
func (s *ListStore) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM items WHERE list_id = ?`, id); err != nil {
		return fmt.Errorf("delete list items: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM sections WHERE list_id = ?`, id); err != nil {
		return fmt.Errorf("delete list sections: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM lists WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	return nil
}

// Touch bumps updated_at and returns the new timestamp. Content mutations
// call this so "recently active" ordering tracks item and section changes,
// not just list renames.
func (s *ListStore) Touch(id string) (time.Time, error) {
	_, err := s.db.Exec(`UPDATE lists SET updated_at = datetime('now') WHERE id = ?`, id)
	if err != nil {
		return time.Time{}, fmt.Errorf("touch list: %w", err)
	}
	l, err := s.GetByID(id)
	if err != nil {
		return time.Time{}, err
	}
	if l == nil {
		return time.Time{}, sql.ErrNoRows
	}
	return l.UpdatedAt, nil
}
