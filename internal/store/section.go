package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"packliste/internal/model"
)

type SectionStore struct {
	db *sql.DB
}

func NewSectionStore(db *sql.DB) *SectionStore {
	return &SectionStore{db: db}
}

func scanSection(scanner interface{ Scan(...any) error }) (*model.Section, error) {
	var s model.Section
	var collapsed int
	err := scanner.Scan(&s.ID, &s.ListID, &s.Name, &s.Position, &collapsed, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.IsCollapsed = collapsed != 0
	return &s, nil
}

const sectionCols = `id, list_id, name, position, is_collapsed, created_at, updated_at`

// ListByLists returns all sections of the given lists as one unordered
// batch; callers sort by position.
func (s *SectionStore) ListByLists(listIDs []string) ([]model.Section, error) {
	if len(listIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(listIDs)-1) + "?"
	args := make([]any, len(listIDs))
	for i, id := range listIDs {
		args[i] = id
	}

	rows, err := s.db.Query(
		`SELECT `+sectionCols+` FROM sections WHERE list_id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	var sections []model.Section
	for rows.Next() {
		sec, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		sections = append(sections, *sec)
	}
	return sections, rows.Err()
}

func (s *SectionStore) GetByID(id string) (*model.Section, error) {
	row := s.db.QueryRow(`SELECT `+sectionCols+` FROM sections WHERE id = ?`, id)
	sec, err := scanSection(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get section: %w", err)
	}
	return sec, nil
}

func (s *SectionStore) Create(listID, name string, position int) (*model.Section, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO sections (id, list_id, name, position) VALUES (?, ?, ?, ?)`,
		id, listID, name, position,
	)
	if err != nil {
		return nil, fmt.Errorf("insert section: %w", err)
	}
	return s.GetByID(id)
}

func (s *SectionStore) Update(id string, name *string, isCollapsed *bool) (*model.Section, error) {
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
	if isCollapsed != nil {
		existing.IsCollapsed = *isCollapsed
	}

	collapsed := 0
	if existing.IsCollapsed {
		collapsed = 1
	}
	_, err = s.db.Exec(
		`UPDATE sections SET name = ?, is_collapsed = ?, updated_at = datetime('now') WHERE id = ?`,
		existing.Name, collapsed, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update section: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes the section and any items still assigned to it. Callers
// that want to keep the items reassign them first.
func (s *SectionStore) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM items WHERE section_id = ?`, id); err != nil {
		return fmt.Errorf("delete section items: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM sections WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	return nil
}

// Reorder applies the position updates one row at a time, in order, and
// stops at the first failure. There is deliberately no transaction here: a
// partial failure leaves a mixed state the client tolerates until the next
// full reload.
func (s *SectionStore) Reorder(updates []PositionUpdate) error {
	for _, u := range updates {
		_, err := s.db.Exec(
			`UPDATE sections SET position = ?, updated_at = datetime('now') WHERE id = ?`,
			u.Position, u.ID,
		)
		if err != nil {
			return fmt.Errorf("reorder section %s: %w", u.ID, err)
		}
	}
	return nil
}
