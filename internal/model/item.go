package model

import "time"

// Item belongs to exactly one list and optionally one section. A nil
// SectionID marks a loose item. Position is dense and zero-based within its
// grouping scope: (list, section) when sectioned, (list, nil) when loose.
type Item struct {
	ID        string    `json:"id"`
	ListID    string    `json:"list_id"`
	SectionID *string   `json:"section_id"`
	Text      string    `json:"text"`
	Checked   bool      `json:"checked"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InSection reports whether the item belongs to the given section scope,
// where a nil sectionID means the list's loose scope.
func (i *Item) InSection(sectionID *string) bool {
	if sectionID == nil {
		return i.SectionID == nil
	}
	return i.SectionID != nil && *i.SectionID == *sectionID
}
