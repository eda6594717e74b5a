package model

import "time"

// CatchAllName is the reserved name of the catch-all section. Once a list
// has any sections, exactly one of them carries this name and loose items
// are migrated into it.
const CatchAllName = "Sonstiges"

type Section struct {
	ID          string    `json:"id"`
	ListID      string    `json:"list_id"`
	Name        string    `json:"name"`
	Position    int       `json:"position"`
	IsCollapsed bool      `json:"is_collapsed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsCatchAll reports whether the section is the list's catch-all.
func (s *Section) IsCatchAll() bool {
	return s.Name == CatchAllName
}
