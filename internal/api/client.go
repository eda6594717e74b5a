// Package api defines the remote store client: one operation per entity and
// CRUD-or-bulk pair, each returning the resulting record(s) or an error.
// Bulk operations (reorder, reassign) are applied by the server one row at a
// time, in order; they are not atomic and a partial failure leaves the
// remote side in a mixed state until the next full reload.
package api

import (
	"context"
	"encoding/json"
	"time"

	"packliste/internal/model"
)

// PositionUpdate is one (id, position) pair of a bulk reorder.
type PositionUpdate struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}

// ListFields are the caller-supplied fields of a new list.
type ListFields struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
	Color string `json:"color,omitempty"`
}

// ListPatch carries a partial list update; nil fields are left untouched.
type ListPatch struct {
	Name  *string `json:"name,omitempty"`
	Emoji *string `json:"emoji,omitempty"`
	Color *string `json:"color,omitempty"`
}

// SectionFields are the caller-supplied fields of a new section.
type SectionFields struct {
	ListID   string `json:"list_id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// SectionPatch carries a partial section update; nil fields are left untouched.
type SectionPatch struct {
	Name        *string `json:"name,omitempty"`
	IsCollapsed *bool   `json:"is_collapsed,omitempty"`
}

// ItemFields are the caller-supplied fields of a new item. A nil SectionID
// creates a loose item.
type ItemFields struct {
	ListID    string  `json:"list_id"`
	SectionID *string `json:"section_id"`
	Text      string  `json:"text"`
	Position  int     `json:"position"`
}

// ItemPatch carries a partial item update. SectionID is tri-state: unset
// (nil) leaves the assignment alone, set-to-nil moves the item to the loose
// scope, set-to-id moves it into that section.
type ItemPatch struct {
	Text      *string
	Checked   *bool
	Position  *int
	SectionID **string
}

// MarshalJSON serializes only the fields that are set, so the server can
// tell "absent" from "null" for section_id.
func (p ItemPatch) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, 4)
	if p.Text != nil {
		fields["text"] = *p.Text
	}
	if p.Checked != nil {
		fields["checked"] = *p.Checked
	}
	if p.Position != nil {
		fields["position"] = *p.Position
	}
	if p.SectionID != nil {
		fields["section_id"] = *p.SectionID
	}
	return json.Marshal(fields)
}

// Client is the remote store consumed by the packing store. Fetch results
// come back as unordered batches; the caller sorts by position.
type Client interface {
	// Lists
	FetchLists(ctx context.Context, ownerID string) ([]model.List, error)
	CreateList(ctx context.Context, fields ListFields) (*model.List, error)
	UpdateList(ctx context.Context, id string, patch ListPatch) (*model.List, error)
	DeleteList(ctx context.Context, id string) error
	// TouchList bumps the list's updated_at and returns the new timestamp.
	TouchList(ctx context.Context, id string) (time.Time, error)

	// Sections
	FetchSections(ctx context.Context, listIDs []string) ([]model.Section, error)
	CreateSection(ctx context.Context, fields SectionFields) (*model.Section, error)
	UpdateSection(ctx context.Context, id string, patch SectionPatch) (*model.Section, error)
	DeleteSection(ctx context.Context, id string) error
	ReorderSections(ctx context.Context, updates []PositionUpdate) error

	// Items
	FetchItems(ctx context.Context, listIDs []string) ([]model.Item, error)
	CreateItem(ctx context.Context, fields ItemFields) (*model.Item, error)
	UpdateItem(ctx context.Context, id string, patch ItemPatch) (*model.Item, error)
	DeleteItem(ctx context.Context, id string) error
	ReorderItems(ctx context.Context, updates []PositionUpdate) error
	ResetChecked(ctx context.Context, listID string) error
	ReassignSection(ctx context.Context, itemIDs []string, sectionID *string) error
}
