package packing

import (
	"cmp"
	"slices"

	"packliste/internal/model"
)

// ListStats summarizes packing progress for one list.
type ListStats struct {
	Total  int
	Packed int
}

// Lists returns the cached lists, most recently active first.
func (s *Store) Lists() []model.List {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.lists)
	slices.SortStableFunc(out, func(a, b model.List) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return out
}

// ListByID returns a copy of the list, or nil when not cached.
func (s *Store) ListByID(id string) *model.List {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.listIndexLocked(id)
	if idx < 0 {
		return nil
	}
	l := s.lists[idx]
	return &l
}

// SectionsOf returns the list's sections ascending by position.
func (s *Store) SectionsOf(listID string) []model.Section {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Section
	for i := range s.sections {
		if s.sections[i].ListID == listID {
			out = append(out, s.sections[i])
		}
	}
	slices.SortStableFunc(out, func(a, b model.Section) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return out
}

// ItemsOfList returns every item of the list ascending by position. Positions
// are per scope, so items from different sections interleave.
func (s *Store) ItemsOfList(listID string) []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Item
	for i := range s.items {
		if s.items[i].ListID == listID {
			out = append(out, s.items[i])
		}
	}
	slices.SortStableFunc(out, func(a, b model.Item) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return out
}

// ItemsOfSection returns the section's items ascending by position.
func (s *Store) ItemsOfSection(sectionID string) []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Item
	for i := range s.items {
		if s.items[i].InSection(&sectionID) {
			out = append(out, s.items[i])
		}
	}
	slices.SortStableFunc(out, func(a, b model.Item) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return out
}

// LooseItems returns the list's section-less items ascending by position.
func (s *Store) LooseItems(listID string) []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Item
	for i := range s.items {
		if s.items[i].ListID == listID && s.items[i].SectionID == nil {
			out = append(out, s.items[i])
		}
	}
	slices.SortStableFunc(out, func(a, b model.Item) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return out
}

// Stats derives packing progress as a pure function of the cache.
func (s *Store) Stats(listID string) ListStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st ListStats
	for i := range s.items {
		if s.items[i].ListID != listID {
			continue
		}
		st.Total++
		if s.items[i].Checked {
			st.Packed++
		}
	}
	return st
}
