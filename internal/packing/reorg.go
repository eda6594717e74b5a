package packing

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"packliste/internal/api"
	"packliste/internal/model"
)

// Disposition selects what happens to a section's items when the section is
// deleted.
type Disposition int

const (
	// DeleteAll removes the section together with its items.
	DeleteAll Disposition = iota
	// MoveToCatchAll reassigns the items into the list's catch-all section,
	// appended after its existing items.
	MoveToCatchAll
	// KeepAsLoose detaches the items from any section. Only valid when the
	// section is the last one remaining on its list.
	KeepAsLoose
)

var (
	// ErrCatchAllProtected rejects deleting the catch-all while the list
	// still has other sections.
	ErrCatchAllProtected = errors.New("catch-all section can only be deleted as the last section")
	// ErrNotLastSection rejects KeepAsLoose while other sections remain.
	ErrNotLastSection = errors.New("keep-as-loose requires the last remaining section")
	// ErrDuplicateCatchAll rejects a second catch-all on the same list.
	ErrDuplicateCatchAll = errors.New("list already has a catch-all section")
	// ErrCatchAllRenamed rejects renaming the catch-all section.
	ErrCatchAllRenamed = errors.New("catch-all section cannot be renamed")
)

// AddSection creates a section at the end of the list's section order. The
// first section of a list instead runs the grouped transition: the requested
// section is created, a catch-all is created right after it, and every loose
// item of the list moves into the catch-all.
func (s *Store) AddSection(ctx context.Context, listID, name string) (*model.Section, error) {
	s.mu.Lock()
	if s.listIndexLocked(listID) < 0 {
		s.mu.Unlock()
		return nil, nil
	}
	count := 0
	hasCatchAll := false
	for i := range s.sections {
		if s.sections[i].ListID == listID {
			count++
			if s.sections[i].IsCatchAll() {
				hasCatchAll = true
			}
		}
	}
	s.mu.Unlock()

	if count == 0 {
		return s.ensureGrouped(ctx, listID, name)
	}
	if name == model.CatchAllName && hasCatchAll {
		return nil, ErrDuplicateCatchAll
	}

	section, err := s.client.CreateSection(ctx, api.SectionFields{ListID: listID, Name: name, Position: count})
	if err != nil {
		s.notifier.Notify(LevelError, msgCreateSectionFailed)
		return nil, fmt.Errorf("create section: %w", err)
	}
	s.mu.Lock()
	s.sections = append(s.sections, *section)
	s.mu.Unlock()
	s.touchList(ctx, listID)
	return section, nil
}

// ensureGrouped performs the ungrouped-to-grouped transition for a list that
// has no sections yet. Local state is committed only after all remote writes
// succeed; a mid-sequence failure leaves the remote side ahead of the cache
// until the next load.
func (s *Store) ensureGrouped(ctx context.Context, listID, firstName string) (*model.Section, error) {
	first, err := s.client.CreateSection(ctx, api.SectionFields{ListID: listID, Name: firstName, Position: 0})
	if err != nil {
		s.notifier.Notify(LevelError, msgCreateSectionFailed)
		return nil, fmt.Errorf("create first section: %w", err)
	}

	// If the first section is itself named like the catch-all, it becomes
	// the catch-all; a second one would break uniqueness.
	catchAll := first
	if firstName != model.CatchAllName {
		catchAll, err = s.client.CreateSection(ctx, api.SectionFields{ListID: listID, Name: model.CatchAllName, Position: 1})
		if err != nil {
			s.notifier.Notify(LevelError, msgCreateSectionFailed)
			return nil, fmt.Errorf("create catch-all: %w", err)
		}
	}

	s.mu.Lock()
	var looseIDs []string
	for _, i := range s.scopeIndexesLocked(listID, nil) {
		looseIDs = append(looseIDs, s.items[i].ID)
	}
	s.mu.Unlock()

	// Loose positions are already dense, so the relative order carries over
	// into the catch-all unchanged.
	if len(looseIDs) > 0 {
		if err := s.client.ReassignSection(ctx, looseIDs, &catchAll.ID); err != nil {
			s.notifier.Notify(LevelError, msgCreateSectionFailed)
			return nil, fmt.Errorf("migrate loose items: %w", err)
		}
	}

	s.mu.Lock()
	s.sections = append(s.sections, *first)
	if catchAll != first {
		s.sections = append(s.sections, *catchAll)
	}
	for i := range s.items {
		if s.items[i].ListID == listID && s.items[i].SectionID == nil {
			id := catchAll.ID
			s.items[i].SectionID = &id
		}
	}
	s.mu.Unlock()
	s.touchList(ctx, listID)
	return first, nil
}

// UpdateSection patches a section's name or collapsed flag. The catch-all
// keeps its name: renaming it, or renaming another section to the catch-all
// name, is rejected.
func (s *Store) UpdateSection(ctx context.Context, id string, patch api.SectionPatch) error {
	s.mu.Lock()
	idx := s.sectionIndexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	if patch.Name != nil {
		if s.sections[idx].IsCatchAll() && *patch.Name != model.CatchAllName {
			s.mu.Unlock()
			return ErrCatchAllRenamed
		}
		if !s.sections[idx].IsCatchAll() && *patch.Name == model.CatchAllName {
			s.mu.Unlock()
			return ErrDuplicateCatchAll
		}
	}
	snap := s.capture()
	if patch.Name != nil {
		s.sections[idx].Name = *patch.Name
	}
	if patch.IsCollapsed != nil {
		s.sections[idx].IsCollapsed = *patch.IsCollapsed
	}
	s.mu.Unlock()

	if _, err := s.client.UpdateSection(ctx, id, patch); err != nil {
		s.restore(snap)
		s.notifier.Notify(LevelError, msgUpdateSectionFailed)
		return fmt.Errorf("update section: %w", err)
	}
	return nil
}

// DeleteSection removes a section with the chosen item disposition. An empty
// section is always removed as DeleteAll, whatever the caller chose. The
// catch-all can only go as the last section of its list.
func (s *Store) DeleteSection(ctx context.Context, id string, disposition Disposition) error {
	s.mu.Lock()
	idx := s.sectionIndexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	sec := s.sections[idx]
	sectionCount := 0
	for i := range s.sections {
		if s.sections[i].ListID == sec.ListID {
			sectionCount++
		}
	}
	itemCount := s.countScopeLocked(sec.ListID, &sec.ID)
	s.mu.Unlock()

	if sec.IsCatchAll() && sectionCount > 1 {
		return ErrCatchAllProtected
	}
	if itemCount == 0 {
		disposition = DeleteAll
	}
	if disposition == KeepAsLoose && sectionCount > 1 {
		return ErrNotLastSection
	}

	switch disposition {
	case MoveToCatchAll:
		return s.deleteSectionMove(ctx, sec)
	case KeepAsLoose:
		return s.deleteSectionLoose(ctx, sec)
	default:
		return s.deleteSectionAll(ctx, sec)
	}
}

func (s *Store) deleteSectionAll(ctx context.Context, sec model.Section) error {
	s.mu.Lock()
	snap := s.capture()
	s.sections = slices.DeleteFunc(s.sections, func(x model.Section) bool { return x.ID == sec.ID })
	s.items = slices.DeleteFunc(s.items, func(it model.Item) bool { return it.InSection(&sec.ID) })
	updates := s.renumberSectionsLocked(sec.ListID)
	s.mu.Unlock()

	if err := s.client.DeleteSection(ctx, sec.ID); err != nil {
		s.restore(snap)
		s.notifier.Notify(LevelError, msgDeleteSectionFailed)
		return fmt.Errorf("delete section: %w", err)
	}
	if len(updates) > 0 {
		if err := s.client.ReorderSections(ctx, updates); err != nil {
			s.restore(snap)
			s.notifier.Notify(LevelError, msgDeleteSectionFailed)
			return fmt.Errorf("renumber sections: %w", err)
		}
	}
	s.touchList(ctx, sec.ListID)
	return nil
}

func (s *Store) deleteSectionMove(ctx context.Context, sec model.Section) error {
	s.mu.Lock()
	catchIdx := -1
	sectionCount := 0
	for i := range s.sections {
		if s.sections[i].ListID == sec.ListID {
			sectionCount++
			if s.sections[i].IsCatchAll() {
				catchIdx = i
			}
		}
	}
	var catchAll model.Section
	if catchIdx >= 0 {
		catchAll = s.sections[catchIdx]
	}
	s.mu.Unlock()

	// The grouped invariant says the catch-all exists, but a diverged cache
	// can get here without one. Recreate it before moving anything.
	created := false
	if catchIdx < 0 {
		ca, err := s.client.CreateSection(ctx, api.SectionFields{ListID: sec.ListID, Name: model.CatchAllName, Position: sectionCount})
		if err != nil {
			s.notifier.Notify(LevelError, msgDeleteSectionFailed)
			return fmt.Errorf("create catch-all: %w", err)
		}
		catchAll = *ca
		created = true
	}

	s.mu.Lock()
	snap := s.capture()
	if created {
		s.sections = append(s.sections, catchAll)
	}
	base := s.countScopeLocked(sec.ListID, &catchAll.ID)
	var movedIDs []string
	var posUpdates []api.PositionUpdate
	for k, i := range s.scopeIndexesLocked(sec.ListID, &sec.ID) {
		caID := catchAll.ID
		s.items[i].SectionID = &caID
		if s.items[i].Position != base+k {
			s.items[i].Position = base + k
			posUpdates = append(posUpdates, api.PositionUpdate{ID: s.items[i].ID, Position: base + k})
		}
		movedIDs = append(movedIDs, s.items[i].ID)
	}
	s.sections = slices.DeleteFunc(s.sections, func(x model.Section) bool { return x.ID == sec.ID })
	secUpdates := s.renumberSectionsLocked(sec.ListID)
	s.mu.Unlock()

	if err := s.client.ReassignSection(ctx, movedIDs, &catchAll.ID); err != nil {
		s.restore(snap)
		s.notifier.Notify(LevelError, msgDeleteSectionFailed)
		return fmt.Errorf("reassign items: %w", err)
	}
	if len(posUpdates) > 0 {
		if err := s.client.ReorderItems(ctx, posUpdates); err != nil {
			s.restore(snap)
			s.notifier.Notify(LevelError, msgDeleteSectionFailed)
			return fmt.Errorf("renumber moved items: %w", err)
		}
	}
	if err := s.client.DeleteSection(ctx, sec.ID); err != nil {
		s.restore(snap)
		s.notifier.Notify(LevelError, msgDeleteSectionFailed)
		return fmt.Errorf("delete section: %w", err)
	}
	if len(secUpdates) > 0 {
		if err := s.client.ReorderSections(ctx, secUpdates); err != nil {
			s.restore(snap)
			s.notifier.Notify(LevelError, msgDeleteSectionFailed)
			return fmt.Errorf("renumber sections: %w", err)
		}
	}
	s.touchList(ctx, sec.ListID)
	return nil
}

// deleteSectionLoose runs the grouped-to-ungrouped transition: the sole
// remaining section goes away and its items become loose.
func (s *Store) deleteSectionLoose(ctx context.Context, sec model.Section) error {
	s.mu.Lock()
	snap := s.capture()
	base := s.countScopeLocked(sec.ListID, nil)
	var movedIDs []string
	var posUpdates []api.PositionUpdate
	for k, i := range s.scopeIndexesLocked(sec.ListID, &sec.ID) {
		s.items[i].SectionID = nil
		if s.items[i].Position != base+k {
			s.items[i].Position = base + k
			posUpdates = append(posUpdates, api.PositionUpdate{ID: s.items[i].ID, Position: base + k})
		}
		movedIDs = append(movedIDs, s.items[i].ID)
	}
	s.sections = slices.DeleteFunc(s.sections, func(x model.Section) bool { return x.ID == sec.ID })
	s.mu.Unlock()

	// Reassign before deleting so the server's cascade finds the section
	// already empty.
	if err := s.client.ReassignSection(ctx, movedIDs, nil); err != nil {
		s.restore(snap)
		s.notifier.Notify(LevelError, msgDeleteSectionFailed)
		return fmt.Errorf("detach items: %w", err)
	}
	if len(posUpdates) > 0 {
		if err := s.client.ReorderItems(ctx, posUpdates); err != nil {
			s.restore(snap)
			s.notifier.Notify(LevelError, msgDeleteSectionFailed)
			return fmt.Errorf("renumber loose items: %w", err)
		}
	}
	if err := s.client.DeleteSection(ctx, sec.ID); err != nil {
		s.restore(snap)
		s.notifier.Notify(LevelError, msgDeleteSectionFailed)
		return fmt.Errorf("delete section: %w", err)
	}
	s.touchList(ctx, sec.ListID)
	return nil
}

// ReorderSections rewrites the list's section order to the given id
// sequence. Ids outside the list are ignored.
func (s *Store) ReorderSections(ctx context.Context, listID string, orderedIDs []string) error {
	s.mu.Lock()
	snap := s.capture()
	updates := make([]api.PositionUpdate, 0, len(orderedIDs))
	pos := 0
	for _, id := range orderedIDs {
		idx := s.sectionIndexLocked(id)
		if idx < 0 || s.sections[idx].ListID != listID {
			continue
		}
		s.sections[idx].Position = pos
		updates = append(updates, api.PositionUpdate{ID: id, Position: pos})
		pos++
	}
	s.mu.Unlock()

	if len(updates) == 0 {
		return nil
	}
	if err := s.client.ReorderSections(ctx, updates); err != nil {
		s.restore(snap)
		s.notifier.Notify(LevelError, msgReorderSectionsFailed)
		return fmt.Errorf("reorder sections: %w", err)
	}
	return nil
}
