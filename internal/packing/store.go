// Package packing implements the client-side packing store: an in-memory
// cache of the signed-in user's lists, sections and items, mutated through
// optimistic operations.
//
// Every mutation follows the same protocol: snapshot the cache, apply the
// change locally, issue the remote write without holding the lock, and on
// failure restore the snapshot verbatim and emit one notification. Creates
// are the exception: the server assigns ids, so a create writes remotely
// first and caches the returned record, leaving nothing to roll back.
// Composite operations issue their remote writes sequentially; a
// mid-sequence failure rolls back the local state wholesale and tolerates
// the remote divergence until the next full load.
package packing

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"packliste/internal/api"
	"packliste/internal/model"
)

// Store caches all entities of one signed-in user. The lock covers only the
// synchronous local portion of an operation, never a remote call, so reads
// observe optimistic state while writes are in flight.
type Store struct {
	client   api.Client
	notifier Notifier
	logger   *slog.Logger

	mu       sync.Mutex
	userID   string
	loaded   bool
	loadErr  error
	lists    []model.List
	sections []model.Section
	items    []model.Item
}

func New(client api.Client, notifier Notifier, logger *slog.Logger) *Store {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, notifier: notifier, logger: logger}
}

// Load fetches the user's lists, then their sections and items in parallel.
// Any failure leaves the store unloaded with Err set and nothing cached.
func (s *Store) Load(ctx context.Context, userID string) error {
	lists, err := s.client.FetchLists(ctx, userID)
	if err != nil {
		return s.failLoad(fmt.Errorf("fetch lists: %w", err))
	}

	listIDs := make([]string, len(lists))
	for i, l := range lists {
		listIDs[i] = l.ID
	}

	var sections []model.Section
	var items []model.Item
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if sections, err = s.client.FetchSections(gctx, listIDs); err != nil {
			return fmt.Errorf("fetch sections: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if items, err = s.client.FetchItems(gctx, listIDs); err != nil {
			return fmt.Errorf("fetch items: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return s.failLoad(err)
	}

	s.mu.Lock()
	s.userID = userID
	s.lists = lists
	s.sections = sections
	s.items = items
	s.loaded = true
	s.loadErr = nil
	s.mu.Unlock()
	return nil
}

func (s *Store) failLoad(err error) error {
	s.mu.Lock()
	s.lists, s.sections, s.items = nil, nil, nil
	s.loaded = false
	s.loadErr = err
	s.mu.Unlock()
	s.logger.Error("load failed", "error", err)
	s.notifier.Notify(LevelError, msgLoadFailed)
	return err
}

// Clear resets the store to its unloaded state, as on sign-out.
func (s *Store) Clear() {
	s.mu.Lock()
	s.userID = ""
	s.loaded = false
	s.loadErr = nil
	s.lists, s.sections, s.items = nil, nil, nil
	s.mu.Unlock()
}

func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Err reports the load failure, if any.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// snapshot holds a verbatim copy of the cache for rollback.
type snapshot struct {
	lists    []model.List
	sections []model.Section
	items    []model.Item
}

// capture clones the cache. Caller holds the lock.
func (s *Store) capture() snapshot {
	return snapshot{
		lists:    slices.Clone(s.lists),
		sections: slices.Clone(s.sections),
		items:    slices.Clone(s.items),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	s.lists = snap.lists
	s.sections = snap.sections
	s.items = snap.items
	s.mu.Unlock()
}

func (s *Store) listIndexLocked(id string) int {
	return slices.IndexFunc(s.lists, func(l model.List) bool { return l.ID == id })
}

func (s *Store) sectionIndexLocked(id string) int {
	return slices.IndexFunc(s.sections, func(sec model.Section) bool { return sec.ID == id })
}

func (s *Store) itemIndexLocked(id string) int {
	return slices.IndexFunc(s.items, func(it model.Item) bool { return it.ID == id })
}

// countScopeLocked counts the items of one grouping scope, where a nil
// sectionID means the list's loose scope.
func (s *Store) countScopeLocked(listID string, sectionID *string) int {
	n := 0
	for i := range s.items {
		if s.items[i].ListID == listID && s.items[i].InSection(sectionID) {
			n++
		}
	}
	return n
}

// scopeIndexesLocked returns the cache indexes of a scope's items, ascending
// by position.
func (s *Store) scopeIndexesLocked(listID string, sectionID *string) []int {
	var idxs []int
	for i := range s.items {
		if s.items[i].ListID == listID && s.items[i].InSection(sectionID) {
			idxs = append(idxs, i)
		}
	}
	slices.SortStableFunc(idxs, func(a, b int) int {
		return cmp.Compare(s.items[a].Position, s.items[b].Position)
	})
	return idxs
}

// renumberScopeLocked rewrites a scope's positions to 0..n-1 and returns the
// updates for rows whose position changed.
func (s *Store) renumberScopeLocked(listID string, sectionID *string) []api.PositionUpdate {
	var updates []api.PositionUpdate
	for rank, i := range s.scopeIndexesLocked(listID, sectionID) {
		if s.items[i].Position != rank {
			s.items[i].Position = rank
			updates = append(updates, api.PositionUpdate{ID: s.items[i].ID, Position: rank})
		}
	}
	return updates
}

// renumberSectionsLocked rewrites a list's section positions to 0..n-1 and
// returns the updates for rows whose position changed.
func (s *Store) renumberSectionsLocked(listID string) []api.PositionUpdate {
	var idxs []int
	for i := range s.sections {
		if s.sections[i].ListID == listID {
			idxs = append(idxs, i)
		}
	}
	slices.SortStableFunc(idxs, func(a, b int) int {
		return cmp.Compare(s.sections[a].Position, s.sections[b].Position)
	})
	var updates []api.PositionUpdate
	for rank, i := range idxs {
		if s.sections[i].Position != rank {
			s.sections[i].Position = rank
			updates = append(updates, api.PositionUpdate{ID: s.sections[i].ID, Position: rank})
		}
	}
	return updates
}

// touchList bumps the owning list's activity timestamp and merges the new
// value. The content write already succeeded, so a touch failure is only
// logged.
func (s *Store) touchList(ctx context.Context, listID string) {
	ts, err := s.client.TouchList(ctx, listID)
	if err != nil {
		s.logger.Warn("touch list", "list_id", listID, "error", err)
		return
	}
	s.mu.Lock()
	if idx := s.listIndexLocked(listID); idx >= 0 {
		s.lists[idx].UpdatedAt = ts
	}
	s.mu.Unlock()
}

// AddList creates a list and caches the returned record.
func (s *Store) AddList(ctx context.Context, name, emoji string) (*model.List, error) {
	list, err := s.client.CreateList(ctx, api.ListFields{Name: name, Emoji: emoji})
	if err != nil {
		s.notifier.Notify(LevelError, msgCreateListFailed)
		return nil, fmt.Errorf("create list: %w", err)
	}
	s.mu.Lock()
	s.lists = append(s.lists, *list)
	s.mu.Unlock()
	return list, nil
}

// UpdateList patches a list's own fields. Field edits do not count as list
// activity, so no touch follows.
func (s *Store) UpdateList(ctx context.Context, id string, patch api.ListPatch) error {
	s.mu.Lock()
	idx := s.listIndexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	snap := s.capture()
	if patch.Name != nil {
		s.lists[idx].Name = *patch.Name
	}
	if patch.Emoji != nil {
		s.lists[idx].Emoji = *patch.Emoji
	}
	if patch.Color != nil {
		s.lists[idx].Color = *patch.Color
	}
	s.mu.Unlock()

	if _, err := s.client.UpdateList(ctx, id, patch); err != nil {
		s.restore(snap)
		s.notifier.Notify(LevelError, msgUpdateListFailed)
		return fmt.Errorf("update list: %w", err)
	}
	return nil
}

// DeleteList removes the list together with its sections and items. The
// server cascades, so a single remote delete suffices.
func (s *Store) DeleteList(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.listIndexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	snap := s.capture()
	s.lists = slices.Delete(s.lists, idx, idx+1)
	s.sections = slices.DeleteFunc(s.sections, func(sec model.Section) bool { return sec.ListID == id })
	s.items = slices.DeleteFunc(s.items, func(it model.Item) bool { return it.ListID == id })
	s.mu.Unlock()

	if err := s.client.DeleteList(ctx, id); err != nil {
		s.restore(snap)
		s.notifier.Notify(LevelError, msgDeleteListFailed)
		return fmt.Errorf("delete list: %w", err)
	}
	s.notifier.Notify(LevelSuccess, msgListDeleted)
	return nil
}

// AddItem appends an item to the given scope, where a nil sectionID means
// the list's loose scope.
func (s *Store) AddItem(ctx context.Context, listID string, sectionID *string, text string) (*model.Item, error) {
	s.mu.Lock()
	pos := s.countScopeLocked(listID, sectionID)
	s.mu.Unlock()

	item, err := s.client.CreateItem(ctx, api.ItemFields{
		ListID:    listID,
		SectionID: sectionID,
		Text:      text,
		Position:  pos,
	})
	if err != nil {
		s.notifier.Notify(LevelError, msgCreateItemFailed)
		return nil, fmt.Errorf("create item: %w", err)
	}
	s.mu.Lock()
	s.items = append(s.items, *item)
	s.mu.Unlock()
	s.touchList(ctx, listID)
	return item, nil
}

// UpdateItemText edits an item's text. Position and checked state are
// untouched.
func (s *Store) UpdateItemText(ctx context.Context, id, text string) error {
	s.mu.Lock()
	idx := s.itemIndexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	listID := s.items[idx].ListID
	snap := s.capture()
	s.items[idx].Text = text
	s.mu.Unlock()

	if _, err := s.client.UpdateItem(ctx, id, api.ItemPatch{Text: &text}); err != nil {
		s.restore(snap)
		s.notifier.Notify(LevelError, msgUpdateItemFailed)
		return fmt.Errorf("update item: %w", err)
	}
	s.touchList(ctx, listID)
	return nil
}

// ToggleItem flips an item's checked state. Toggles do not count as list
// activity.
func (s *Store) ToggleItem(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.itemIndexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	snap := s.capture()
	checked := !s.items[idx].Checked
	s.items[idx].Checked = checked
	s.mu.Unlock()

	if _, err := s.client.UpdateItem(ctx, id, api.ItemPatch{Checked: &checked}); err != nil {
		s.restore(snap)
		s.notifier.Notify(LevelError, msgUpdateItemFailed)
		return fmt.Errorf("toggle item: %w", err)
	}
	return nil
}

// DeleteItem removes an item and closes the position gap in its scope.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.itemIndexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	it := s.items[idx]
	snap := s.capture()
	s.items = slices.Delete(s.items, idx, idx+1)
	updates := s.renumberScopeLocked(it.ListID, it.SectionID)
	s.mu.Unlock()

	if err := s.client.DeleteItem(ctx, id); err != nil {
		s.restore(snap)
		s.notifier.Notify(LevelError, msgDeleteItemFailed)
		return fmt.Errorf("delete item: %w", err)
	}
	if len(updates) > 0 {
		if err := s.client.ReorderItems(ctx, updates); err != nil {
			s.restore(snap)
			s.notifier.Notify(LevelError, msgDeleteItemFailed)
			return fmt.Errorf("renumber after delete: %w", err)
		}
	}
	s.touchList(ctx, it.ListID)
	return nil
}

// ReorderItems rewrites the order of a list's loose items to the given id
// sequence. Ids outside the scope are ignored.
func (s *Store) ReorderItems(ctx context.Context, listID string, orderedIDs []string) error {
	return s.reorderScope(ctx, listID, nil, orderedIDs)
}

// ReorderSectionItems rewrites the order of a section's items to the given
// id sequence. Ids outside the scope are ignored.
func (s *Store) ReorderSectionItems(ctx context.Context, sectionID string, orderedIDs []string) error {
	s.mu.Lock()
	idx := s.sectionIndexLocked(sectionID)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	listID := s.sections[idx].ListID
	s.mu.Unlock()
	return s.reorderScope(ctx, listID, &sectionID, orderedIDs)
}

func (s *Store) reorderScope(ctx context.Context, listID string, sectionID *string, orderedIDs []string) error {
	s.mu.Lock()
	snap := s.capture()
	updates := make([]api.PositionUpdate, 0, len(orderedIDs))
	pos := 0
	for _, id := range orderedIDs {
		idx := s.itemIndexLocked(id)
		if idx < 0 || s.items[idx].ListID != listID || !s.items[idx].InSection(sectionID) {
			continue
		}
		s.items[idx].Position = pos
		updates = append(updates, api.PositionUpdate{ID: id, Position: pos})
		pos++
	}
	s.mu.Unlock()

	if len(updates) == 0 {
		return nil
	}
	if err := s.client.ReorderItems(ctx, updates); err != nil {
		s.restore(snap)
		s.notifier.Notify(LevelError, msgReorderItemsFailed)
		return fmt.Errorf("reorder items: %w", err)
	}
	return nil
}

// MoveItemToSection reassigns one item's section and position, where a nil
// sectionID moves it to the loose scope and a nil position appends it. The
// two remote writes are independent; a failure after the first leaves the
// remote row half-moved until the next load.
func (s *Store) MoveItemToSection(ctx context.Context, itemID string, sectionID *string, position *int) error {
	s.mu.Lock()
	idx := s.itemIndexLocked(itemID)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	listID := s.items[idx].ListID
	pos := 0
	if position != nil {
		pos = *position
	} else {
		pos = s.countScopeLocked(listID, sectionID)
	}
	snap := s.capture()
	if sectionID != nil {
		id := *sectionID
		s.items[idx].SectionID = &id
	} else {
		s.items[idx].SectionID = nil
	}
	s.items[idx].Position = pos
	s.mu.Unlock()

	if _, err := s.client.UpdateItem(ctx, itemID, api.ItemPatch{SectionID: &sectionID}); err != nil {
		s.restore(snap)
		s.notifier.Notify(LevelError, msgMoveItemFailed)
		return fmt.Errorf("move item: %w", err)
	}
	if _, err := s.client.UpdateItem(ctx, itemID, api.ItemPatch{Position: &pos}); err != nil {
		s.restore(snap)
		s.notifier.Notify(LevelError, msgMoveItemFailed)
		return fmt.Errorf("move item position: %w", err)
	}
	s.touchList(ctx, listID)
	return nil
}

// ResetListItems unchecks every item of the list.
func (s *Store) ResetListItems(ctx context.Context, listID string) error {
	s.mu.Lock()
	snap := s.capture()
	for i := range s.items {
		if s.items[i].ListID == listID {
			s.items[i].Checked = false
		}
	}
	s.mu.Unlock()

	if err := s.client.ResetChecked(ctx, listID); err != nil {
		s.restore(snap)
		s.notifier.Notify(LevelError, msgResetListFailed)
		return fmt.Errorf("reset list items: %w", err)
	}
	return nil
}
