package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"packliste/internal/auth"
	"packliste/internal/model"
	"packliste/internal/store"
	ws "packliste/internal/websocket"
)

type ItemHandler struct {
	itemStore *store.ItemStore
	listStore *store.ListStore
	hub       *ws.Hub
	logger    *slog.Logger
}

func NewItemHandler(is *store.ItemStore, ls *store.ListStore, hub *ws.Hub, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{itemStore: is, listStore: ls, hub: hub, logger: logger}
}

func (h *ItemHandler) ownsItem(r *http.Request, id string) (*model.Item, error) {
	it, err := h.itemStore.GetByID(id)
	if err != nil || it == nil {
		return nil, err
	}
	list, err := h.listStore.GetByID(it.ListID)
	if err != nil {
		return nil, err
	}
	if list == nil || list.OwnerID != auth.UserID(r.Context()) {
		return nil, nil
	}
	return it, nil
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := ownedListIDs(r, h.listStore, splitIDs(r.URL.Query().Get("list_ids")))
	if err != nil {
		h.logger.Error("resolve list ids", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	items, err := h.itemStore.ListByLists(ids)
	if err != nil {
		h.logger.Error("list items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ListID    string  `json:"list_id"`
		SectionID *string `json:"section_id"`
		Text      string  `json:"text"`
		Position  int     `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	list, err := h.listStore.GetByID(req.ListID)
	if err != nil {
		h.logger.Error("get list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}
	if list == nil || list.OwnerID != auth.UserID(r.Context()) {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}

	item, err := h.itemStore.Create(req.ListID, req.SectionID, req.Text, req.Position)
	if err != nil {
		h.logger.Error("create item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	h.hub.Broadcast(auth.UserID(r.Context()), ws.NewEvent("item", "created", item.ID))
	writeJSON(w, http.StatusCreated, item)
}

// itemPatch distinguishes "field absent" from "field set to null" for
// section_id by decoding into a raw map first.
type itemPatch struct {
	Text      *string
	Checked   *bool
	Position  *int
	SectionID **string
}

func decodeItemPatch(r *http.Request) (*itemPatch, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}

	var p itemPatch
	if v, ok := raw["text"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, err
		}
		p.Text = &s
	}
	if v, ok := raw["checked"]; ok {
		var b bool
		if err := json.Unmarshal(v, &b); err != nil {
			return nil, err
		}
		p.Checked = &b
	}
	if v, ok := raw["position"]; ok {
		var n int
		if err := json.Unmarshal(v, &n); err != nil {
			return nil, err
		}
		p.Position = &n
	}
	if v, ok := raw["section_id"]; ok {
		var s *string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, err
		}
		p.SectionID = &s
	}
	return &p, nil
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	it, err := h.ownsItem(r, id)
	if err != nil {
		h.logger.Error("get item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}
	if it == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	patch, err := decodeItemPatch(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	item, err := h.itemStore.Update(id, patch.Text, patch.Checked, patch.Position, patch.SectionID)
	if err != nil {
		h.logger.Error("update item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	h.hub.Broadcast(auth.UserID(r.Context()), ws.NewEvent("item", "updated", id))
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	it, err := h.ownsItem(r, id)
	if err != nil {
		h.logger.Error("get item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}
	if it == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	if err := h.itemStore.Delete(id); err != nil {
		h.logger.Error("delete item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	h.hub.Broadcast(auth.UserID(r.Context()), ws.NewEvent("item", "deleted", id))
	w.WriteHeader(http.StatusNoContent)
}

// Reorder applies position updates sequentially, skipping ids the caller
// does not own and stopping at the first store failure.
func (h *ItemHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var updates []store.PositionUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	for _, u := range updates {
		it, err := h.ownsItem(r, u.ID)
		if err != nil {
			h.logger.Error("get item", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to reorder items")
			return
		}
		if it == nil {
			continue
		}
		if err := h.itemStore.Reorder([]store.PositionUpdate{u}); err != nil {
			h.logger.Error("reorder item", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to reorder items")
			return
		}
	}

	h.hub.Broadcast(auth.UserID(r.Context()), ws.NewEvent("item", "reordered", ""))
	w.WriteHeader(http.StatusNoContent)
}

// Reassign moves items into a section (or the loose scope for null),
// sequentially per item.
func (h *ItemHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemIDs   []string `json:"item_ids"`
		SectionID *string  `json:"section_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	for _, id := range req.ItemIDs {
		it, err := h.ownsItem(r, id)
		if err != nil {
			h.logger.Error("get item", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to reassign items")
			return
		}
		if it == nil {
			continue
		}
		if err := h.itemStore.ReassignSection([]string{id}, req.SectionID); err != nil {
			h.logger.Error("reassign item", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to reassign items")
			return
		}
	}

	h.hub.Broadcast(auth.UserID(r.Context()), ws.NewEvent("item", "reassigned", ""))
	w.WriteHeader(http.StatusNoContent)
}

// Reset unchecks every item of the list.
func (h *ItemHandler) Reset(w http.ResponseWriter, r *http.Request) {
	listID := r.PathValue("id")
	list, err := h.listStore.GetByID(listID)
	if err != nil {
		h.logger.Error("get list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reset items")
		return
	}
	if list == nil || list.OwnerID != auth.UserID(r.Context()) {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}

	if err := h.itemStore.ResetChecked(listID); err != nil {
		h.logger.Error("reset items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reset items")
		return
	}

	h.hub.Broadcast(auth.UserID(r.Context()), ws.NewEvent("item", "reset", listID))
	w.WriteHeader(http.StatusNoContent)
}
