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

type SectionHandler struct {
	sectionStore *store.SectionStore
	listStore    *store.ListStore
	hub          *ws.Hub
	logger       *slog.Logger
}

func NewSectionHandler(ss *store.SectionStore, ls *store.ListStore, hub *ws.Hub, logger *slog.Logger) *SectionHandler {
	return &SectionHandler{sectionStore: ss, listStore: ls, hub: hub, logger: logger}
}

// ownedListIDs filters the requested list ids down to lists the caller owns.
func ownedListIDs(r *http.Request, ls *store.ListStore, ids []string) ([]string, error) {
	owned := make([]string, 0, len(ids))
	userID := auth.UserID(r.Context())
	for _, id := range ids {
		list, err := ls.GetByID(id)
		if err != nil {
			return nil, err
		}
		if list != nil && list.OwnerID == userID {
			owned = append(owned, id)
		}
	}
	return owned, nil
}

func (h *SectionHandler) ownsSection(r *http.Request, id string) (*model.Section, error) {
	sec, err := h.sectionStore.GetByID(id)
	if err != nil || sec == nil {
		return nil, err
	}
	list, err := h.listStore.GetByID(sec.ListID)
	if err != nil {
		return nil, err
	}
	if list == nil || list.OwnerID != auth.UserID(r.Context()) {
		return nil, nil
	}
	return sec, nil
}

func (h *SectionHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := ownedListIDs(r, h.listStore, splitIDs(r.URL.Query().Get("list_ids")))
	if err != nil {
		h.logger.Error("resolve list ids", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sections")
		return
	}

	sections, err := h.sectionStore.ListByLists(ids)
	if err != nil {
		h.logger.Error("list sections", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sections")
		return
	}
	if sections == nil {
		sections = []model.Section{}
	}
	writeJSON(w, http.StatusOK, sections)
}

func (h *SectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ListID   string `json:"list_id"`
		Name     string `json:"name"`
		Position int    `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	list, err := h.listStore.GetByID(req.ListID)
	if err != nil {
		h.logger.Error("get list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create section")
		return
	}
	if list == nil || list.OwnerID != auth.UserID(r.Context()) {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}

	section, err := h.sectionStore.Create(req.ListID, req.Name, req.Position)
	if err != nil {
		h.logger.Error("create section", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create section")
		return
	}

	h.hub.Broadcast(auth.UserID(r.Context()), ws.NewEvent("section", "created", section.ID))
	writeJSON(w, http.StatusCreated, section)
}

func (h *SectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sec, err := h.ownsSection(r, id)
	if err != nil {
		h.logger.Error("get section", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update section")
		return
	}
	if sec == nil {
		writeError(w, http.StatusNotFound, "section not found")
		return
	}

	var req struct {
		Name        *string `json:"name"`
		IsCollapsed *bool   `json:"is_collapsed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	section, err := h.sectionStore.Update(id, req.Name, req.IsCollapsed)
	if err != nil {
		h.logger.Error("update section", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update section")
		return
	}

	h.hub.Broadcast(auth.UserID(r.Context()), ws.NewEvent("section", "updated", id))
	writeJSON(w, http.StatusOK, section)
}

func (h *SectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sec, err := h.ownsSection(r, id)
	if err != nil {
		h.logger.Error("get section", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete section")
		return
	}
	if sec == nil {
		writeError(w, http.StatusNotFound, "section not found")
		return
	}

	if err := h.sectionStore.Delete(id); err != nil {
		h.logger.Error("delete section", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete section")
		return
	}

	h.hub.Broadcast(auth.UserID(r.Context()), ws.NewEvent("section", "deleted", id))
	w.WriteHeader(http.StatusNoContent)
}

// Reorder applies position updates sequentially, skipping ids the caller
// does not own and stopping at the first store failure.
func (h *SectionHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var updates []store.PositionUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	for _, u := range updates {
		sec, err := h.ownsSection(r, u.ID)
		if err != nil {
			h.logger.Error("get section", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to reorder sections")
			return
		}
		if sec == nil {
			continue
		}
		if err := h.sectionStore.Reorder([]store.PositionUpdate{u}); err != nil {
			h.logger.Error("reorder section", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to reorder sections")
			return
		}
	}

	h.hub.Broadcast(auth.UserID(r.Context()), ws.NewEvent("section", "reordered", ""))
	w.WriteHeader(http.StatusNoContent)
}
