package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"packliste/internal/auth"
	"packliste/internal/model"
	"packliste/internal/store"
	ws "packliste/internal/websocket"
)

type ListHandler struct {
	listStore *store.ListStore
	hub       *ws.Hub
	logger    *slog.Logger
}

func NewListHandler(ls *store.ListStore, hub *ws.Hub, logger *slog.Logger) *ListHandler {
	return &ListHandler{listStore: ls, hub: hub, logger: logger}
}

type listRequest struct {
	Name  *string `json:"name"`
	Emoji *string `json:"emoji"`
	Color *string `json:"color"`
}

// ownedList loads the list and enforces ownership. Writes the error
// response and returns nil when the caller may not touch it.
func (h *ListHandler) ownedList(w http.ResponseWriter, r *http.Request, id string) *model.List {
	list, err := h.listStore.GetByID(id)
	if err != nil {
		h.logger.Error("get list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get list")
		return nil
	}
	if list == nil || list.OwnerID != auth.UserID(r.Context()) {
		writeError(w, http.StatusNotFound, "list not found")
		return nil
	}
	return list
}

func (h *ListHandler) List(w http.ResponseWriter, r *http.Request) {
	lists, err := h.listStore.ListByOwner(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list lists", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list lists")
		return
	}
	if lists == nil {
		lists = []model.List{}
	}
	writeJSON(w, http.StatusOK, lists)
}

func (h *ListHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	name := ""
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	emoji, color := "", ""
	if req.Emoji != nil {
		emoji = *req.Emoji
	}
	if req.Color != nil {
		color = *req.Color
	}

	list, err := h.listStore.Create(auth.UserID(r.Context()), name, emoji, color)
	if err != nil {
		h.logger.Error("create list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create list")
		return
	}

	h.hub.Broadcast(auth.UserID(r.Context()), ws.NewEvent("list", "created", list.ID))
	writeJSON(w, http.StatusCreated, list)
}

func (h *ListHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if h.ownedList(w, r, id) == nil {
		return
	}

	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	list, err := h.listStore.Update(id, req.Name, req.Emoji, req.Color)
	if err != nil {
		h.logger.Error("update list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update list")
		return
	}

	h.hub.Broadcast(auth.UserID(r.Context()), ws.NewEvent("list", "updated", id))
	writeJSON(w, http.StatusOK, list)
}

func (h *ListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if h.ownedList(w, r, id) == nil {
		return
	}

	if err := h.listStore.Delete(id); err != nil {
		h.logger.Error("delete list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete list")
		return
	}

	h.hub.Broadcast(auth.UserID(r.Context()), ws.NewEvent("list", "deleted", id))
	w.WriteHeader(http.StatusNoContent)
}

// Touch bumps the list's updated_at so content mutations surface in
// "recently active" ordering.
func (h *ListHandler) Touch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if h.ownedList(w, r, id) == nil {
		return
	}

	updatedAt, err := h.listStore.Touch(id)
	if err != nil {
		h.logger.Error("touch list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to touch list")
		return
	}

	writeJSON(w, http.StatusOK, map[string]time.Time{"updated_at": updatedAt})
}
