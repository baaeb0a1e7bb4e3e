// Package api is the JSON ops surface used by the external admin dashboard:
// health, notification dispatcher control, and archived message listing. The
// call flow itself lives in package ivr.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/jeana-hines/group-voice-messaging/internal/notify"
	"github.com/jeana-hines/group-voice-messaging/internal/repo"
)

type Handler struct {
	dispatcher *notify.Dispatcher // nil when notifications are disabled
	messages   repo.MessageRepository
}

func NewHandler(dispatcher *notify.Dispatcher, messages repo.MessageRepository) *Handler {
	return &Handler{dispatcher: dispatcher, messages: messages}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) DispatcherStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dispatcherState())
}

func (h *Handler) DispatcherStart(w http.ResponseWriter, r *http.Request) {
	if h.dispatcher == nil {
		writeJSON(w, http.StatusConflict, h.dispatcherState())
		return
	}
	h.dispatcher.Start()
	writeJSON(w, http.StatusOK, h.dispatcherState())
}

func (h *Handler) DispatcherStop(w http.ResponseWriter, r *http.Request) {
	if h.dispatcher == nil {
		writeJSON(w, http.StatusConflict, h.dispatcherState())
		return
	}
	h.dispatcher.Stop()
	writeJSON(w, http.StatusOK, h.dispatcherState())
}

func (h *Handler) dispatcherState() map[string]any {
	if h.dispatcher == nil {
		return map[string]any{"enabled": false, "running": false}
	}
	return map[string]any{"enabled": true, "running": h.dispatcher.IsRunning()}
}

func (h *Handler) ListArchivedMessages(w http.ResponseWriter, r *http.Request) {
	to := r.URL.Query().Get("to")
	if to == "" {
		http.Error(w, "missing query param: to", http.StatusBadRequest)
		return
	}

	limit := parseInt(r.URL.Query().Get("limit"), 50)
	offset := parseInt(r.URL.Query().Get("offset"), 0)

	items, err := h.messages.ListArchived(r.Context(), to, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
