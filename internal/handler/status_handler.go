package handler

import (
	"net/http"
	"strconv"

	"github.com/freeeve/checkmate-bot/internal/bot"
	"github.com/freeeve/checkmate-bot/internal/model"
	"github.com/freeeve/checkmate-bot/internal/repository"
)

const maxMatchLimit = 500

// StatusSource is anything that can summarize a running bot.
type StatusSource interface {
	Status() bot.SessionStatus
}

// StatusHandler serves read-only views of the running fleet and its history.
type StatusHandler struct {
	sessions []StatusSource
	matches  repository.MatchRepository
	store    repository.StateStore
}

// NewStatusHandler creates a StatusHandler. matches and store may be nil.
func NewStatusHandler(sessions []StatusSource, matches repository.MatchRepository, store repository.StateStore) *StatusHandler {
	return &StatusHandler{sessions: sessions, matches: matches, store: store}
}

// Health handles GET /healthz
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "bots": len(h.sessions)})
}

// ListBots handles GET /api/v1/bots
func (h *StatusHandler) ListBots(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	out := make([]bot.SessionStatus, 0, len(h.sessions))
	for _, s := range h.sessions {
		st := s.Status()
		if room != "" && st.Room != room {
			continue
		}
		out = append(out, st)
	}
	writeJSON(w, http.StatusOK, out)
}

// ListMatches handles GET /api/v1/rooms/{room}/matches
func (h *StatusHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	if h.matches == nil {
		writeError(w, http.StatusServiceUnavailable, "match history is not configured")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxMatchLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	matches, err := h.matches.ListByRoom(r.Context(), r.PathValue("room"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if matches == nil {
		matches = []model.Match{}
	}
	writeJSON(w, http.StatusOK, matches)
}

// ReadyCount handles GET /api/v1/rooms/{room}/ready
func (h *StatusHandler) ReadyCount(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "state store is not configured")
		return
	}
	room := r.PathValue("room")
	n, err := h.store.ReadyCount(r.Context(), room)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room": room, "ready": n})
}

// BotReady handles GET /api/v1/rooms/{room}/bots/{uid}/ready
func (h *StatusHandler) BotReady(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "state store is not configured")
		return
	}
	uid, err := strconv.ParseUint(r.PathValue("uid"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid uid")
		return
	}
	room := r.PathValue("room")
	ready, err := h.store.IsReady(r.Context(), room, uint32(uid))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room": room, "uid": uid, "ready": ready})
}
