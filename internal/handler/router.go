package handler

import (
	"net/http"

	"github.com/freeeve/checkmate-bot/internal/middleware"
)

// NewRouter wires the status endpoints behind the global middleware.
func NewRouter(h *StatusHandler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.Health)

	api := http.NewServeMux()
	api.HandleFunc("GET /bots", h.ListBots)
	api.HandleFunc("GET /rooms/{room}/matches", h.ListMatches)
	api.HandleFunc("GET /rooms/{room}/ready", h.ReadyCount)
	api.HandleFunc("GET /rooms/{room}/bots/{uid}/ready", h.BotReady)
	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", api))

	return middleware.Chain(mux, middleware.Logger, middleware.CORS("*"), middleware.JSON)
}
