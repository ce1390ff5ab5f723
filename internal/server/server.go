// Package server exposes the interview orchestration API, the session
// event stream, and the Prometheus scrape endpoint.
package server

import (
	"net/http"
)

// Options bundles the collaborators the HTTP surface needs.
type Options struct {
	Orchestrator Orchestrator
	Auth         Authenticator
	Hub          *Hub
	RateLimiter  *RateLimiter
	Requests     RequestRecorder
	Metrics      http.Handler
}

// Handler assembles the full route table.
func Handler(opts Options) http.Handler {
	mux := http.NewServeMux()

	registerAPIRoutes(mux, opts.Orchestrator, opts.Auth, opts.RateLimiter, opts.Requests)
	if opts.Hub != nil {
		registerWSRoute(mux, opts.Hub)
	}
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}
