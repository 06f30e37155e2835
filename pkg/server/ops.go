package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// rosterResponse is the /v1/handles payload.
type rosterResponse struct {
	Count   int      `json:"count"`
	Handles []string `json:"handles"`
}

// OpsHandler returns the HTTP surface for operating the relay:
//
//	GET /healthz      liveness, 200 while the process runs
//	GET /readyz       readiness, 200 once the listener is up, 503 during shutdown
//	GET /metrics      Prometheus exposition
//	GET /v1/handles   the current roster as JSON
//
// Mount it on its own listener; the relay port speaks only the frame
// protocol.
func (srv *Server) OpsHandler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !srv.ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready\n"))
	})

	r.Handle("/metrics", promhttp.HandlerFor(srv.metrics.Gatherer(), promhttp.HandlerOpts{}))

	r.Get("/v1/handles", func(w http.ResponseWriter, _ *http.Request) {
		handles := srv.directory.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rosterResponse{
			Count:   len(handles),
			Handles: handles,
		})
	})

	return r
}
