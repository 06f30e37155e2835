package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpsEndpoints(t *testing.T) {
	srv, addr := startServer(t, nil)
	waitFor(t, srv.ready.Load, "server readiness")

	peer := dialPeer(t, addr)
	peer.register("opsview")

	handler := srv.OpsHandler()

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	t.Run("healthz", func(t *testing.T) {
		if rec := get("/healthz"); rec.Code != http.StatusOK {
			t.Fatalf("healthz = %d, want 200", rec.Code)
		}
	})

	t.Run("readyz", func(t *testing.T) {
		if rec := get("/readyz"); rec.Code != http.StatusOK {
			t.Fatalf("readyz = %d, want 200", rec.Code)
		}
	})

	t.Run("handles", func(t *testing.T) {
		rec := get("/v1/handles")
		if rec.Code != http.StatusOK {
			t.Fatalf("handles = %d, want 200", rec.Code)
		}
		var roster rosterResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &roster); err != nil {
			t.Fatalf("decode roster: %v", err)
		}
		if roster.Count != 1 || len(roster.Handles) != 1 || roster.Handles[0] != "opsview" {
			t.Fatalf("roster = %+v, want exactly [opsview]", roster)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		if rec := get("/metrics"); rec.Code != http.StatusOK {
			t.Fatalf("metrics = %d, want 200", rec.Code)
		}
	})

	t.Run("readyz_after_close", func(t *testing.T) {
		srv.Close()
		if rec := get("/readyz"); rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("readyz after close = %d, want 503", rec.Code)
		}
	})
}

func TestOpsRosterEmpty(t *testing.T) {
	srv, _ := startServer(t, nil)

	rec := httptest.NewRecorder()
	srv.OpsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/handles", nil))

	var roster rosterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &roster); err != nil {
		t.Fatalf("decode roster: %v", err)
	}
	if roster.Count != 0 {
		t.Fatalf("count = %d, want 0", roster.Count)
	}
	if roster.Handles == nil {
		t.Fatal("handles should encode as an empty array, not null")
	}
}
