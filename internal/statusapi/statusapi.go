// Package statusapi exposes a tiny read-only HTTP status surface for
// operational visibility (/healthz, /devices, /endpoints), grounded on the
// chi-router-with-NotFound/MethodNotAllowed-handlers pattern in
// ManuGH/xg2g/internal/control/http/v3/factory.go, reduced to this
// module's scope: no auth middleware, no LAN guard, no RFC 7807 problem
// bodies — just JSON snapshots for a local operator or monitoring scrape.
package statusapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// DeviceSnapshot is one row of the /devices listing.
type DeviceSnapshot struct {
	Addr  string `json:"addr"`
	State string `json:"state"`
}

// EndpointSnapshot is one row of the /endpoints listing.
type EndpointSnapshot struct {
	ID    uint32 `json:"id"`
	Codec uint8  `json:"codec"`
}

// Snapshots is called on every request to the corresponding route; the
// coordinator supplies these closures so this package never touches
// mutable coordinator state directly (spec.md §5: "all mutation... happens
// on one execution context" — reads from other goroutines must go through
// a snapshot handed back across that boundary, not a shared pointer).
type Snapshots struct {
	Devices   func() []DeviceSnapshot
	Endpoints func() []EndpointSnapshot
}

// NewRouter builds the status API's chi router.
func NewRouter(snap Snapshots) http.Handler {
	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/devices", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, snap.Devices())
	})

	r.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, snap.Endpoints())
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
