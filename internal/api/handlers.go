package api

import "net/http"

// HealthHandler reports process liveness. It touches nothing: a pod that
// cannot reach its database is still alive.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadinessFunc probes a dependency the service cannot serve without,
// typically the database ping.
type ReadinessFunc func(r *http.Request) error

// ReadyHandler gates readiness on the probe. Load balancers drain the
// instance on 503 without killing it.
func ReadyHandler(check ReadinessFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := check(r); err != nil {
			writeJSON(w, http.StatusServiceUnavailable,
				map[string]string{"status": "unavailable", "reason": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
