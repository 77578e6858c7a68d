package api

import (
	"net/http"

	"github.com/queryloom/queryloom/internal/log"
)

// health is the liveness probe: the process is up and serving.
func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
}

// readiness reports whether the target database answers a probe query.
func readiness(executor QueryExecutor, logger log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !executor.Probe(r.Context()) {
			WriteError(w, http.StatusServiceUnavailable, "not_ready", "database unreachable", logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"}, logger)
	})
}
