package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func setupRouter(a *app) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /metrics", a.collector.Handler())
	mux.Handle("GET /metrics/prometheus", a.prometheus.Handler())
	mux.HandleFunc("GET /breakers", breakersHandler(a))
	mux.HandleFunc("POST /breakers/reset", resetHandler(a))

	return mux
}

func breakersHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, a.registry.Stats())
	}
}

// resetHandler closes the breaker named by the name query parameter, or
// every breaker when the parameter is absent.
func resetHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			a.registry.ResetAll()
			a.log.Info("All breakers reset")
			writeJSON(w, http.StatusOK, map[string]string{"reset": "all"})
			return
		}

		if !a.registry.Reset(name) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown breaker"})
			return
		}

		a.log.Info("Breaker reset", slog.String("breaker", name))
		writeJSON(w, http.StatusOK, map[string]string{"reset": name})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", slog.String("error", err.Error()))
	}
}
