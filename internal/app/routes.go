package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"placewatch/presence-server/internal/model"
	"placewatch/presence-server/internal/pipeline"
	"placewatch/presence-server/internal/user"
)

// Source label for fixes delivered over the HTTP ingest endpoint.
const httpSource = "http"

func (a *App) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/readyz", a.handleReadyz)
	mux.HandleFunc("/api/locations", a.handleLocation)
	mux.HandleFunc("/api/users/", a.handleUserState)
	mux.HandleFunc("/api/home", a.handleHome)
	mux.HandleFunc("/api/home/clear", a.handleHomeClear)
	mux.HandleFunc("/api/config", a.handleConfig)
	return mux
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (a *App) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if a.store == nil || a.pipeline == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"starting"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

// handleLocation is the direct-invocation ingest path: a structured fix in,
// the enriched result back out, whether or not the monotonic guard let the
// detailed record persist.
func (a *App) handleLocation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.DirectFix
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if req.Latitude == nil || req.Longitude == nil || req.Timestamp == nil {
		http.Error(w, "latitude, longitude and timestamp are required", http.StatusBadRequest)
		return
	}

	fix := model.Fix{
		User:      req.User,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Timestamp: *req.Timestamp,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	result, err := a.pipeline.Process(ctx, fix, httpSource)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidMessage) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a.logger.Error("failed to process fix", "error", err)
		http.Error(w, "failed to process fix", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		a.logger.Error("failed to encode fix response", "error", err)
	}
}

func (a *App) handleUserState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/users/")
	if name == "" || strings.Contains(name, "/") {
		http.NotFound(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	states, err := a.store.StatesByPrefix(ctx, user.StorageKey(name)+".")
	if err != nil {
		a.logger.Error("failed to load user state", "user", name, "error", err)
		http.Error(w, "failed to load user state", http.StatusInternalServerError)
		return
	}

	if len(states) == 0 {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(states); err != nil {
		a.logger.Error("failed to encode user state response", "error", err)
	}
}

func (a *App) handleHome(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.serveHome(w, r)
	case http.MethodPut:
		a.replaceHome(w, r)
	default:
		w.Header().Set("Allow", "GET, PUT")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *App) serveHome(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, err := a.roster.Snapshot(ctx)
	if err != nil {
		a.logger.Error("failed to load home status", "error", err)
		http.Error(w, "failed to load home status", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		a.logger.Error("failed to encode home status", "error", err)
	}
}

// replaceHome overwrites the roster with an externally supplied membership
// list; the derived scalars are recomputed from the new value. A malformed
// body resets the roster to empty, mirroring how corrupt persisted state is
// treated.
func (a *App) replaceHome(w http.ResponseWriter, r *http.Request) {
	var persons []string
	if err := json.NewDecoder(r.Body).Decode(&persons); err != nil {
		persons = []string{}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.roster.Replace(ctx, persons); err != nil {
		a.logger.Error("failed to replace roster", "error", err)
		http.Error(w, "failed to replace roster", http.StatusInternalServerError)
		return
	}

	a.serveHome(w, r)
}

func (a *App) handleHomeClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.roster.Clear(ctx); err != nil {
		a.logger.Error("failed to clear roster", "error", err)
		http.Error(w, "failed to clear roster", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	active := map[string]any{
		"http_port":     a.cfg.HTTPPort,
		"metrics_port":  a.cfg.MetricsPort,
		"database_path": a.cfg.DatabasePath,
		"log_level":     a.cfg.LogLevel,
		"mqtt_broker":   a.cfg.MQTTBrokerURL,
		"mqtt_topic":    a.cfg.MQTTTopic,
		"home_name":     a.cfg.Settings.Home.Name,
		"places":        len(a.cfg.Settings.Places),
		"users":         len(a.cfg.Settings.Users),
		"geocoding":     a.cfg.Settings.Geocoding.Enabled,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(active); err != nil {
		a.logger.Error("failed to encode config response", "error", err)
	}
}
