package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const (
	actionShutdown = "shutdown"
	actionRestart  = "restart"
)

// ServerAPI holds the dependencies for the server management handlers.
type ServerAPI struct {
	app        *App
	actionChan chan string
	logger     *slog.Logger
}

// VersionInfo defines the structure for build/version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// HealthInfo is the JSON response of the health check.
type HealthInfo struct {
	Status       string `json:"status"`
	Backend      string `json:"backend"`
	CachedModels int    `json:"cached_models"`
	Workers      int    `json:"workers"`
}

// NewServerAPI creates a new instance of the ServerAPI.
func NewServerAPI(app *App, actionChan chan string, logger *slog.Logger) *ServerAPI {
	return &ServerAPI{
		app:        app,
		actionChan: actionChan,
		logger:     logger,
	}
}

// RegisterRoutes sets up the routing for the /api/server, /api/health and cache stats endpoints.
func (a *ServerAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", a.handleHealth)
	mux.HandleFunc("/api/stats/cache", a.handleCacheStats)
	mux.HandleFunc("/api/server/config", a.handleConfig)
	mux.HandleFunc("/api/server/version", a.handleVersion)
	mux.HandleFunc("/api/server/shutdown", a.handleShutdown)
	mux.HandleFunc("/api/server/restart", a.handleRestart)
}

// handleHealth reports whether the corpus database answers.
func (a *ServerAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	info := HealthInfo{
		Status:       "ok",
		Backend:      a.app.config.Corpus.Backend,
		CachedModels: a.app.cache.Len(),
		Workers:      a.app.pool.Size(),
	}
	if a.app.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.app.db.PingContext(ctx); err != nil {
			a.logger.Error("Health check failed", slog.String("error", err.Error()))
			info.Status = "unavailable"
			respondWithJSON(w, http.StatusServiceUnavailable, info)
			return
		}
	}
	respondWithJSON(w, http.StatusOK, info)
}

// handleCacheStats returns the model cache counters.
func (a *ServerAPI) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondWithJSON(w, http.StatusOK, a.app.cache.Stats())
}

// handleConfig returns the running configuration. Secrets are not part of it.
func (a *ServerAPI) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondWithJSON(w, http.StatusOK, a.app.config)
}

// handleVersion returns the application's build information.
func (a *ServerAPI) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondWithJSON(w, http.StatusOK, VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	})
}

// handleShutdown initiates a graceful shutdown of the server.
func (a *ServerAPI) handleShutdown(w http.ResponseWriter, r *http.Request) {
	a.sendAction(w, r, actionShutdown, "Server is shutting down...")
}

// handleRestart initiates a graceful restart of the server.
func (a *ServerAPI) handleRestart(w http.ResponseWriter, r *http.Request) {
	a.sendAction(w, r, actionRestart, "Server is restarting...")
}

func (a *ServerAPI) sendAction(w http.ResponseWriter, r *http.Request, action, message string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	a.logger.Warn("Action initiated via API", slog.String("action", action))
	respondWithJSON(w, http.StatusAccepted, map[string]string{"message": message})

	go func() {
		a.actionChan <- action
	}()
}
