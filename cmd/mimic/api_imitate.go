package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/CTAG07/Mimic/pkg/corpus"
	"github.com/CTAG07/Mimic/pkg/transform"
)

// maxTransformInput bounds the request body of a transform.
const maxTransformInput = 64 << 10

// ImitateAPI holds the dependencies for the imitation and transform handlers.
type ImitateAPI struct {
	app    *App
	logger *slog.Logger
}

// NewImitateAPI creates a new instance of the ImitateAPI.
func NewImitateAPI(app *App, logger *slog.Logger) *ImitateAPI {
	return &ImitateAPI{app: app, logger: logger}
}

// RegisterRoutes sets up the routing for the imitation, model and transform endpoints.
func (a *ImitateAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/imitate/{guild}/{user}", a.handleImitate)
	mux.HandleFunc("/api/stats/model/{guild}/{user}", a.handleModelStats)
	mux.HandleFunc("/api/models/{guild}/{user}/export", a.handleExport)
	mux.HandleFunc("/api/transform/{variant}", a.handleTransform)
}

// ImitateResponse is the JSON response of a successful imitation.
type ImitateResponse struct {
	GuildID string `json:"guild_id"`
	UserID  string `json:"user_id"`
	Text    string `json:"text"`
}

// TransformResponse is the JSON response of a transform.
type TransformResponse struct {
	Variant string `json:"variant"`
	Text    string `json:"text"`
}

func keyFromPath(r *http.Request) corpus.Key {
	return corpus.Key{GuildID: r.PathValue("guild"), UserID: r.PathValue("user")}
}

// commandContext applies the configured per-command timeout to the request context.
func commandContext(r *http.Request, app *App) (context.Context, context.CancelFunc) {
	if timeout := app.config.Server.CommandTimeout(); timeout > 0 {
		return context.WithTimeout(r.Context(), timeout)
	}
	return context.WithCancel(r.Context())
}

// respondWithCommandError maps the errors of model operations onto status codes.
func respondWithCommandError(w http.ResponseWriter, logger *slog.Logger, key corpus.Key, err error) {
	switch {
	case errors.Is(err, corpus.ErrNotFound):
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("No messages recorded for %s", key))
	case errors.Is(err, context.DeadlineExceeded):
		respondWithError(w, http.StatusGatewayTimeout, "Timed out building the model")
	case errors.Is(err, context.Canceled):
		// The client went away.
	default:
		logger.Error("Model operation failed", slog.String("key", key.String()), slog.String("error", err.Error()))
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Model operation failed: %v", err))
	}
}

// handleImitate samples a text from the user's model.
func (a *ImitateAPI) handleImitate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	key := keyFromPath(r)
	maxLength := a.app.config.Server.MaxSampleLength
	if raw := r.URL.Query().Get("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondWithError(w, http.StatusBadRequest, "max must be a positive integer")
			return
		}
		maxLength = n
	}

	ctx, cancel := commandContext(r, a.app)
	defer cancel()

	text, ok, err := a.app.Sample(ctx, key, maxLength)
	if err != nil {
		respondWithCommandError(w, a.logger, key, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondWithJSON(w, http.StatusOK, ImitateResponse{GuildID: key.GuildID, UserID: key.UserID, Text: text})
}

// handleModelStats returns statistics for the user's model, building it if needed.
func (a *ImitateAPI) handleModelStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	key := keyFromPath(r)
	ctx, cancel := commandContext(r, a.app)
	defer cancel()

	model, err := a.app.cache.Fetch(ctx, key)
	if err != nil {
		respondWithCommandError(w, a.logger, key, err)
		return
	}
	respondWithJSON(w, http.StatusOK, model.Stats())
}

// handleExport streams the user's model as JSON.
func (a *ImitateAPI) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	key := keyFromPath(r)
	ctx, cancel := commandContext(r, a.app)
	defer cancel()

	model, err := a.app.cache.Fetch(ctx, key)
	if err != nil {
		respondWithCommandError(w, a.logger, key, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s-%s.json\"", key.GuildID, key.UserID))
	if err = model.Export(w); err != nil {
		a.logger.Error("Failed to export model", slog.String("key", key.String()), slog.String("error", err.Error()))
	}
}

// handleTransform rewrites the request body with the named variant.
func (a *ImitateAPI) handleTransform(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	variant, err := transform.VariantByName(r.PathValue("variant"))
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxTransformInput+1))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if len(body) > maxTransformInput {
		respondWithError(w, http.StatusRequestEntityTooLarge, "Input too large")
		return
	}

	ctx, cancel := commandContext(r, a.app)
	defer cancel()

	text, err := a.app.transformer.Transform(ctx, variant, string(body))
	if err != nil {
		respondWithCommandError(w, a.logger, corpus.Key{}, err)
		return
	}
	respondWithJSON(w, http.StatusOK, TransformResponse{Variant: variant.Name, Text: text})
}
