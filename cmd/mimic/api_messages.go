package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/CTAG07/Mimic/pkg/corpus"
)

// MessagesAPI holds the dependencies for the message recording handlers.
type MessagesAPI struct {
	app    *App
	logger *slog.Logger
}

// NewMessagesAPI creates a new instance of the MessagesAPI.
func NewMessagesAPI(app *App, logger *slog.Logger) *MessagesAPI {
	return &MessagesAPI{app: app, logger: logger}
}

// RegisterRoutes sets up the routing for all /api/messages endpoints.
func (m *MessagesAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/messages", m.handleRecord)
	mux.HandleFunc("/api/messages/{guild}/{user}/{id}", m.handleMessage)
}

// RecordResponse reports whether a posted message was new.
type RecordResponse struct {
	Added bool `json:"added"`
}

// EditRequest is the expected JSON body for editing a message.
type EditRequest struct {
	Content string `json:"content"`
}

// handleRecord records a new message and updates the author's cached model.
func (m *MessagesAPI) handleRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var msg corpus.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	if msg.ID == "" || msg.AuthorID == "" || msg.GuildID == "" {
		respondWithError(w, http.StatusBadRequest, "id, author_id and guild_id are required")
		return
	}

	added, err := m.app.RecordMessage(r.Context(), &msg)
	if err != nil {
		m.logger.Error("Failed to record message", slog.String("id", msg.ID), slog.String("error", err.Error()))
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to record message: %v", err))
		return
	}
	code := http.StatusOK
	if added {
		code = http.StatusCreated
	}
	respondWithJSON(w, code, RecordResponse{Added: added})
}

// handleMessage edits or deletes a recorded message and invalidates the model.
func (m *MessagesAPI) handleMessage(w http.ResponseWriter, r *http.Request) {
	key := keyFromPath(r)
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodPatch:
		var req EditRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		if err := m.app.EditMessage(r.Context(), key, id, req.Content); err != nil {
			if errors.Is(err, corpus.ErrNotFound) {
				respondWithError(w, http.StatusNotFound, "Message not found")
				return
			}
			m.logger.Error("Failed to edit message", slog.String("id", id), slog.String("error", err.Error()))
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to edit message: %v", err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		if err := m.app.DeleteMessage(r.Context(), key, id); err != nil {
			m.logger.Error("Failed to delete message", slog.String("id", id), slog.String("error", err.Error()))
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to delete message: %v", err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "PATCH, DELETE")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
