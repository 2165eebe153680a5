package main

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
)

const authHeader = "mimic-auth"

// Authenticator guards the API with a single shared token. With no token
// configured the API is open.
type Authenticator struct {
	tokenHash [sha256.Size]byte
	enabled   bool
	logger    *slog.Logger
}

// NewAuthenticator creates an Authenticator for token.
func NewAuthenticator(token string, logger *slog.Logger) *Authenticator {
	if token == "" {
		logger.Warn("No API token configured, the API is open", slog.String("env", envAPIToken))
		return &Authenticator{logger: logger}
	}
	return &Authenticator{tokenHash: sha256.Sum256([]byte(token)), enabled: true, logger: logger}
}

// Authenticate checks for the token in the "mimic-auth" header.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := r.Header.Get(authHeader)
		if apiKey == "" {
			respondWithError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
			return
		}
		keyHash := sha256.Sum256([]byte(apiKey))
		if subtle.ConstantTimeCompare(keyHash[:], a.tokenHash[:]) != 1 {
			a.logger.Debug("Rejected API request with a bad token", slog.String("remote_addr", r.RemoteAddr))
			respondWithError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Error("Failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}
