package main

import (
	"context"
	"log/slog"
	"net/http"
)

// Server groups the API handlers behind one authenticated mux.
type Server struct {
	app         *App
	logger      *slog.Logger
	auth        *Authenticator
	imitateAPI  *ImitateAPI
	messagesAPI *MessagesAPI
	crawlAPI    *CrawlAPI
	serverAPI   *ServerAPI
	apiMux      *http.ServeMux
}

// NewServer creates the API handlers and registers their routes. Background
// crawls started through the API end when ctx does.
func NewServer(ctx context.Context, app *App, logger *slog.Logger, actionChan chan string) *Server {
	server := &Server{
		app:         app,
		logger:      logger,
		auth:        NewAuthenticator(app.secrets.APIToken, logger),
		imitateAPI:  NewImitateAPI(app, logger),
		messagesAPI: NewMessagesAPI(app, logger),
		crawlAPI:    NewCrawlAPI(ctx, app, logger),
		serverAPI:   NewServerAPI(app, actionChan, logger),
		apiMux:      http.NewServeMux(),
	}

	apiMux := http.NewServeMux()
	server.imitateAPI.RegisterRoutes(apiMux)
	server.messagesAPI.RegisterRoutes(apiMux)
	server.crawlAPI.RegisterRoutes(apiMux)
	server.serverAPI.RegisterRoutes(apiMux)

	server.apiMux.Handle("/api/", server.auth.Authenticate(apiMux))
	return server
}

// Handler returns the root handler of the API.
func (s *Server) Handler() http.Handler {
	return s.apiMux
}
