package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/CTAG07/Mimic/pkg/crawler"
)

// CrawlAPI runs at most one background crawl at a time.
type CrawlAPI struct {
	app    *App
	ctx    context.Context
	logger *slog.Logger

	mu      sync.Mutex
	current *crawler.Crawler
	active  bool
	lastErr string
	wg      sync.WaitGroup
}

// NewCrawlAPI creates a new instance of the CrawlAPI. Crawls it starts end when
// ctx does.
func NewCrawlAPI(ctx context.Context, app *App, logger *slog.Logger) *CrawlAPI {
	return &CrawlAPI{app: app, ctx: ctx, logger: logger}
}

// RegisterRoutes sets up the routing for the /api/crawl endpoint.
func (c *CrawlAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/crawl", c.handleCrawl)
}

// StartCrawlRequest is the optional JSON body for starting a crawl.
type StartCrawlRequest struct {
	Limit *int `json:"limit"`
}

// CrawlStatus is the JSON response describing the latest crawl.
type CrawlStatus struct {
	crawler.Progress
	LastError string `json:"last_error,omitempty"`
}

func (c *CrawlAPI) handleCrawl(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondWithJSON(w, http.StatusOK, c.status())
	case http.MethodPost:
		c.start(w, r)
	case http.MethodDelete:
		c.mu.Lock()
		current, active := c.current, c.active
		c.mu.Unlock()
		if !active {
			respondWithError(w, http.StatusNotFound, "No crawl is running")
			return
		}
		current.Stop()
		c.logger.Info("Crawl stop requested via API")
		respondWithJSON(w, http.StatusAccepted, c.status())
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (c *CrawlAPI) start(w http.ResponseWriter, r *http.Request) {
	limit := c.app.config.Feeds.CrawlLimit
	var req StartCrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	if req.Limit != nil {
		limit = *req.Limit
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		respondWithError(w, http.StatusConflict, "A crawl is already running")
		return
	}

	cr, err := c.app.newCrawler(limit)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	c.current = cr
	c.active = true
	c.lastErr = ""

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := cr.Crawl(c.ctx)
		c.mu.Lock()
		defer c.mu.Unlock()
		c.active = false
		if err != nil {
			c.logger.Error("Crawl failed", slog.String("error", err.Error()))
			c.lastErr = err.Error()
		}
	}()

	c.logger.Info("Crawl started via API", slog.Int("limit", limit))
	respondWithJSON(w, http.StatusAccepted, CrawlStatus{Progress: crawler.Progress{Limit: limit, Running: true}})
}

func (c *CrawlAPI) status() CrawlStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return CrawlStatus{}
	}
	progress := c.current.Progress()
	progress.Running = c.active
	return CrawlStatus{Progress: progress, LastError: c.lastErr}
}

// Wait blocks until any background crawl has returned.
func (c *CrawlAPI) Wait() {
	c.wg.Wait()
}
