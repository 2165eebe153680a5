// Package crawler backfills corpora by draining historical message feeds.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CTAG07/Mimic/pkg/corpus"
)

// ErrAlreadyRunning is returned by Crawl when the session is already crawling.
var ErrAlreadyRunning = errors.New("crawler: already running")

// Feed is a lazy, single-pass sequence of messages, newest first. Next returns
// io.EOF once the feed is exhausted.
type Feed interface {
	Next(ctx context.Context) (*corpus.Message, error)
}

// Filter decides whether a message is offered to the action.
type Filter func(msg *corpus.Message) bool

// Action records a message and reports whether it was new.
type Action func(ctx context.Context, msg *corpus.Message) (bool, error)

// Crawler is a single crawl session. Progress may be read from any goroutine
// while Crawl runs.
type Crawler struct {
	feeds  []Feed
	filter Filter
	action Action
	limit  int

	numCollected atomic.Int64
	running      atomic.Bool
	stopped      atomic.Bool
	finished     chan struct{}
	finishOnce   sync.Once

	logger *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLogger sets the logger. By default, all logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a crawl session over feeds, consumed in order. A nil filter
// accepts every message. A limit of 0 or less collects until the feeds are
// exhausted.
func New(feeds []Feed, filter Filter, action Action, limit int, opts ...Option) *Crawler {
	c := &Crawler{
		feeds:    feeds,
		filter:   filter,
		action:   action,
		limit:    limit,
		finished: make(chan struct{}),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl drains the feeds until the limit of newly recorded messages is reached,
// every feed is exhausted, Stop is called, or ctx ends. A feed that fails is
// logged and skipped. An action error aborts the crawl.
func (c *Crawler) Crawl(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer func() {
		c.running.Store(false)
		c.finishOnce.Do(func() { close(c.finished) })
	}()

	c.logger.InfoContext(ctx, "Crawl started", slog.Int("feeds", len(c.feeds)), slog.Int("limit", c.limit))
	for i, feed := range c.feeds {
		if err := c.drain(ctx, i, feed); err != nil {
			if errors.Is(err, errDone) {
				break
			}
			return err
		}
	}
	c.logger.InfoContext(ctx, "Crawl finished",
		slog.Int64("collected", c.numCollected.Load()),
		slog.Bool("stopped", c.stopped.Load()),
	)
	return nil
}

var errDone = errors.New("crawl done")

// drain consumes one feed. It returns errDone when the whole crawl should end
// without error.
func (c *Crawler) drain(ctx context.Context, index int, feed Feed) error {
	for {
		if c.stopped.Load() {
			return errDone
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.limit > 0 && c.numCollected.Load() >= int64(c.limit) {
			return errDone
		}

		msg, err := feed.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.WarnContext(ctx, "Feed failed, moving to the next one",
				slog.Int("feed", index),
				slog.String("error", err.Error()),
			)
			return nil
		}

		if c.filter != nil && !c.filter(msg) {
			continue
		}
		added, err := c.action(ctx, msg)
		if err != nil {
			return fmt.Errorf("crawl action failed on message %s: %w", msg.ID, err)
		}
		if added {
			c.numCollected.Add(1)
		}
	}
}

// Stop asks a running crawl to end. It takes effect before the next message is
// processed. Calling Stop more than once has no further effect.
func (c *Crawler) Stop() {
	c.stopped.Store(true)
}

// NumCollected returns the number of messages newly recorded so far.
func (c *Crawler) NumCollected() int {
	return int(c.numCollected.Load())
}

// Running reports whether Crawl is in progress.
func (c *Crawler) Running() bool {
	return c.running.Load()
}

// Limit returns the configured limit.
func (c *Crawler) Limit() int {
	return c.limit
}

// Progress is a point-in-time view of a crawl session.
type Progress struct {
	Collected int  `json:"collected"`
	Limit     int  `json:"limit"`
	Running   bool `json:"running"`
}

// Progress returns the current progress.
func (c *Crawler) Progress() Progress {
	return Progress{Collected: c.NumCollected(), Limit: c.limit, Running: c.Running()}
}

// Monitor calls report every interval until the crawl finishes or ctx ends, and
// once more with the final progress when the crawl finishes.
func (c *Crawler) Monitor(ctx context.Context, interval time.Duration, report func(Progress)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.finished:
			report(c.Progress())
			return
		case <-ticker.C:
			report(c.Progress())
		}
	}
}
