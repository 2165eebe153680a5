// Package cache holds compiled imitation models in a memory-bounded LRU.
//
// A miss loads the key's corpus and compiles a model on a worker pool. Concurrent
// misses on the same key share one build, and a build that was overtaken by an
// invalidation of its key is returned to its waiters but never cached.
package cache

import (
	"container/list"
	"context"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/CTAG07/Mimic/pkg/corpus"
	"github.com/CTAG07/Mimic/pkg/markov"
	"github.com/CTAG07/Mimic/pkg/workpool"
	"golang.org/x/sync/singleflight"
)

// DefaultBudget is the default total model size, in chain entries, the cache holds.
const DefaultBudget = 2_000_000

// Loader supplies the corpus a model is compiled from. It returns an error
// matching corpus.ErrNotFound when the key has no corpus.
type Loader interface {
	GetCorpus(ctx context.Context, key corpus.Key) ([]string, error)
}

// Builder compiles a model from a corpus.
type Builder func(fragments []string) *markov.Model

// DefaultBuilder compiles a word-level model.
func DefaultBuilder(fragments []string) *markov.Model {
	return markov.NewModel(fragments, markov.NewWordTokenizer())
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Builds    uint64 `json:"builds"`
	Evictions uint64 `json:"evictions"`
	Entries   int    `json:"entries"`
	Size      int    `json:"size"`
	Budget    int    `json:"budget"`
}

type entry struct {
	key   corpus.Key
	model *markov.Model
	size  int
	// loadedAt is the epoch at which the model's corpus was read. Zero for
	// models handed to Insert.
	loadedAt uint64
}

// Cache is a keyed, memory-bounded LRU of compiled models. It is safe for
// concurrent use.
type Cache struct {
	mu          sync.Mutex
	entries     map[corpus.Key]*list.Element
	lru         *list.List // front is most recently used
	budget      int
	size        int
	generations map[corpus.Key]uint64
	nextGen     uint64
	epoch       uint64
	stats       Stats

	group  singleflight.Group
	loader Loader
	pool   *workpool.Pool
	build  Builder
	logger *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithBudget sets the total model size the cache aims to stay under.
func WithBudget(budget int) Option {
	return func(c *Cache) { c.budget = budget }
}

// WithBuilder replaces DefaultBuilder.
func WithBuilder(build Builder) Option {
	return func(c *Cache) { c.build = build }
}

// WithLogger sets the logger. By default, all logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates an empty cache that loads corpora from loader and builds models on pool.
func New(loader Loader, pool *workpool.Pool, opts ...Option) *Cache {
	c := &Cache{
		entries:     make(map[corpus.Key]*list.Element),
		lru:         list.New(),
		budget:      DefaultBudget,
		generations: make(map[corpus.Key]uint64),
		loader:      loader,
		pool:        pool,
		build:       DefaultBuilder,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the model for key, building it on a miss. A corpus.ErrNotFound
// from the loader is returned as is and nothing is cached. If ctx ends while the
// build is in progress, Fetch returns ctx.Err() and the build carries on for any
// other waiters and for the cache.
func (c *Cache) Fetch(ctx context.Context, key corpus.Key) (*markov.Model, error) {
	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		c.lru.MoveToFront(el)
		c.stats.Hits++
		model := el.Value.(*entry).model
		c.mu.Unlock()
		return model, nil
	}
	c.stats.Misses++
	c.mu.Unlock()

	buildCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key.Encode(), func() (any, error) {
		return c.load(buildCtx, key)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*markov.Model), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// load runs once per flight.
func (c *Cache) load(ctx context.Context, key corpus.Key) (*markov.Model, error) {
	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		// A previous flight finished between our miss and this flight starting.
		c.lru.MoveToFront(el)
		model := el.Value.(*entry).model
		c.mu.Unlock()
		return model, nil
	}
	gen := c.generations[key]
	c.epoch++
	loadedAt := c.epoch
	c.mu.Unlock()

	fragments, err := c.loader.GetCorpus(ctx, key)
	if err != nil {
		return nil, err
	}

	model, err := workpool.Do(ctx, c.pool, func() (*markov.Model, error) {
		return c.build(fragments), nil
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Builds++
	if c.generations[key] != gen {
		c.logger.DebugContext(ctx, "Discarding stale model build", slog.String("key", key.String()))
		return model, nil
	}
	if el, ok := c.entries[key]; ok {
		c.lru.MoveToFront(el)
		return el.Value.(*entry).model, nil
	}
	c.insertLocked(key, model, loadedAt)
	c.logger.DebugContext(ctx, "Model cached",
		slog.String("key", key.String()),
		slog.Int("order", model.Order()),
		slog.Int("size", model.Size()),
		slog.Int("cache_size", c.size),
	)
	return model, nil
}

// Insert places model under key, replacing any existing entry, and evicts least
// recently used entries until the cache is within budget. A model larger than
// the whole budget is still inserted and stays while it is the only entry.
func (c *Cache) Insert(key corpus.Key, model *markov.Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertLocked(key, model, 0)
}

func (c *Cache) insertLocked(key corpus.Key, model *markov.Model, loadedAt uint64) {
	size := model.Size()
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry)
		c.size -= e.size
		e.model = model
		e.size = size
		e.loadedAt = loadedAt
		c.lru.MoveToFront(el)
	} else {
		c.entries[key] = c.lru.PushFront(&entry{key: key, model: model, size: size, loadedAt: loadedAt})
	}
	c.size += size

	for c.size > c.budget && c.lru.Len() > 1 {
		oldest := c.lru.Back().Value.(*entry)
		c.removeLocked(oldest.key)
		c.stats.Evictions++
		c.logger.Debug("Model evicted",
			slog.String("key", oldest.key.String()),
			slog.Int("size", oldest.size),
		)
	}
}

func (c *Cache) removeLocked(key corpus.Key) {
	el, ok := c.entries[key]
	if !ok {
		return
	}
	c.lru.Remove(el)
	delete(c.entries, key)
	c.size -= el.Value.(*entry).size
}

// bumpLocked marks every build of key that started before now as stale.
func (c *Cache) bumpLocked(key corpus.Key) {
	c.nextGen++
	c.generations[key] = c.nextGen
	c.group.Forget(key.Encode())
}

// Epoch returns a new value of the cache's load clock. A fragment written to
// the store before Epoch is called is part of every model whose corpus is
// read afterwards; pass the epoch to UpdateSince to avoid merging it twice.
func (c *Cache) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	return c.epoch
}

// Update folds newly recorded fragments into the cached model for key, if
// there is one, and touches its recency. If key is not cached, any in-flight
// build for it is discarded, since its corpus snapshot may predate delta.
func (c *Cache) Update(ctx context.Context, key corpus.Key, delta []string) error {
	return c.UpdateSince(ctx, key, delta, math.MaxUint64)
}

// UpdateSince is Update for fragments that were stored before epoch was taken
// from Epoch. A cached model whose corpus was read after epoch already holds
// them and is only touched.
func (c *Cache) UpdateSince(ctx context.Context, key corpus.Key, delta []string, epoch uint64) error {
	for {
		c.mu.Lock()
		el, ok := c.entries[key]
		if !ok {
			c.bumpLocked(key)
			c.mu.Unlock()
			return nil
		}
		e := el.Value.(*entry)
		if e.loadedAt > epoch {
			c.lru.MoveToFront(el)
			c.mu.Unlock()
			return nil
		}
		base, loadedAt := e.model, e.loadedAt
		c.mu.Unlock()

		extended, err := workpool.Do(ctx, c.pool, func() (*markov.Model, error) {
			return base.Extend(delta)
		})
		if err != nil {
			return err
		}

		c.mu.Lock()
		current, ok := c.entries[key]
		switch {
		case !ok || current != el:
			// Invalidated or evicted meanwhile; the next Fetch reads the full corpus.
			c.mu.Unlock()
			return nil
		case current.Value.(*entry).model != base:
			// Another update won the race; apply delta on top of it.
			c.mu.Unlock()
			continue
		}
		c.insertLocked(key, extended, loadedAt)
		c.mu.Unlock()
		return nil
	}
}

// Invalidate removes key from the cache and discards any in-flight build for it.
// A Fetch that starts after Invalidate returns builds from the current corpus.
func (c *Cache) Invalidate(key corpus.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
	c.bumpLocked(key)
}

// Contains reports whether key is cached, without touching its recency.
func (c *Cache) Contains(key corpus.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Len returns the number of cached models.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = c.lru.Len()
	s.Size = c.size
	s.Budget = c.budget
	return s
}
