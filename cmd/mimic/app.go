package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/CTAG07/Mimic/pkg/cache"
	"github.com/CTAG07/Mimic/pkg/corpus"
	"github.com/CTAG07/Mimic/pkg/crawler"
	"github.com/CTAG07/Mimic/pkg/feeds"
	"github.com/CTAG07/Mimic/pkg/markov"
	"github.com/CTAG07/Mimic/pkg/transform"
	"github.com/CTAG07/Mimic/pkg/workpool"
	"github.com/mattn/go-mastodon"
	"github.com/slack-go/slack"
)

var errNoFeeds = errors.New("no feeds configured")

// App holds the long-lived components shared by every command.
type App struct {
	config      *Config
	secrets     Secrets
	logger      *slog.Logger
	db          *sql.DB
	store       corpus.Store
	closeStore  func() error
	pool        *workpool.Pool
	cache       *cache.Cache
	transformer *transform.Transformer
}

// newApp opens the corpus store and builds the cache and transformer on a
// shared worker pool.
func newApp(config *Config, secrets Secrets, logger *slog.Logger) (*App, error) {
	app := &App{
		config:  config,
		secrets: secrets,
		logger:  logger,
		pool:    workpool.New(config.Model.Workers),
	}

	switch config.Corpus.Backend {
	case "", "sqlite":
		db, err := initDB(config.Server.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		store, err := corpus.NewSQLiteStore(db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create corpus store: %w", err)
		}
		store.SetLogger(logger)
		app.db = db
		app.store = store
		app.closeStore = func() error {
			store.Close()
			return db.Close()
		}
	case "redis":
		if secrets.RedisURL == "" {
			return nil, fmt.Errorf("corpus backend redis requires %s", envRedisURL)
		}
		store, err := corpus.NewRedisStore(secrets.RedisURL, config.Corpus.RedisPrefix)
		if err != nil {
			return nil, err
		}
		app.store = store
		app.closeStore = store.Close
	default:
		return nil, fmt.Errorf("unknown corpus backend %q", config.Corpus.Backend)
	}

	app.cache = cache.New(app.store, app.pool,
		cache.WithBudget(config.Model.CacheBudget),
		cache.WithLogger(logger),
	)
	app.transformer = transform.New(app.pool,
		transform.WithTries(config.Model.SampleTries),
		transform.WithGibberishCap(config.Model.GibberishCap),
		transform.WithLogger(logger),
	)
	return app, nil
}

// Close releases the corpus store.
func (a *App) Close() error {
	if a.closeStore == nil {
		return nil
	}
	return a.closeStore()
}

// Sample fetches the model for key and draws one text of at most maxLength
// characters. The boolean is false when the model produced nothing usable.
func (a *App) Sample(ctx context.Context, key corpus.Key, maxLength int) (string, bool, error) {
	model, err := a.cache.Fetch(ctx, key)
	if err != nil {
		return "", false, err
	}

	type sampled struct {
		text string
		ok   bool
	}
	res, err := workpool.Do(ctx, a.pool, func() (sampled, error) {
		text, ok := model.Sample(maxLength, markov.WithTries(a.config.Model.SampleTries))
		return sampled{text: text, ok: ok}, nil
	})
	if err != nil {
		return "", false, err
	}
	return res.text, res.ok, nil
}

// RecordMessage stores msg and, when it is new, folds its text into the cached
// model for its author. A model whose corpus was read after the message was
// stored already holds it and is left as is.
func (a *App) RecordMessage(ctx context.Context, msg *corpus.Message) (bool, error) {
	added, err := a.store.Record(ctx, msg)
	if err != nil || !added {
		return added, err
	}
	epoch := a.cache.Epoch()
	if err = a.cache.UpdateSince(ctx, msg.Key(), []string{msg.Text()}, epoch); err != nil {
		a.logger.WarnContext(ctx, "Failed to update cached model",
			slog.String("key", msg.Key().String()),
			slog.String("error", err.Error()),
		)
	}
	return true, nil
}

// EditMessage changes a recorded message and drops the stale model.
func (a *App) EditMessage(ctx context.Context, key corpus.Key, messageID, content string) error {
	if err := a.store.Edit(ctx, key, messageID, content); err != nil {
		return err
	}
	a.cache.Invalidate(key)
	return nil
}

// DeleteMessage removes a recorded message and drops the stale model.
func (a *App) DeleteMessage(ctx context.Context, key corpus.Key, messageID string) error {
	if err := a.store.Delete(ctx, key, messageID); err != nil {
		return err
	}
	a.cache.Invalidate(key)
	return nil
}

// buildFeeds creates the configured feeds: Mastodon accounts first, then
// Slack channels.
func (a *App) buildFeeds() ([]crawler.Feed, error) {
	fc := a.config.Feeds
	var list []crawler.Feed

	if len(fc.MastodonAccounts) > 0 {
		if fc.MastodonServer == "" {
			return nil, errors.New("mastodon accounts configured without mastodon_server")
		}
		guild := fc.MastodonGuild
		if guild == "" {
			u, err := url.Parse(fc.MastodonServer)
			if err != nil {
				return nil, fmt.Errorf("invalid mastodon_server: %w", err)
			}
			guild = u.Host
		}
		client := mastodon.NewClient(&mastodon.Config{
			Server:      fc.MastodonServer,
			AccessToken: a.secrets.MastodonToken,
		})
		for _, account := range fc.MastodonAccounts {
			list = append(list, feeds.NewMastodonFeed(client, guild, account))
		}
	}

	if len(fc.SlackChannels) > 0 {
		if a.secrets.SlackToken == "" {
			return nil, fmt.Errorf("slack channels configured without %s", envSlackToken)
		}
		client := slack.New(a.secrets.SlackToken)
		for _, channel := range fc.SlackChannels {
			list = append(list, feeds.NewSlackFeed(client, fc.SlackWorkspace, channel))
		}
	}

	if len(list) == 0 {
		return nil, errNoFeeds
	}
	return list, nil
}

// newCrawler creates a crawl session over the configured feeds that records
// every message with text, optionally restricted to the configured authors.
func (a *App) newCrawler(limit int) (*crawler.Crawler, error) {
	list, err := a.buildFeeds()
	if err != nil {
		return nil, err
	}
	filter := crawler.HasText()
	if len(a.config.Feeds.OnlyAuthors) > 0 {
		filter = crawler.All(filter, crawler.ByAuthor(a.config.Feeds.OnlyAuthors...))
	}
	return crawler.New(list, filter, a.RecordMessage, limit, crawler.WithLogger(a.logger)), nil
}
