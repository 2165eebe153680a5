package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
)

// configDebounce absorbs the burst of events an editor produces when saving.
const configDebounce = 250 * time.Millisecond

// watchConfig sends a restart action when the config file at path is written,
// created or replaced. The directory is watched so atomic renames are seen.
func watchConfig(ctx context.Context, path string, logger *slog.Logger, actionChan chan<- string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err = watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	go func() {
		defer func() { _ = watcher.Close() }()
		var debounce <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					debounce = time.After(configDebounce)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Config watcher error", slog.String("error", err.Error()))
			case <-debounce:
				debounce = nil
				logger.Info("Config file changed, restarting", slog.String("path", abs))
				select {
				case actionChan <- actionRestart:
				case <-ctx.Done():
				}
				return
			}
		}
	}()
	return nil
}

// lockDataDir takes an exclusive lock on the data directory so that only one
// server works on a corpus at a time.
func lockDataDir(dir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	lock := flock.New(filepath.Join(dir, "mimic.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock data directory: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("data directory %s is in use by another mimic server", dir)
	}
	return lock, nil
}
