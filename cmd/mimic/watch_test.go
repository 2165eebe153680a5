package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchConfig_RestartsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	actions := make(chan string, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, watchConfig(ctx, path, logger, actions))

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.json"), []byte("{}"), 0o644))
	select {
	case action := <-actions:
		t.Fatalf("unexpected action %q for an unrelated file", action)
	case <-time.After(2 * configDebounce):
	}

	require.NoError(t, os.WriteFile(path, []byte(`{"server_config":{}}`), 0o644))
	select {
	case action := <-actions:
		assert.Equal(t, actionRestart, action)
	case <-time.After(5 * time.Second):
		t.Fatal("no restart after the config file changed")
	}
}

func TestLockDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	lock, err := lockDataDir(dir)
	require.NoError(t, err)

	_, err = lockDataDir(dir)
	assert.Error(t, err, "a second lock on the same directory must fail")

	require.NoError(t, lock.Unlock())
	again, err := lockDataDir(dir)
	require.NoError(t, err)
	require.NoError(t, again.Unlock())
}
