package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "modernc.org/sqlite"
)

func setupSQLiteStore(t *testing.T) Store {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "corpus.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = SetupSchema(db); err != nil {
		t.Fatalf("Failed to set up schema: %v", err)
	}
	store, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func setupRedisStore(t *testing.T) Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	store, err := NewRedisStore(fmt.Sprintf("redis://%s", mr.Addr()), "test_prefix")
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

var storeBackends = []struct {
	name  string
	setup func(t *testing.T) Store
}{
	{"SQLite", setupSQLiteStore},
	{"Redis", setupRedisStore},
}

func message(id, author, guild, content string) *Message {
	return &Message{ID: id, AuthorID: author, GuildID: guild, Content: content, CreatedAt: time.Now()}
}

func sortedCorpus(t *testing.T, store Store, key Key) []string {
	t.Helper()
	fragments, err := store.GetCorpus(context.Background(), key)
	if err != nil {
		t.Fatalf("GetCorpus(%s) failed: %v", key, err)
	}
	sort.Strings(fragments)
	return fragments
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestStore_Workflow(t *testing.T) {
	for _, backend := range storeBackends {
		t.Run(backend.name, func(t *testing.T) {
			store := backend.setup(t)
			ctx := context.Background()
			alice := Key{UserID: "alice", GuildID: "g1"}

			if _, err := store.GetCorpus(ctx, alice); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound for empty corpus, got %v", err)
			}

			for _, msg := range []*Message{
				message("1", "alice", "g1", "hello there"),
				message("2", "alice", "g1", "see https://example.com/x now"),
				message("3", "alice", "g2", "other guild"),
				message("4", "bob", "g1", "bob speaks"),
			} {
				added, err := store.Record(ctx, msg)
				if err != nil {
					t.Fatalf("Record(%s) failed: %v", msg.ID, err)
				}
				if !added {
					t.Errorf("Record(%s) reported the message as already present", msg.ID)
				}
			}

			want := []string{"hello there", "see  now"}
			if got := sortedCorpus(t, store, alice); !equalStrings(got, want) {
				t.Errorf("corpus = %q, want %q", got, want)
			}

			added, err := store.Record(ctx, message("1", "alice", "g1", "replayed"))
			if err != nil {
				t.Fatalf("Record duplicate failed: %v", err)
			}
			if added {
				t.Error("duplicate message ID was recorded twice")
			}
			if got := sortedCorpus(t, store, alice); !equalStrings(got, want) {
				t.Errorf("corpus after duplicate = %q, want %q", got, want)
			}

			keys, err := store.Keys(ctx)
			if err != nil {
				t.Fatalf("Keys failed: %v", err)
			}
			if len(keys) != 3 {
				t.Errorf("expected 3 keys, got %v", keys)
			}
		})
	}
}

func TestStore_RecordSkipsEmptyText(t *testing.T) {
	for _, backend := range storeBackends {
		t.Run(backend.name, func(t *testing.T) {
			store := backend.setup(t)
			ctx := context.Background()

			msg := message("1", "alice", "g1", "https://example.com/only-a-link")
			msg.AttachmentURLs = []string{"https://cdn.example.com/cat.png"}
			added, err := store.Record(ctx, msg)
			if err != nil {
				t.Fatalf("Record failed: %v", err)
			}
			if added {
				t.Error("message without text was recorded")
			}
			if _, err = store.GetCorpus(ctx, msg.Key()); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStore_EditAndDelete(t *testing.T) {
	for _, backend := range storeBackends {
		t.Run(backend.name, func(t *testing.T) {
			store := backend.setup(t)
			ctx := context.Background()
			key := Key{UserID: "alice", GuildID: "g1"}

			for _, msg := range []*Message{
				message("1", "alice", "g1", "first"),
				message("2", "alice", "g1", "second"),
			} {
				if _, err := store.Record(ctx, msg); err != nil {
					t.Fatalf("Record failed: %v", err)
				}
			}

			if err := store.Edit(ctx, key, "1", "first, edited"); err != nil {
				t.Fatalf("Edit failed: %v", err)
			}
			if got, want := sortedCorpus(t, store, key), []string{"first, edited", "second"}; !equalStrings(got, want) {
				t.Errorf("corpus after edit = %q, want %q", got, want)
			}

			if err := store.Edit(ctx, key, "missing", "text"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound editing unknown message, got %v", err)
			}

			// An edit that leaves no text behaves as a delete.
			if err := store.Edit(ctx, key, "2", "   "); err != nil {
				t.Fatalf("Edit to empty failed: %v", err)
			}
			if got, want := sortedCorpus(t, store, key), []string{"first, edited"}; !equalStrings(got, want) {
				t.Errorf("corpus after empty edit = %q, want %q", got, want)
			}

			if err := store.Delete(ctx, key, "1"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if err := store.Delete(ctx, key, "1"); err != nil {
				t.Errorf("second Delete should be a no-op, got %v", err)
			}
			if _, err := store.GetCorpus(ctx, key); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound after deleting everything, got %v", err)
			}
			keys, err := store.Keys(ctx)
			if err != nil {
				t.Fatalf("Keys failed: %v", err)
			}
			if len(keys) != 0 {
				t.Errorf("expected no keys, got %v", keys)
			}
		})
	}
}

func TestMessage_Text(t *testing.T) {
	testCases := []struct {
		name string
		msg  Message
		want string
	}{
		{"Content only", Message{Content: "hello"}, "hello"},
		{"Embeds appended", Message{Content: "look", EmbedDescriptions: []string{"an embed", ""}}, "look\nan embed"},
		{"URLs removed", Message{Content: "go to https://example.com today"}, "go to  today"},
		{"Blank lines dropped", Message{Content: "a\n\n  \nb  "}, "a\nb"},
		{"Nothing left", Message{Content: "http://a.example"}, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.msg.Text(); got != tc.want {
				t.Errorf("Text() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestStore_SlashedIDsAreDistinctKeys(t *testing.T) {
	for _, backend := range storeBackends {
		t.Run(backend.name, func(t *testing.T) {
			store := backend.setup(t)
			ctx := context.Background()
			first := Key{GuildID: "g/x", UserID: "u"}
			second := Key{GuildID: "g", UserID: "x/u"}

			if _, err := store.Record(ctx, message("1", first.UserID, first.GuildID, "first owner")); err != nil {
				t.Fatalf("Record failed: %v", err)
			}
			if _, err := store.Record(ctx, message("1", second.UserID, second.GuildID, "second owner")); err != nil {
				t.Fatalf("Record failed: %v", err)
			}

			if got := sortedCorpus(t, store, first); !equalStrings(got, []string{"first owner"}) {
				t.Errorf("corpus of %v = %q", first, got)
			}
			if got := sortedCorpus(t, store, second); !equalStrings(got, []string{"second owner"}) {
				t.Errorf("corpus of %v = %q", second, got)
			}

			keys, err := store.Keys(ctx)
			if err != nil {
				t.Fatalf("Keys failed: %v", err)
			}
			if len(keys) != 2 {
				t.Errorf("expected 2 keys, got %v", keys)
			}
		})
	}
}

func TestKeyEncode(t *testing.T) {
	testCases := []Key{
		{UserID: "42", GuildID: "mastodon.example:8443"},
		{UserID: "u", GuildID: "g/x"},
		{UserID: "x/u", GuildID: "g"},
		{UserID: "a:b", GuildID: "12:3"},
	}
	seen := make(map[string]Key)
	for _, key := range testCases {
		encoded := key.Encode()
		if other, dup := seen[encoded]; dup {
			t.Errorf("%v and %v both encode to %q", key, other, encoded)
		}
		seen[encoded] = key

		decoded, ok := DecodeKey(encoded)
		if !ok || decoded != key {
			t.Errorf("DecodeKey(%q) = %v, %v, want %v", encoded, decoded, ok, key)
		}
	}

	for _, bad := range []string{"", "noprefix", "x:g/u", "0:/user", "5:guild/", "3:guild/u", "9:g/u"} {
		if _, ok := DecodeKey(bad); ok {
			t.Errorf("DecodeKey(%q) should fail", bad)
		}
	}
}
