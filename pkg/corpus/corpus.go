// Package corpus defines the per-user message corpora that imitation models are
// compiled from, together with SQLite and Redis backed stores for them.
package corpus

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"mvdan.cc/xurls/v2"
)

// ErrNotFound is returned when a key has no recorded corpus, or when an edit
// targets a message that was never recorded.
var ErrNotFound = errors.New("corpus: not found")

// Key identifies one user within one guild. The same user ID in two guilds
// names two independent corpora.
type Key struct {
	UserID  string `json:"user_id"`
	GuildID string `json:"guild_id"`
}

// String returns "guild/user" for display. It is not unique when IDs contain
// a slash; use Encode to identify a key.
func (k Key) String() string {
	return k.GuildID + "/" + k.UserID
}

// Encode returns a string that identifies k unambiguously: the byte length of
// the guild ID, a colon, the guild ID, a slash and the user ID.
func (k Key) Encode() string {
	return strconv.Itoa(len(k.GuildID)) + ":" + k.GuildID + "/" + k.UserID
}

// DecodeKey is the inverse of Key.Encode.
func DecodeKey(s string) (Key, bool) {
	prefix, rest, ok := strings.Cut(s, ":")
	if !ok {
		return Key{}, false
	}
	n, err := strconv.Atoi(prefix)
	if err != nil || n <= 0 || n >= len(rest) || rest[n] != '/' || n == len(rest)-1 {
		return Key{}, false
	}
	return Key{GuildID: rest[:n], UserID: rest[n+1:]}, true
}

// Message is a single chat message as produced by a feed.
type Message struct {
	ID                string    `json:"id"`
	AuthorID          string    `json:"author_id"`
	GuildID           string    `json:"guild_id"`
	Content           string    `json:"content"`
	EmbedDescriptions []string  `json:"embed_descriptions,omitempty"`
	AttachmentURLs    []string  `json:"attachment_urls,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Key returns the corpus the message belongs to.
func (m *Message) Key() Key {
	return Key{UserID: m.AuthorID, GuildID: m.GuildID}
}

// Text returns the text recorded for the message: its content followed by its
// embed descriptions, cleaned with CleanText. Attachments carry no text.
func (m *Message) Text() string {
	parts := make([]string, 0, 1+len(m.EmbedDescriptions))
	parts = append(parts, m.Content)
	parts = append(parts, m.EmbedDescriptions...)
	return CleanText(strings.Join(parts, "\n"))
}

var urlRegex = xurls.Strict()

// CleanText removes URLs, trims every line and drops the empty ones.
func CleanText(s string) string {
	s = urlRegex.ReplaceAllString(s, "")
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// Store is a keyed collection of corpora.
type Store interface {
	// GetCorpus returns every recorded fragment for key, or ErrNotFound.
	GetCorpus(ctx context.Context, key Key) ([]string, error)
	// Record stores a message and reports whether it was newly recorded. A
	// message with no text is not recorded.
	Record(ctx context.Context, msg *Message) (bool, error)
	// Edit replaces the text of a recorded message. An edit that leaves no
	// text deletes the message.
	Edit(ctx context.Context, key Key, messageID, content string) error
	// Delete removes a message. Deleting an unknown message is not an error.
	Delete(ctx context.Context, key Key, messageID string) error
	// Keys lists every key with at least one recorded message.
	Keys(ctx context.Context) ([]Key, error)
}
