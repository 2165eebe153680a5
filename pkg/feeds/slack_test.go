package feeds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slack-go/slack"
)

func slackServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/conversations.history" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("Failed to parse form: %v", err)
			return
		}
		if r.FormValue("channel") != "C123" {
			t.Errorf("Unexpected channel: %s", r.FormValue("channel"))
		}
		body, ok := pages[r.FormValue("cursor")]
		if !ok {
			body = `{"ok":false,"error":"invalid_cursor"}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, body)
	}))
}

func TestSlackFeed_Pages(t *testing.T) {
	page1 := `{"ok":true,"has_more":true,"response_metadata":{"next_cursor":"next"},"messages":[
		{"type":"message","user":"U1","text":"latest words","ts":"1714564800.000200"},
		{"type":"message","subtype":"channel_join","user":"U2","text":"joined","ts":"1714564700.000100"},
		{"type":"message","user":"U1","text":"see this","ts":"1714564600.000100","attachments":[{"text":"unfurled"}],"files":[{"id":"F1","url_private":"https://files.example/1"}]}
	]}`
	page2 := `{"ok":true,"has_more":false,"messages":[
		{"type":"message","user":"U3","text":"oldest","ts":"1714564500.000000"}
	]}`
	ts := slackServer(t, map[string]string{"": page1, "next": page2})
	defer ts.Close()

	client := slack.New("dummy-token", slack.OptionAPIURL(ts.URL+"/"))
	feed := NewSlackFeed(client, "workspace", "C123")
	ctx := context.Background()

	var ids, authors []string
	var texts []string
	for {
		msg, err := feed.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		ids = append(ids, msg.ID)
		authors = append(authors, msg.AuthorID)
		texts = append(texts, msg.Text())
		if msg.GuildID != "workspace" {
			t.Errorf("guild = %s", msg.GuildID)
		}
		if msg.CreatedAt.IsZero() {
			t.Errorf("message %s has no timestamp", msg.ID)
		}
	}

	wantIDs := []string{"1714564800.000200", "1714564600.000100", "1714564500.000000"}
	if fmt.Sprint(ids) != fmt.Sprint(wantIDs) {
		t.Errorf("ids = %v, want %v", ids, wantIDs)
	}
	if fmt.Sprint(authors) != fmt.Sprint([]string{"U1", "U1", "U3"}) {
		t.Errorf("authors = %v", authors)
	}
	if texts[1] != "see this\nunfurled" {
		t.Errorf("text with attachment = %q", texts[1])
	}
}

func TestSlackFeed_APIError(t *testing.T) {
	ts := slackServer(t, map[string]string{})
	defer ts.Close()

	client := slack.New("dummy-token", slack.OptionAPIURL(ts.URL+"/"))
	feed := NewSlackFeed(client, "workspace", "C123")

	_, err := feed.Next(context.Background())
	if err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected an API error, got %v", err)
	}
}

func TestParseSlackTimestamp(t *testing.T) {
	got := parseSlackTimestamp("1714564800.500000")
	if got.Unix() != 1714564800 {
		t.Errorf("seconds = %d", got.Unix())
	}
	if !parseSlackTimestamp("garbage").IsZero() {
		t.Error("malformed timestamp should yield the zero time")
	}
}
