package feeds

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/CTAG07/Mimic/pkg/corpus"
	"github.com/slack-go/slack"
)

// DefaultSlackPageLimit is the number of messages requested per page.
const DefaultSlackPageLimit = 200

// SlackFeed walks one channel's history from newest to oldest. Messages with a
// subtype (joins, bot posts, topic changes) are skipped.
type SlackFeed struct {
	client    *slack.Client
	guildID   string
	channelID string

	page   []slack.Message
	cursor string
	done   bool
}

// NewSlackFeed returns a feed over the history of channelID. Messages are
// attributed to guildID, usually the workspace name.
func NewSlackFeed(client *slack.Client, guildID, channelID string) *SlackFeed {
	return &SlackFeed{client: client, guildID: guildID, channelID: channelID}
}

// Next returns the next channel message, or io.EOF.
func (f *SlackFeed) Next(ctx context.Context) (*corpus.Message, error) {
	for {
		for len(f.page) > 0 {
			m := f.page[0]
			f.page = f.page[1:]
			if m.SubType != "" || m.User == "" {
				continue
			}
			return f.toMessage(m), nil
		}
		if f.done {
			return nil, io.EOF
		}
		if err := f.fetchPage(ctx); err != nil {
			return nil, err
		}
	}
}

func (f *SlackFeed) fetchPage(ctx context.Context) error {
	resp, err := f.client.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: f.channelID,
		Cursor:    f.cursor,
		Limit:     DefaultSlackPageLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to get conversation history: %w", err)
	}
	f.page = resp.Messages
	f.cursor = resp.ResponseMetaData.NextCursor
	if !resp.HasMore || f.cursor == "" {
		f.done = true
	}
	return nil
}

func (f *SlackFeed) toMessage(m slack.Message) *corpus.Message {
	msg := &corpus.Message{
		ID:        m.Timestamp,
		AuthorID:  m.User,
		GuildID:   f.guildID,
		Content:   m.Text,
		CreatedAt: parseSlackTimestamp(m.Timestamp),
	}
	for _, attachment := range m.Attachments {
		if attachment.Text != "" {
			msg.EmbedDescriptions = append(msg.EmbedDescriptions, attachment.Text)
		}
	}
	for _, file := range m.Files {
		msg.AttachmentURLs = append(msg.AttachmentURLs, file.URLPrivate)
	}
	return msg
}

// parseSlackTimestamp converts "1512085950.000216" to a time. Malformed input
// yields the zero time.
func parseSlackTimestamp(ts string) time.Time {
	seconds, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return time.Time{}
	}
	whole := int64(seconds)
	return time.Unix(whole, int64((seconds-float64(whole))*1e9)).UTC()
}
