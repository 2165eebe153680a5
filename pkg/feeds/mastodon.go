package feeds

import (
	"context"
	"fmt"
	"io"

	"github.com/CTAG07/Mimic/pkg/corpus"
	"github.com/mattn/go-mastodon"
)

// DefaultMastodonPageLimit is the number of statuses requested per page.
const DefaultMastodonPageLimit = 40

// MastodonFeed walks one account's statuses from newest to oldest. Boosts are
// skipped since their text belongs to someone else.
type MastodonFeed struct {
	client    *mastodon.Client
	guildID   string
	accountID string

	page  []*mastodon.Status
	maxID mastodon.ID
	done  bool
}

// NewMastodonFeed returns a feed over the statuses of accountID. Messages are
// attributed to guildID, usually the instance's domain.
func NewMastodonFeed(client *mastodon.Client, guildID, accountID string) *MastodonFeed {
	return &MastodonFeed{client: client, guildID: guildID, accountID: accountID}
}

// Next returns the next status as a message, or io.EOF.
func (f *MastodonFeed) Next(ctx context.Context) (*corpus.Message, error) {
	for {
		for len(f.page) > 0 {
			status := f.page[0]
			f.page = f.page[1:]
			if status.Reblog != nil {
				continue
			}
			return f.toMessage(status), nil
		}
		if f.done {
			return nil, io.EOF
		}
		if err := f.fetchPage(ctx); err != nil {
			return nil, err
		}
	}
}

func (f *MastodonFeed) fetchPage(ctx context.Context) error {
	pg := &mastodon.Pagination{
		MaxID: f.maxID,
		Limit: DefaultMastodonPageLimit,
	}
	statuses, err := f.client.GetAccountStatuses(ctx, mastodon.ID(f.accountID), pg)
	if err != nil {
		return fmt.Errorf("failed to get account statuses: %w", err)
	}
	if len(statuses) == 0 {
		f.done = true
		return nil
	}
	f.maxID = statuses[len(statuses)-1].ID
	f.page = statuses
	return nil
}

func (f *MastodonFeed) toMessage(status *mastodon.Status) *corpus.Message {
	msg := &corpus.Message{
		ID:        string(status.ID),
		AuthorID:  string(status.Account.ID),
		GuildID:   f.guildID,
		Content:   StripHTML(status.Content),
		CreatedAt: status.CreatedAt,
	}
	if status.Card != nil && status.Card.Description != "" {
		msg.EmbedDescriptions = append(msg.EmbedDescriptions, status.Card.Description)
	}
	for _, attachment := range status.MediaAttachments {
		msg.AttachmentURLs = append(msg.AttachmentURLs, attachment.URL)
	}
	return msg
}
