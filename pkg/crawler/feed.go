package crawler

import (
	"context"
	"io"

	"github.com/CTAG07/Mimic/pkg/corpus"
)

// SliceFeed serves messages from memory in the order given.
type SliceFeed struct {
	msgs []*corpus.Message
	pos  int
}

// NewSliceFeed returns a feed over msgs.
func NewSliceFeed(msgs ...*corpus.Message) *SliceFeed {
	return &SliceFeed{msgs: msgs}
}

// Next returns the next message, or io.EOF.
func (f *SliceFeed) Next(ctx context.Context) (*corpus.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.pos >= len(f.msgs) {
		return nil, io.EOF
	}
	msg := f.msgs[f.pos]
	f.pos++
	return msg, nil
}
