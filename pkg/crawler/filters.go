package crawler

import (
	"github.com/CTAG07/Mimic/pkg/corpus"
)

// ByAuthor accepts messages written by one of the given author IDs.
func ByAuthor(authorIDs ...string) Filter {
	allowed := make(map[string]struct{}, len(authorIDs))
	for _, id := range authorIDs {
		allowed[id] = struct{}{}
	}
	return func(msg *corpus.Message) bool {
		_, ok := allowed[msg.AuthorID]
		return ok
	}
}

// HasText accepts messages that still carry text once URLs are removed.
func HasText() Filter {
	return func(msg *corpus.Message) bool {
		return msg.Text() != ""
	}
}

// All accepts a message only when every filter does.
func All(filters ...Filter) Filter {
	return func(msg *corpus.Message) bool {
		for _, f := range filters {
			if f != nil && !f(msg) {
				return false
			}
		}
		return true
	}
}
