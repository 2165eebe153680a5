package markov

import (
	"bufio"
	"io"
)

// Token represents a single tokenized unit of text. It contains the text itself
// and a boolean flag indicating if it marks the end of a chain (a line of input).
type Token struct {
	Text string
	EOC  bool
}

// Tokenizer is an interface that defines the contract for splitting input text
// into tokens. This allows the model to be independent of the specific
// tokenization strategy (words, characters, syllables).
type Tokenizer interface {
	// NewStream returns a stateful StreamTokenizer for processing an io.Reader.
	NewStream(io.Reader) StreamTokenizer
	// Separator returns the string that should be used to join tokens
	// when building a final generated string, using the previous and current
	// tokens.
	Separator(prev, current string) string
}

// StreamTokenizer is an interface for a stateful tokenizer that processes a
// stream of data, returning one token at a time.
type StreamTokenizer interface {
	// Next returns the next token from the stream. It returns io.EOF as the
	// error when the stream is fully consumed.
	Next() (*Token, error)
}

// maxLineSize bounds a single line of input handed to a stream tokenizer.
const maxLineSize = 1 << 20

// lineStream is the StreamTokenizer shared by the built-in tokenizers. Every
// non-empty line of input becomes one chain, terminated by an EOC token.
type lineStream struct {
	scanner    *bufio.Scanner
	buffer     []string
	split      func(string) []string
	eocPending bool
}

func newLineStream(r io.Reader, split func(string) []string) *lineStream {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	return &lineStream{
		scanner: scanner,
		split:   split,
	}
}

// Next returns the next token from the stream. It returns a Token and a nil error on
// success. When the stream is exhausted, it returns a nil Token and io.EOF.
// Any other error indicates a problem reading from the underlying stream.
func (s *lineStream) Next() (*Token, error) {
	for len(s.buffer) == 0 {
		if s.eocPending {
			s.eocPending = false
			return &Token{EOC: true}, nil
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		s.buffer = s.split(s.scanner.Text())
		s.eocPending = len(s.buffer) > 0
	}

	word := s.buffer[0]
	s.buffer = s.buffer[1:]
	return &Token{Text: word}, nil
}
