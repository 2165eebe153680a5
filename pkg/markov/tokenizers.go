package markov

import (
	"io"
	"regexp"
	"strings"
)

// WordTokenizer splits each line of input into whitespace-delimited words and
// joins generated words back together with a single separator. It is the
// tokenizer used for standard imitation. Its behavior can be customized with
// functional options.
type WordTokenizer struct {
	separator  string
	splitRegex *regexp.Regexp
}

// Option is a function that configures a WordTokenizer.
type Option func(*WordTokenizer)

// WithSeparator sets the string used for joining tokens during generation.
// Default: " "
func WithSeparator(sep string) Option {
	return func(t *WordTokenizer) {
		t.separator = sep
	}
}

// WithSplitRegex sets the regex used to find tokens in a line of input.
// Default: `\S+`
func WithSplitRegex(splitRegex string) Option {
	return func(t *WordTokenizer) {
		t.splitRegex = regexp.MustCompile(splitRegex)
	}
}

// NewWordTokenizer creates a new tokenizer with default settings, which can be
// overridden by providing one or more Option functions.
func NewWordTokenizer(opts ...Option) *WordTokenizer {
	t := &WordTokenizer{
		separator:  " ",
		splitRegex: regexp.MustCompile(`\S+`),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Separator returns the configured separator string.
func (t *WordTokenizer) Separator(_, _ string) string {
	return t.separator
}

// NewStream returns the stream processor.
func (t *WordTokenizer) NewStream(r io.Reader) StreamTokenizer {
	return newLineStream(r, func(line string) []string {
		return t.splitRegex.FindAllString(line, -1)
	})
}

// CharTokenizer treats every character of a line, whitespace included, as a
// token, and concatenates generated characters with no separator.
type CharTokenizer struct{}

// NewCharTokenizer returns a character-level tokenizer.
func NewCharTokenizer() *CharTokenizer {
	return &CharTokenizer{}
}

// Separator always returns the empty string.
func (t *CharTokenizer) Separator(_, _ string) string {
	return ""
}

// NewStream returns the stream processor.
func (t *CharTokenizer) NewStream(r io.Reader) StreamTokenizer {
	return newLineStream(r, func(line string) []string {
		if line == "" {
			return nil
		}
		return strings.Split(line, "")
	})
}

// syllableRegex matches a leading consonant run, a vowel run and, at the end of a
// word, the trailing consonants. Whitespace and vowel-less runs are kept as their
// own tokens so that concatenation restores the original spacing.
var syllableRegex = regexp.MustCompile(`[^aeiouyAEIOUY\s]*[aeiouyAEIOUY]+(?:[^aeiouyAEIOUY\s]+\b)?|\s+|[^aeiouyAEIOUY\s]+`)

// SyllableTokenizer splits lines into rough syllables and concatenates them
// back with no separator.
type SyllableTokenizer struct{}

// NewSyllableTokenizer returns a syllable-level tokenizer.
func NewSyllableTokenizer() *SyllableTokenizer {
	return &SyllableTokenizer{}
}

// Separator always returns the empty string.
func (t *SyllableTokenizer) Separator(_, _ string) string {
	return ""
}

// NewStream returns the stream processor.
func (t *SyllableTokenizer) NewStream(r io.Reader) StreamTokenizer {
	return newLineStream(r, func(line string) []string {
		return syllableRegex.FindAllString(line, -1)
	})
}
