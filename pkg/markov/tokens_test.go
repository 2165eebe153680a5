package markov

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

// drain reads a stream to the end, rendering EOC tokens as "|".
func drain(t *testing.T, stream StreamTokenizer) []string {
	t.Helper()
	var out []string
	for {
		token, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if token.EOC {
			out = append(out, "|")
			continue
		}
		out = append(out, token.Text)
	}
}

func TestTokenizers(t *testing.T) {
	testCases := []struct {
		name      string
		tokenizer Tokenizer
		input     string
		expected  []string
	}{
		{
			name:      "Words",
			tokenizer: NewWordTokenizer(),
			input:     "the cat  sat\nran",
			expected:  []string{"the", "cat", "sat", "|", "ran", "|"},
		},
		{
			name:      "Words skip blank lines",
			tokenizer: NewWordTokenizer(),
			input:     "a\n\n   \nb",
			expected:  []string{"a", "|", "b", "|"},
		},
		{
			name:      "Words custom regex",
			tokenizer: NewWordTokenizer(WithSplitRegex(`[\w']+|[.,!?;]`)),
			input:     "hi, there!",
			expected:  []string{"hi", ",", "there", "!", "|"},
		},
		{
			name:      "Characters",
			tokenizer: NewCharTokenizer(),
			input:     "ab c",
			expected:  []string{"a", "b", " ", "c", "|"},
		},
		{
			name:      "Characters multibyte",
			tokenizer: NewCharTokenizer(),
			input:     "héé",
			expected:  []string{"h", "é", "é", "|"},
		},
		{
			name:      "Syllables",
			tokenizer: NewSyllableTokenizer(),
			input:     "banana cat",
			expected:  []string{"ba", "na", "na", " ", "cat", "|"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := drain(t, tc.tokenizer.NewStream(strings.NewReader(tc.input)))
			if !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestSeparators(t *testing.T) {
	if sep := NewWordTokenizer().Separator("a", "b"); sep != " " {
		t.Errorf("word separator = %q, want %q", sep, " ")
	}
	if sep := NewWordTokenizer(WithSeparator("_")).Separator("a", "b"); sep != "_" {
		t.Errorf("custom word separator = %q, want %q", sep, "_")
	}
	if sep := NewCharTokenizer().Separator("a", "b"); sep != "" {
		t.Errorf("char separator = %q, want empty", sep)
	}
	if sep := NewSyllableTokenizer().Separator("ba", "na"); sep != "" {
		t.Errorf("syllable separator = %q, want empty", sep)
	}
}

func TestVocabLookup(t *testing.T) {
	m := newTestModel(t, fishCorpus, 2)

	id, ok := m.VocabStr("fish")
	if !ok {
		t.Fatal("VocabStr('fish') not found")
	}
	if id == SOCTokenID || id == EOCTokenID {
		t.Errorf("expected a non-reserved ID for 'fish', got %d", id)
	}

	text, ok := m.VocabInt(id)
	if !ok || text != "fish" {
		t.Errorf("expected 'fish', got '%s'", text)
	}

	if _, ok = m.VocabInt(9999); ok {
		t.Error("expected unknown id lookup to fail")
	}
}

func TestNextTokens(t *testing.T) {
	m := newTestModel(t, fishCorpus, 2)

	// Prefix "one fish" is followed by "two" in the training data.
	oneID, _ := m.VocabStr("one")
	fishID, _ := m.VocabStr("fish")
	twoID, _ := m.VocabStr("two")

	tokens, totalFreq := m.NextTokens([]int{oneID, fishID})
	if totalFreq != 1 {
		t.Errorf("expected total frequency of 1, got %d", totalFreq)
	}
	expectedTokens := []ChainToken{{Id: twoID, Freq: 1}}
	if !reflect.DeepEqual(tokens, expectedTokens) {
		t.Errorf("expected tokens %+v, got %+v", expectedTokens, tokens)
	}

	// Test unseen prefix
	tokens, totalFreq = m.NextTokens([]int{999, 998})
	if len(tokens) != 0 || totalFreq != 0 {
		t.Error("expected no tokens for an unseen prefix")
	}
}
