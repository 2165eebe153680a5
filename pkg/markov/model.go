package markov

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
)

const (
	// SOCTokenID is the reserved ID for the Start-Of-Chain token.
	SOCTokenID = 0
	// EOCTokenID is the reserved ID for the End-Of-Chain token.
	EOCTokenID = 1
	// SOCTokenText is the reserved text for the Start-Of-Chain token.
	SOCTokenText = "<SOC>"
	// EOCTokenText is the reserved text for the End-Of-Chain token.
	EOCTokenText = "<EOC>"
)

// maxSentenceLength prevents massive sentences from taking up a large amount of memory.
const maxSentenceLength = 4096

// ChainToken represents a potential next token in a Markov chain, including its
// unique ID and its frequency of occurrence after a given prefix.
type ChainToken struct {
	Id   int
	Freq int
}

// Model is a compiled Markov chain. A Model is immutable once built and is safe
// for concurrent use by multiple goroutines; Merge and Extend return new models.
type Model struct {
	order     int
	tokenizer Tokenizer
	vocab     []string
	vocabIDs  map[string]int
	chains    map[string]map[int]int
	size      int
}

// NewModel compiles a Model from the given corpus. Each fragment contributes one
// chain per line. The order of the chain (the number of preceding tokens used to
// predict the next one) is picked uniformly from {1, 2} on every call.
//
// Construction is CPU-bound; callers serving concurrent requests should run it
// on a worker pool.
func NewModel(corpus []string, tokenizer Tokenizer) *Model {
	return buildModel(corpus, tokenizer, 1+rand.IntN(2))
}

// newEmptyModel returns a model holding only the reserved tokens. Their texts
// are kept out of vocabIDs so that corpus words spelled like them get their own ids.
func newEmptyModel(tokenizer Tokenizer, order int) *Model {
	return &Model{
		order:     order,
		tokenizer: tokenizer,
		vocab:     []string{SOCTokenText, EOCTokenText},
		vocabIDs:  make(map[string]int),
		chains:    make(map[string]map[int]int),
	}
}

func buildModel(corpus []string, tokenizer Tokenizer, order int) *Model {
	m := newEmptyModel(tokenizer, order)
	for _, fragment := range corpus {
		// A fragment the tokenizer cannot read contributes the chains completed before the failure.
		_ = m.train(strings.NewReader(fragment))
	}
	return m
}

// Order returns the number of preceding tokens the model conditions on.
func (m *Model) Order() int {
	return m.order
}

// Tokenizer returns the tokenizer the model was built with.
func (m *Model) Tokenizer() Tokenizer {
	return m.tokenizer
}

// Size returns the number of distinct prefix -> next token entries in the model.
func (m *Model) Size() int {
	return m.size
}

// Extend returns a new model containing this model's chains plus the chains
// compiled from delta, using the same tokenizer and order.
func (m *Model) Extend(delta []string) (*Model, error) {
	return Merge(m, buildModel(delta, m.tokenizer, m.order))
}

// train tokenizes a stream and adds every completed sentence to the chain.
func (m *Model) train(data io.Reader) error {
	stream := m.tokenizer.NewStream(data)
	var currentSentence []int
	var keyBuf []byte

	for {
		token, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("tokenizer error: %w", err)
		}

		if !token.EOC && len(currentSentence) < maxSentenceLength {
			currentSentence = append(currentSentence, m.tokenID(token.Text))
		} else if token.EOC && len(currentSentence) > 0 {
			keyBuf = m.processSentence(currentSentence, keyBuf)
			currentSentence = currentSentence[:0]
		}
	}

	if len(currentSentence) > 0 {
		m.processSentence(currentSentence, keyBuf)
	}
	return nil
}

// processSentence adds every prefix -> next link of a sentence, padding the
// start with SOC tokens and terminating with EOC.
func (m *Model) processSentence(sentence []int, keyBuf []byte) []byte {
	fullSlice := make([]int, len(sentence)+m.order+1)
	copy(fullSlice[m.order:len(fullSlice)-1], sentence)
	fullSlice[len(fullSlice)-1] = EOCTokenID

	for i := 0; i < len(sentence)+1; i++ { // Iterate len+1 to include the final EOC token.
		var prefixKey string
		keyBuf, prefixKey = appendPrefixKey(keyBuf, fullSlice[i:i+m.order])
		m.addLink(prefixKey, fullSlice[i+m.order], 1)
	}
	return keyBuf
}

func (m *Model) tokenID(text string) int {
	if id, ok := m.vocabIDs[text]; ok {
		return id
	}
	id := len(m.vocab)
	m.vocab = append(m.vocab, text)
	m.vocabIDs[text] = id
	return id
}

func (m *Model) addLink(prefixKey string, next, freq int) {
	nexts, ok := m.chains[prefixKey]
	if !ok {
		nexts = make(map[int]int)
		m.chains[prefixKey] = nexts
	}
	if _, seen := nexts[next]; !seen {
		m.size++
	}
	nexts[next] += freq
}

// NextTokens returns all possible subsequent tokens for a prefix of token IDs,
// sorted by ID, and the sum of their frequencies. An unseen prefix yields a nil
// slice and a total of 0.
func (m *Model) NextTokens(prefix []int) ([]ChainToken, int) {
	_, key := appendPrefixKey(nil, prefix)
	nexts, ok := m.chains[key]
	if !ok {
		return nil, 0
	}
	tokens := make([]ChainToken, 0, len(nexts))
	var totalFreq int
	for id, freq := range nexts {
		tokens = append(tokens, ChainToken{Id: id, Freq: freq})
		totalFreq += freq
	}
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].Id < tokens[j].Id
	})
	return tokens, totalFreq
}

// VocabStr looks up a corpus token and returns its ID. The reserved texts
// SOCTokenText and EOCTokenText only resolve when they occur in the corpus, and
// then never to the reserved IDs.
func (m *Model) VocabStr(token string) (int, bool) {
	id, ok := m.vocabIDs[token]
	return id, ok
}

// VocabInt looks up a token ID and returns its text.
func (m *Model) VocabInt(id int) (string, bool) {
	if id < 0 || id >= len(m.vocab) {
		return "", false
	}
	return m.vocab[id], true
}

// appendPrefixKey encodes a prefix of token IDs as space-separated decimal IDs,
// reusing buf for the encoding.
func appendPrefixKey(buf []byte, prefix []int) ([]byte, string) {
	buf = buf[:0]
	for j, tokenID := range prefix {
		if j > 0 {
			buf = append(buf, ' ')
		}
		buf = strconv.AppendInt(buf, int64(tokenID), 10)
	}
	return buf, string(buf)
}

// parsePrefixKey is the inverse of appendPrefixKey.
func parsePrefixKey(key string) ([]int, error) {
	parts := strings.Split(key, " ")
	ids := make([]int, len(parts))
	for i, part := range parts {
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("malformed prefix key '%s': %w", key, err)
		}
		ids[i] = id
	}
	return ids, nil
}
