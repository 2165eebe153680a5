package markov

import (
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultTries is the number of random walks Sample attempts before giving up.
	DefaultTries = 10
	// DefaultMaxTokens bounds the number of tokens in a single random walk.
	DefaultMaxTokens = 100
)

// generateOptions is used by Sample to configure default options.
type generateOptions struct {
	maxTokens   int
	tries       int
	temperature float64
	topK        int
}

// GenerateOption is a function that configures generation parameters.
type GenerateOption func(*generateOptions)

// WithMaxTokens sets the maximum number of tokens in one walk. A walk that has
// not reached an End-Of-Chain token by then is rejected.
func WithMaxTokens(n int) GenerateOption {
	return func(o *generateOptions) { o.maxTokens = n }
}

// WithTries sets how many walks Sample attempts before reporting no result.
func WithTries(n int) GenerateOption {
	return func(o *generateOptions) { o.tries = n }
}

// WithTemperature adjusts the randomness of the token selection.
// A value of 1.0 is standard weighted random selection.
// Values > 1.0 increase randomness (making less frequent tokens more likely).
// Values < 1.0 decrease randomness (making more frequent tokens even more likely).
// A value of 0 or less results in deterministic selection (always choosing the most frequent token).
func WithTemperature(t float64) GenerateOption {
	return func(o *generateOptions) { o.temperature = t }
}

// WithTopK restricts the token selection pool to the top `k` most frequent tokens
// at each step. A value of 0 disables Top-K sampling.
func WithTopK(k int) GenerateOption {
	return func(o *generateOptions) { o.topK = k }
}

// Sample performs random walks over the chain from the start state and returns
// the first non-empty result of at most maxLength characters. A maxLength of 0
// or less disables the length check. The boolean is false when no acceptable
// walk was produced within the configured number of tries, including when the
// model is empty.
func (m *Model) Sample(maxLength int, opts ...GenerateOption) (string, bool) {
	options := &generateOptions{
		maxTokens:   DefaultMaxTokens,
		tries:       DefaultTries,
		temperature: 1.0,
		topK:        0,
	}
	for _, opt := range opts {
		opt(options)
	}

	if len(m.chains) == 0 {
		return "", false
	}

	for i := 0; i < options.tries; i++ {
		text, ok := m.walk(options)
		if !ok {
			continue
		}
		if maxLength > 0 && utf8.RuneCountInString(text) > maxLength {
			continue
		}
		return text, true
	}
	return "", false
}

// walk contains the main loop for generating a single chain.
func (m *Model) walk(options *generateOptions) (string, bool) {
	var builder strings.Builder
	prefix := make([]int, m.order)
	lastWord := SOCTokenText
	firstWord := true

	for generatedCount := 0; ; generatedCount++ {
		choices, totalFreq := m.NextTokens(prefix)
		if len(choices) == 0 { // Dead end in chain
			return "", false
		}

		nextToken := chooseNextToken(choices, totalFreq, options)
		if nextToken == EOCTokenID {
			return builder.String(), builder.Len() > 0
		}
		if generatedCount >= options.maxTokens {
			return "", false
		}

		text := m.vocab[nextToken]
		if !firstWord {
			builder.WriteString(m.tokenizer.Separator(lastWord, text))
		} else {
			firstWord = false
		}
		lastWord = text
		builder.WriteString(text)

		prefix = append(prefix[1:], nextToken)
	}
}

// chooseNextToken abstracts the token selection logic from the generation loop.
func chooseNextToken(choices []ChainToken, totalFreq int, options *generateOptions) int {
	var nextToken int

	// topK filtering
	if options.topK > 0 && options.topK < len(choices) {
		sort.SliceStable(choices, func(i, j int) bool {
			return choices[i].Freq > choices[j].Freq
		})
		choices = choices[:options.topK]
		totalFreq = 0
		for _, choice := range choices {
			totalFreq += choice.Freq
		}
	}

	// temperature selection
	if options.temperature <= 0 { // Deterministic
		maxFreq := -1
		for _, choice := range choices {
			if choice.Freq > maxFreq {
				maxFreq = choice.Freq
				nextToken = choice.Id
			}
		}
	} else if options.temperature == 1.0 { // Standard weighted random
		randChoice := rand.IntN(totalFreq)
		for _, choice := range choices {
			randChoice -= choice.Freq
			if randChoice < 0 {
				nextToken = choice.Id
				break
			}
		}
	} else { // Temperature-based sampling
		logProbabilities := make([]float64, len(choices))
		epsilon := -1e9
		for i, choice := range choices {
			lp := math.Log(float64(choice.Freq)) / options.temperature
			logProbabilities[i] = lp
			if lp > epsilon {
				epsilon = lp
			}
		}
		var totalWeight float64
		weights := make([]float64, len(choices))
		for i, lp := range logProbabilities {
			w := math.Exp(lp - epsilon)
			weights[i] = w
			totalWeight += w
		}
		nextToken = choices[len(choices)-1].Id
		randChoice := rand.Float64() * totalWeight
		for i, choice := range choices {
			randChoice -= weights[i]
			if randChoice < 0 {
				nextToken = choice.Id
				break
			}
		}
	}
	return nextToken
}
