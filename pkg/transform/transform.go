// Package transform rewrites ad-hoc text by sampling a throwaway Markov model
// built from the text itself.
package transform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/CTAG07/Mimic/pkg/markov"
	"github.com/CTAG07/Mimic/pkg/workpool"
)

const (
	// DefaultTries is the number of samples drawn while looking for output that
	// differs from the input.
	DefaultTries = 10
	// DefaultGibberishCap bounds the samples drawn by variants that accept
	// unchanged output on a coin flip.
	DefaultGibberishCap = 1000
)

// ErrUnknownVariant is returned by VariantByName for an unregistered name.
var ErrUnknownVariant = errors.New("transform: unknown variant")

// Variant selects how input text is split and when a sample is accepted.
type Variant struct {
	Name         string
	NewTokenizer func() markov.Tokenizer
	// CoinFlip accepts a sample identical to the input with probability 0.5,
	// and raises the attempt budget to the gibberish cap.
	CoinFlip bool
}

var (
	// Gibberish rebuilds the text character by character.
	Gibberish = Variant{
		Name:         "gibberish",
		NewTokenizer: func() markov.Tokenizer { return markov.NewCharTokenizer() },
		CoinFlip:     true,
	}
	// Devolve reshuffles the text word by word.
	Devolve = Variant{
		Name:         "devolve",
		NewTokenizer: func() markov.Tokenizer { return markov.NewWordTokenizer() },
	}
	// Wawa reshuffles the text syllable by syllable.
	Wawa = Variant{
		Name:         "wawa",
		NewTokenizer: func() markov.Tokenizer { return markov.NewSyllableTokenizer() },
	}
)

var variants = map[string]Variant{
	Gibberish.Name: Gibberish,
	Devolve.Name:   Devolve,
	Wawa.Name:      Wawa,
}

// VariantByName looks up a built-in variant.
func VariantByName(name string) (Variant, error) {
	v, ok := variants[strings.ToLower(name)]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	return v, nil
}

// Transformer runs transformations on a worker pool.
type Transformer struct {
	pool         *workpool.Pool
	tries        int
	gibberishCap int
	coin         func() bool
	logger       *slog.Logger
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithTries sets the attempt budget of variants without a coin flip.
func WithTries(n int) Option {
	return func(t *Transformer) { t.tries = n }
}

// WithGibberishCap sets the attempt budget of coin flip variants.
func WithGibberishCap(n int) Option {
	return func(t *Transformer) { t.gibberishCap = n }
}

// WithLogger sets the logger. By default, all logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transformer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New creates a Transformer that builds and samples its models on pool.
func New(pool *workpool.Pool, opts ...Option) *Transformer {
	t := &Transformer{
		pool:         pool,
		tries:        DefaultTries,
		gibberishCap: DefaultGibberishCap,
		coin:         func() bool { return rand.IntN(2) == 0 },
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transform builds an uncached model from input and samples it until the
// output differs from the input or the attempt budget runs out, in which case
// the last sample is returned. If the model yields no sample at all, input is
// returned unchanged.
func (t *Transformer) Transform(ctx context.Context, v Variant, input string) (string, error) {
	attempts := t.tries
	if v.CoinFlip {
		attempts = t.gibberishCap
	}

	return workpool.Do(ctx, t.pool, func() (string, error) {
		model := markov.NewModel([]string{input}, v.NewTokenizer())
		source := strings.TrimSpace(input)

		var last string
		var produced bool
		for i := 0; i < attempts; i++ {
			sample, ok := model.Sample(0, markov.WithTries(1))
			if !ok {
				continue
			}
			last, produced = sample, true
			if sample != source || (v.CoinFlip && t.coin()) {
				return sample, nil
			}
		}

		if !produced {
			t.logger.DebugContext(ctx, "Transform produced no sample", slog.String("variant", v.Name))
			return input, nil
		}
		t.logger.DebugContext(ctx, "Transform attempts exhausted",
			slog.String("variant", v.Name),
			slog.Int("attempts", attempts),
		)
		return last, nil
	})
}
