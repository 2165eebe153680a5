package transform

import (
	"context"
	"errors"
	"testing"

	"github.com/CTAG07/Mimic/pkg/workpool"
)

func TestVariantByName(t *testing.T) {
	for _, name := range []string{"gibberish", "Devolve", "WAWA"} {
		if _, err := VariantByName(name); err != nil {
			t.Errorf("VariantByName(%q) failed: %v", name, err)
		}
	}
	if _, err := VariantByName("pirate"); !errors.Is(err, ErrUnknownVariant) {
		t.Errorf("expected ErrUnknownVariant, got %v", err)
	}
}

func TestTransform_EmptyInputReturnedUnchanged(t *testing.T) {
	tr := New(workpool.New(2))
	for _, v := range []Variant{Gibberish, Devolve, Wawa} {
		got, err := tr.Transform(context.Background(), v, "   ")
		if err != nil {
			t.Fatalf("%s: Transform failed: %v", v.Name, err)
		}
		if got != "   " {
			t.Errorf("%s: got %q, want the input back", v.Name, got)
		}
	}
}

func TestTransform_UnchangeableInputReturnsLastSample(t *testing.T) {
	// Distinct words admit exactly one walk, so every sample equals the input.
	tr := New(workpool.New(2), WithTries(3))
	got, err := tr.Transform(context.Background(), Devolve, "one two three")
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if got != "one two three" {
		t.Errorf("got %q", got)
	}
}

func TestTransform_ReturnsDifferentSample(t *testing.T) {
	tr := New(workpool.New(2))
	input := "the cat sat\nthe cat ran"
	got, err := tr.Transform(context.Background(), Devolve, input)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if got != "the cat sat" && got != "the cat ran" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestTransform_GibberishCoinFlip(t *testing.T) {
	testCases := []struct {
		name      string
		coin      bool
		wantFlips int
	}{
		{"Coin accepts first identical sample", true, 1},
		{"Coin rejects until the cap", false, 25},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr := New(workpool.New(1), WithGibberishCap(25), WithTries(1))
			flips := 0
			tr.coin = func() bool {
				flips++
				return tc.coin
			}

			// Distinct characters admit a single walk.
			got, err := tr.Transform(context.Background(), Gibberish, "abcdef")
			if err != nil {
				t.Fatalf("Transform failed: %v", err)
			}
			if got != "abcdef" {
				t.Errorf("got %q", got)
			}
			if flips != tc.wantFlips {
				t.Errorf("coin flipped %d times, want %d", flips, tc.wantFlips)
			}
		})
	}
}

func TestTransform_Wawa(t *testing.T) {
	tr := New(workpool.New(2))
	got, err := tr.Transform(context.Background(), Wawa, "banana bandana")
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if got == "" {
		t.Error("expected a non-empty transformation")
	}
}

func TestTransform_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := New(workpool.New(1))
	if _, err := tr.Transform(ctx, Devolve, "some words here"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
