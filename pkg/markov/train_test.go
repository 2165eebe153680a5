package markov

import (
	"fmt"
	"testing"
)

func TestBuildModel(t *testing.T) {
	m := newTestModel(t, []string{"a b c", "a b d"}, 2)

	// <SOC><SOC>->a, <SOC>a->b, ab->c, ab->d, bc-><EOC>, bd-><EOC>
	if m.Size() != 6 {
		t.Errorf("expected 6 distinct links, got %d", m.Size())
	}

	aID, _ := m.VocabStr("a")
	bID, _ := m.VocabStr("b")
	tokens, totalFreq := m.NextTokens([]int{aID, bID})
	if totalFreq != 2 {
		t.Errorf("expected prefix 'a b' to have total frequency of 2, got %d", totalFreq)
	}
	if len(tokens) != 2 {
		t.Errorf("expected prefix 'a b' to lead to 2 unique next tokens, got %d", len(tokens))
	}
}

func TestBuildModelLinesAreChains(t *testing.T) {
	m := newTestModel(t, []string{"hello there\nhello again"}, 1)

	helloID, _ := m.VocabStr("hello")
	starters, total := m.NextTokens([]int{SOCTokenID})
	if total != 2 || len(starters) != 1 || starters[0].Id != helloID {
		t.Errorf("expected 'hello' to start both lines, got %+v (total %d)", starters, total)
	}
}

func TestNewModelOrder(t *testing.T) {
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		m := NewModel(fishCorpus, NewWordTokenizer())
		if m.Order() != 1 && m.Order() != 2 {
			t.Fatalf("unexpected order %d", m.Order())
		}
		seen[m.Order()] = true
	}
	if !seen[1] || !seen[2] {
		t.Errorf("expected both orders to be picked over 200 builds, saw %v", seen)
	}
}

func TestEmptyCorpus(t *testing.T) {
	m := NewModel(nil, NewWordTokenizer())
	if m.Size() != 0 {
		t.Errorf("expected empty model, got size %d", m.Size())
	}
	if text, ok := m.Sample(100); ok {
		t.Errorf("expected no sample from empty model, got %q", text)
	}
}

func BenchmarkBuildModel(b *testing.B) {
	corpus := createBenchmarkCorpus()

	for _, order := range []int{1, 2} {
		b.Run(fmt.Sprintf("Order%d", order), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = buildModel(corpus, NewWordTokenizer(), order)
			}
		})
	}
}

func TestReservedTextsInCorpus(t *testing.T) {
	m := newTestModel(t, []string{"say <SOC> then <EOC> now"}, 1)

	for _, text := range []string{SOCTokenText, EOCTokenText} {
		id, ok := m.VocabStr(text)
		if !ok {
			t.Fatalf("VocabStr(%q) not found", text)
		}
		if id == SOCTokenID || id == EOCTokenID {
			t.Errorf("corpus word %q mapped onto reserved id %d", text, id)
		}
	}

	sayID, _ := m.VocabStr("say")
	starters, _ := m.NextTokens([]int{SOCTokenID})
	if len(starters) != 1 || starters[0].Id != sayID {
		t.Errorf("expected only 'say' to start a chain, got %+v", starters)
	}

	// A single sentence of distinct words admits exactly one walk.
	for i := 0; i < 20; i++ {
		got, ok := m.Sample(0)
		if !ok || got != "say <SOC> then <EOC> now" {
			t.Fatalf("Sample() = %q, %v", got, ok)
		}
	}
}
