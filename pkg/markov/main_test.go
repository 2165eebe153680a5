package markov

import (
	"go/build"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// fishCorpus is the corpus most tests train on.
var fishCorpus = []string{"one fish two fish", "red fish blue fish"}

// newTestModel builds a model with a fixed order so that tests are deterministic.
func newTestModel(t testing.TB, corpus []string, order int) *Model {
	t.Helper()
	m := buildModel(corpus, NewWordTokenizer(), order)
	if m.Size() == 0 && len(corpus) > 0 {
		t.Fatalf("buildModel(%q, order=%d) produced an empty model", corpus, order)
	}
	return m
}

var (
	benchmarkCorpus []string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files to create a corpus for benchmarking.
func createBenchmarkCorpus() []string {
	corpusOnce.Do(func() {
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
			filepath.Join(goRoot, "src/encoding/json/encode.go"),
		}

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				benchmarkCorpus = []string{"this is a fallback corpus for benchmarking. it is not very long but will prevent a crash."}
				return
			}
			benchmarkCorpus = append(benchmarkCorpus, strings.Split(string(content), "\n")...)
		}
	})
	return benchmarkCorpus
}
