package markov

import (
	"encoding/json"
	"fmt"
	"io"
)

// ExportedModel is the serializable representation of a compiled model,
// used for JSON-based import and export.
type ExportedModel struct {
	Order      int             `json:"order"`
	Vocabulary []string        `json:"vocabulary"` // index is the token id
	Chains     []ExportedChain `json:"chains"`
}

// ExportedChain is the serializable representation of a single link
// in a Markov chain, used within an ExportedModel.
type ExportedChain struct {
	Prefix      []int `json:"prefix"`
	NextTokenID int   `json:"next_token_id"`
	Frequency   int   `json:"frequency"`
}

// Export serializes the model into a JSON format and writes it to the
// provided io.Writer. The tokenizer is not part of the export.
func (m *Model) Export(w io.Writer) error {
	exported := ExportedModel{
		Order:      m.order,
		Vocabulary: m.vocab,
		Chains:     make([]ExportedChain, 0, m.size),
	}
	for key, nexts := range m.chains {
		prefix, err := parsePrefixKey(key)
		if err != nil {
			return err
		}
		for next, freq := range nexts {
			exported.Chains = append(exported.Chains, ExportedChain{
				Prefix:      prefix,
				NextTokenID: next,
				Frequency:   freq,
			})
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exported)
}

// Import reads a JSON representation of a model from an io.Reader and rebuilds
// it with the given tokenizer. Every token id referenced by a chain must be
// present in the vocabulary.
func Import(r io.Reader, tokenizer Tokenizer) (*Model, error) {
	var imported ExportedModel
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return nil, fmt.Errorf("failed to decode json model: %w", err)
	}
	if imported.Order < 1 {
		return nil, fmt.Errorf("invalid model order %d", imported.Order)
	}
	if len(imported.Vocabulary) < 2 || imported.Vocabulary[SOCTokenID] != SOCTokenText || imported.Vocabulary[EOCTokenID] != EOCTokenText {
		return nil, fmt.Errorf("vocabulary does not start with the reserved tokens")
	}

	m := newEmptyModel(tokenizer, imported.Order)
	for i, text := range imported.Vocabulary[EOCTokenID+1:] {
		if id := m.tokenID(text); id != i+EOCTokenID+1 {
			return nil, fmt.Errorf("duplicate vocabulary entry '%s'", text)
		}
	}

	var keyBuf []byte
	for _, chain := range imported.Chains {
		if len(chain.Prefix) != imported.Order {
			return nil, fmt.Errorf("import consistency error: prefix %v does not match order %d", chain.Prefix, imported.Order)
		}
		for _, id := range chain.Prefix {
			if id < 0 || id >= len(m.vocab) {
				return nil, fmt.Errorf("import consistency error: prefix token id %d not found in vocabulary", id)
			}
		}
		if chain.NextTokenID < 0 || chain.NextTokenID >= len(m.vocab) {
			return nil, fmt.Errorf("import consistency error: token id %d not found in vocabulary", chain.NextTokenID)
		}
		if chain.Frequency < 1 {
			return nil, fmt.Errorf("import consistency error: non-positive frequency %d", chain.Frequency)
		}
		var key string
		keyBuf, key = appendPrefixKey(keyBuf, chain.Prefix)
		m.addLink(key, chain.NextTokenID, chain.Frequency)
	}
	return m, nil
}
