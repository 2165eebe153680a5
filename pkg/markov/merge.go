package markov

import (
	"errors"
	"fmt"
)

// ErrIncompatibleModels is returned by Merge when the two models were built
// with different tokenizers or orders.
var ErrIncompatibleModels = errors.New("markov: incompatible models")

// Merge combines two models built with the same kind of tokenizer and the same
// order. The result samples as if it had been compiled from both source corpora:
// every link of a and b is present and link frequencies are added. Neither input
// is modified.
func Merge(a, b *Model) (*Model, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: nil model", ErrIncompatibleModels)
	}
	if a.order != b.order {
		return nil, fmt.Errorf("%w: order %d != %d", ErrIncompatibleModels, a.order, b.order)
	}
	if fmt.Sprintf("%T", a.tokenizer) != fmt.Sprintf("%T", b.tokenizer) {
		return nil, fmt.Errorf("%w: tokenizer %T != %T", ErrIncompatibleModels, a.tokenizer, b.tokenizer)
	}

	merged := a.clone()
	if err := merged.absorb(b); err != nil {
		return nil, err
	}
	return merged, nil
}

func (m *Model) clone() *Model {
	c := &Model{
		order:     m.order,
		tokenizer: m.tokenizer,
		vocab:     make([]string, len(m.vocab)),
		vocabIDs:  make(map[string]int, len(m.vocabIDs)),
		chains:    make(map[string]map[int]int, len(m.chains)),
		size:      m.size,
	}
	copy(c.vocab, m.vocab)
	for text, id := range m.vocabIDs {
		c.vocabIDs[text] = id
	}
	for key, nexts := range m.chains {
		cp := make(map[int]int, len(nexts))
		for id, freq := range nexts {
			cp[id] = freq
		}
		c.chains[key] = cp
	}
	return c
}

// absorb adds every link of other into m, re-mapping other's token IDs onto m's
// vocabulary.
func (m *Model) absorb(other *Model) error {
	vocabIDMap := make([]int, len(other.vocab)) // old_id -> new_id
	vocabIDMap[SOCTokenID] = SOCTokenID
	vocabIDMap[EOCTokenID] = EOCTokenID
	for oldID := EOCTokenID + 1; oldID < len(other.vocab); oldID++ {
		vocabIDMap[oldID] = m.tokenID(other.vocab[oldID])
	}

	newPrefix := make([]int, 0, m.order)
	var keyBuf []byte
	for oldKey, nexts := range other.chains {
		oldPrefix, err := parsePrefixKey(oldKey)
		if err != nil {
			return err
		}
		newPrefix = newPrefix[:0]
		for _, oldID := range oldPrefix {
			if oldID < 0 || oldID >= len(vocabIDMap) {
				return fmt.Errorf("consistency error: token id %d in prefix not found in vocabulary", oldID)
			}
			newPrefix = append(newPrefix, vocabIDMap[oldID])
		}
		var newKey string
		keyBuf, newKey = appendPrefixKey(keyBuf, newPrefix)
		for oldNext, freq := range nexts {
			m.addLink(newKey, vocabIDMap[oldNext], freq)
		}
	}
	return nil
}
