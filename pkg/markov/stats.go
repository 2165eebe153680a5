package markov

// ModelStats holds aggregated statistics for a single Markov model.
type ModelStats struct {
	Order          int `json:"order"`           // The number of preceding tokens used to predict the next one.
	TotalChains    int `json:"total_chains"`    // The number of unique prefix->next_token links.
	TotalFrequency int `json:"total_frequency"` // The sum of frequencies of all links; the total number of trained transitions.
	StartingTokens int `json:"starting_tokens"` // The number of unique tokens that can start a chain.
	VocabSize      int `json:"vocab_size"`      // The number of unique tokens, excluding <SOC> and <EOC>.
}

// Stats returns a snapshot of statistics for the model.
func (m *Model) Stats() ModelStats {
	var totalFrequency int
	for _, nexts := range m.chains {
		for _, freq := range nexts {
			totalFrequency += freq
		}
	}

	_, socKey := appendPrefixKey(nil, make([]int, m.order))

	return ModelStats{
		Order:          m.order,
		TotalChains:    m.size,
		TotalFrequency: totalFrequency,
		StartingTokens: len(m.chains[socKey]),
		VocabSize:      len(m.vocab) - 2,
	}
}
