package usecase

import "github.com/akorchagin/policy-rag/internal/core/domain"

// Items the index returned without a score count as neutral rather than
// being excluded, so a partially-scored result set is not inflated.
const neutralScore = 0.5

// MeanConfidence aggregates per-chunk relevance into a single answer-level
// confidence in [0,1]. Empty retrieval is exactly 0.
func MeanConfidence(chunks []domain.RetrievedChunk) float64 {
	if len(chunks) == 0 {
		return 0
	}

	var sum float64
	for _, chunk := range chunks {
		if chunk.Score != nil {
			sum += *chunk.Score
		} else {
			sum += neutralScore
		}
	}

	mean := sum / float64(len(chunks))
	if mean < 0 {
		return 0
	}
	if mean > 1 {
		return 1
	}
	return mean
}
