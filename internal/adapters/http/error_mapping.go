package httpadapter

import (
	"net/http"

	"github.com/akorchagin/policy-rag/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDimensionMismatch):
		// Fatal configuration inconsistency; retrying will not help.
		return http.StatusInternalServerError
	case domain.IsKind(err, domain.ErrEmbeddingUnavailable),
		domain.IsKind(err, domain.ErrIndexUnavailable),
		domain.IsKind(err, domain.ErrRetrievalFailed),
		domain.IsKind(err, domain.ErrGenerationFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorKind gives callers a stable discriminator so "the system is down"
// and "bad request" are distinguishable without string inspection.
func errorKind(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid_input"
	case domain.IsKind(err, domain.ErrDimensionMismatch):
		return "dimension_mismatch"
	case domain.IsKind(err, domain.ErrEmbeddingUnavailable):
		return "embedding_unavailable"
	case domain.IsKind(err, domain.ErrIndexUnavailable):
		return "index_unavailable"
	case domain.IsKind(err, domain.ErrRetrievalFailed):
		return "retrieval_failed"
	case domain.IsKind(err, domain.ErrGenerationFailed):
		return "generation_failed"
	default:
		return "internal"
	}
}
