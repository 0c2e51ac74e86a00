package ports

import (
	"context"

	"github.com/akorchagin/policy-rag/internal/core/domain"
)

// PolicyQueryService is the inbound contract for grounded policy Q&A.
// Scope is a company domain, or empty/"all" for unscoped retrieval.
type PolicyQueryService interface {
	Ask(ctx context.Context, question, scope string) (*domain.QueryResult, error)
}
