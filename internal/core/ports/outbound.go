package ports

import (
	"context"

	"github.com/akorchagin/policy-rag/internal/core/domain"
)

// Embedder turns query text into a fixed-length vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the named collection in the vector database. Describe
// returns (nil, nil) when the collection does not exist; Create is
// idempotent for matching parameters.
type VectorIndex interface {
	Describe(ctx context.Context) (*domain.CollectionInfo, error)
	Create(ctx context.Context, dimension int) error
	Drop(ctx context.Context) error
	Search(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error)
}

// DocumentDirectory is the read-only relational view of policy documents,
// used to resolve domains to owning policies and policies to their
// type/url when the vector payload lacks them.
type DocumentDirectory interface {
	PolicyIDsByDomain(ctx context.Context, domainName string) ([]int64, error)
	// PolicyByID returns (nil, nil) when no such policy exists.
	PolicyByID(ctx context.Context, policyID int64) (*domain.PolicyRef, error)
}

// AnswerGenerator produces the final answer text from the assembled,
// citation-numbered context block.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question, contextBlock string) (string, error)
}
