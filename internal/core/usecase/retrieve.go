package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/akorchagin/policy-rag/internal/core/domain"
	"github.com/akorchagin/policy-rag/internal/core/ports"
)

const defaultOverfetchFactor = 5

// SemanticRetriever runs similarity search with optional domain scoping.
// Domain-filtered searches over-fetch because domain metadata is sparse on
// older points; when the server-side filter finds nothing at all, the
// retriever falls back to resolving the domain's policies relationally and
// post-filtering an unfiltered search by parent policy id.
type SemanticRetriever struct {
	index     ports.VectorIndex
	directory ports.DocumentDirectory
	overfetch int
}

func NewSemanticRetriever(index ports.VectorIndex, directory ports.DocumentDirectory, overfetchFactor int) *SemanticRetriever {
	if overfetchFactor <= 0 {
		overfetchFactor = defaultOverfetchFactor
	}
	return &SemanticRetriever{
		index:     index,
		directory: directory,
		overfetch: overfetchFactor,
	}
}

func (r *SemanticRetriever) Retrieve(ctx context.Context, queryVector []float32, scope string, limit int) ([]domain.RetrievedChunk, error) {
	if limit <= 0 {
		limit = defaultTopK
	}
	resolver := newRefResolver(r.directory)

	if scope == "" || scope == domain.ScopeAll {
		chunks, err := r.index.Search(ctx, queryVector, limit, domain.SearchFilter{})
		if err != nil {
			return nil, fmt.Errorf("unscoped search: %w", err)
		}
		return resolver.resolveAll(ctx, chunks), nil
	}

	candidates := limit * r.overfetch
	chunks, err := r.index.Search(ctx, queryVector, candidates, domain.SearchFilter{Domain: scope})
	if err != nil {
		return nil, fmt.Errorf("domain-filtered search: %w", err)
	}
	if len(chunks) > 0 {
		return resolver.resolveAll(ctx, trimChunks(chunks, limit)), nil
	}

	// Zero filtered hits does not mean the domain has no content: points
	// indexed before the payload schema change carry the domain only inside
	// the metadata blob, invisible to the server-side filter.
	ownerIDs, err := r.directory.PolicyIDsByDomain(ctx, scope)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalFailed, "resolve domain owners", err)
	}
	if len(ownerIDs) == 0 {
		return nil, nil
	}

	owners := make(map[int64]struct{}, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = struct{}{}
	}

	unfiltered, err := r.index.Search(ctx, queryVector, candidates, domain.SearchFilter{})
	if err != nil {
		return nil, fmt.Errorf("fallback search: %w", err)
	}

	kept := make([]domain.RetrievedChunk, 0, limit)
	for _, chunk := range unfiltered {
		if _, ok := owners[chunk.PolicyID]; !ok {
			continue
		}
		kept = append(kept, chunk)
	}
	return resolver.resolveAll(ctx, trimChunks(kept, limit)), nil
}

func trimChunks(chunks []domain.RetrievedChunk, limit int) []domain.RetrievedChunk {
	if limit <= 0 || len(chunks) <= limit {
		return chunks
	}
	return chunks[:limit]
}

// refResolver fills in url/doc_type/domain for retrieved chunks using an
// ordered list of sources: top-level payload, legacy metadata fields,
// relational policy record. Relational lookups are cached for the request
// so chunks sharing a parent policy hit the directory once.
type refResolver struct {
	directory ports.DocumentDirectory
	cache     map[int64]*domain.PolicyRef
}

func newRefResolver(directory ports.DocumentDirectory) *refResolver {
	return &refResolver{
		directory: directory,
		cache:     make(map[int64]*domain.PolicyRef),
	}
}

func (rv *refResolver) resolveAll(ctx context.Context, chunks []domain.RetrievedChunk) []domain.RetrievedChunk {
	out := make([]domain.RetrievedChunk, 0, len(chunks))
	for _, chunk := range chunks {
		chunk.URL = rv.lookup(ctx, chunk, chunk.URL, []string{"url", "source_url"}, func(ref *domain.PolicyRef) string { return ref.URL })
		chunk.DocType = rv.lookup(ctx, chunk, chunk.DocType, []string{"doc_type"}, func(ref *domain.PolicyRef) string { return ref.DocType })
		chunk.Domain = rv.lookup(ctx, chunk, chunk.Domain, []string{"domain"}, func(ref *domain.PolicyRef) string { return ref.Domain })
		out = append(out, chunk)
	}
	return out
}

func (rv *refResolver) lookup(
	ctx context.Context,
	chunk domain.RetrievedChunk,
	topLevel string,
	metadataKeys []string,
	fromRef func(*domain.PolicyRef) string,
) string {
	if topLevel != "" {
		return topLevel
	}
	for _, key := range metadataKeys {
		if v := metadataString(chunk.Metadata, key); v != "" {
			return v
		}
	}
	if ref := rv.ref(ctx, chunk.PolicyID); ref != nil {
		return fromRef(ref)
	}
	return ""
}

func (rv *refResolver) ref(ctx context.Context, policyID int64) *domain.PolicyRef {
	if policyID <= 0 {
		return nil
	}
	if ref, ok := rv.cache[policyID]; ok {
		return ref
	}
	ref, err := rv.directory.PolicyByID(ctx, policyID)
	if err != nil {
		// Resolution is best effort; a directory hiccup degrades citations,
		// it does not fail the query.
		return nil
	}
	rv.cache[policyID] = ref
	return ref
}

func metadataString(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	v, ok := metadata[key]
	if !ok {
		return ""
	}
	switch value := v.(type) {
	case string:
		return value
	case json.Number:
		return value.String()
	default:
		return ""
	}
}
