package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/akorchagin/policy-rag/internal/core/domain"
)

func TestRetrieveUnscopedUsesPlainLimit(t *testing.T) {
	index := &fakeIndex{searchFn: func(limit int, _ domain.SearchFilter) ([]domain.RetrievedChunk, error) {
		return trimToLimit([]domain.RetrievedChunk{
			{ID: "1", Domain: "a.com", Score: score(0.9)},
			{ID: "2", Domain: "b.com", Score: score(0.8)},
		}, limit), nil
	}}
	r := NewSemanticRetriever(index, &fakeDirectory{}, 5)

	chunks, err := r.Retrieve(context.Background(), []float32{0.1}, domain.ScopeAll, 3)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if len(index.searchCalls) != 1 {
		t.Fatalf("expected one search, got %d", len(index.searchCalls))
	}
	if call := index.searchCalls[0]; call.limit != 3 || call.filter.Domain != "" {
		t.Fatalf("expected unfiltered search with limit 3, got %+v", call)
	}
}

func TestRetrieveDomainScopeOverfetchesAndTruncates(t *testing.T) {
	all := make([]domain.RetrievedChunk, 5)
	for i := range all {
		all[i] = domain.RetrievedChunk{ID: string(rune('a' + i)), Domain: "good-example.com", Score: score(0.9)}
	}
	index := &fakeIndex{searchFn: func(limit int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error) {
		if filter.Domain != "good-example.com" {
			t.Fatalf("expected domain filter, got %+v", filter)
		}
		return trimToLimit(all, limit), nil
	}}
	r := NewSemanticRetriever(index, &fakeDirectory{}, 5)

	chunks, err := r.Retrieve(context.Background(), []float32{0.1}, "good-example.com", 3)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected truncation to 3, got %d", len(chunks))
	}
	if call := index.searchCalls[0]; call.limit != 15 {
		t.Fatalf("expected over-fetch limit 15, got %d", call.limit)
	}
	for _, chunk := range chunks {
		if chunk.Domain != "good-example.com" {
			t.Fatalf("filtered search returned foreign domain %q", chunk.Domain)
		}
	}
}

func TestRetrieveEmptyDomainWithoutOwnersIsNotAnError(t *testing.T) {
	index := &fakeIndex{}
	directory := &fakeDirectory{idsByDomain: map[string][]int64{}}
	r := NewSemanticRetriever(index, directory, 5)

	chunks, err := r.Retrieve(context.Background(), []float32{0.1}, "unknown-example.org", 3)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected empty result, got %d", len(chunks))
	}
	// Only the filtered search ran; no unfiltered fallback without owners.
	if len(index.searchCalls) != 1 {
		t.Fatalf("expected one search call, got %d", len(index.searchCalls))
	}
}

func TestRetrieveFallsBackToRelationalOwners(t *testing.T) {
	legacy := []domain.RetrievedChunk{
		{ID: "x", PolicyID: 7, Text: "legacy chunk", Score: score(0.7),
			Metadata: map[string]any{"domain": "good-example.com", "url": "https://good-example.com/privacy", "doc_type": "privacy"}},
		{ID: "y", PolicyID: 9, Text: "other company", Score: score(0.6)},
	}
	index := &fakeIndex{searchFn: func(limit int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error) {
		if filter.Domain != "" {
			return nil, nil
		}
		return trimToLimit(legacy, limit), nil
	}}
	directory := &fakeDirectory{
		idsByDomain: map[string][]int64{"good-example.com": {7}},
	}
	r := NewSemanticRetriever(index, directory, 5)

	chunks, err := r.Retrieve(context.Background(), []float32{0.1}, "good-example.com", 3)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected only the owned chunk, got %d", len(chunks))
	}
	got := chunks[0]
	if got.PolicyID != 7 {
		t.Fatalf("expected policy 7, got %d", got.PolicyID)
	}
	if got.Domain != "good-example.com" || got.URL != "https://good-example.com/privacy" || got.DocType != "privacy" {
		t.Fatalf("legacy metadata not resolved: %+v", got)
	}
}

func TestRetrieveDirectoryFailureIsRetrievalFailed(t *testing.T) {
	index := &fakeIndex{}
	directory := &fakeDirectory{idsErr: errors.New("connection reset")}
	r := NewSemanticRetriever(index, directory, 5)

	_, err := r.Retrieve(context.Background(), []float32{0.1}, "good-example.com", 3)
	if !domain.IsKind(err, domain.ErrRetrievalFailed) {
		t.Fatalf("expected ErrRetrievalFailed, got %v", err)
	}
}

func TestResolveOrderPrefersTopLevelThenMetadataThenDirectory(t *testing.T) {
	index := &fakeIndex{searchFn: func(limit int, _ domain.SearchFilter) ([]domain.RetrievedChunk, error) {
		return []domain.RetrievedChunk{
			{ID: "top", PolicyID: 1, URL: "https://top.example/privacy", Metadata: map[string]any{"url": "https://meta.example"}},
			{ID: "meta", PolicyID: 1, Metadata: map[string]any{"source_url": "https://meta.example/terms"}},
			{ID: "rel", PolicyID: 1},
		}, nil
	}}
	directory := &fakeDirectory{refs: map[int64]*domain.PolicyRef{
		1: {ID: 1, Domain: "rel.example", DocType: "terms", URL: "https://rel.example/terms"},
	}}
	r := NewSemanticRetriever(index, directory, 5)

	chunks, err := r.Retrieve(context.Background(), []float32{0.1}, domain.ScopeAll, 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if chunks[0].URL != "https://top.example/privacy" {
		t.Fatalf("top-level payload must win, got %q", chunks[0].URL)
	}
	if chunks[1].URL != "https://meta.example/terms" {
		t.Fatalf("metadata source_url must win over relational, got %q", chunks[1].URL)
	}
	if chunks[2].URL != "https://rel.example/terms" {
		t.Fatalf("relational fallback not applied, got %q", chunks[2].URL)
	}
	// All three chunks share a parent; the directory should be hit once.
	if directory.refCalls[1] != 1 {
		t.Fatalf("expected cached relational lookup, got %d calls", directory.refCalls[1])
	}
}
