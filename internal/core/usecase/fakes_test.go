package usecase

import (
	"context"

	"github.com/akorchagin/policy-rag/internal/core/domain"
)

type searchCall struct {
	limit  int
	filter domain.SearchFilter
}

type fakeIndex struct {
	info        *domain.CollectionInfo
	describeErr error
	createErr   error
	dropErr     error
	searchFn    func(limit int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error)

	createCalls int
	dropCalls   int
	searchCalls []searchCall
}

func (f *fakeIndex) Describe(context.Context) (*domain.CollectionInfo, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return f.info, nil
}

func (f *fakeIndex) Create(_ context.Context, dimension int) error {
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	f.info = &domain.CollectionInfo{Dimension: dimension, Distance: "Cosine"}
	return nil
}

func (f *fakeIndex) Drop(context.Context) error {
	f.dropCalls++
	if f.dropErr != nil {
		return f.dropErr
	}
	f.info = nil
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, limit int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error) {
	f.searchCalls = append(f.searchCalls, searchCall{limit: limit, filter: filter})
	if f.searchFn == nil {
		return nil, nil
	}
	return f.searchFn(limit, filter)
}

type fakeDirectory struct {
	idsByDomain map[string][]int64
	idsErr      error
	refs        map[int64]*domain.PolicyRef
	refErr      error

	refCalls map[int64]int
}

func (f *fakeDirectory) PolicyIDsByDomain(_ context.Context, domainName string) ([]int64, error) {
	if f.idsErr != nil {
		return nil, f.idsErr
	}
	return f.idsByDomain[domainName], nil
}

func (f *fakeDirectory) PolicyByID(_ context.Context, policyID int64) (*domain.PolicyRef, error) {
	if f.refCalls == nil {
		f.refCalls = make(map[int64]int)
	}
	f.refCalls[policyID]++
	if f.refErr != nil {
		return nil, f.refErr
	}
	return f.refs[policyID], nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
	text   string
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.text = text
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type fakeGenerator struct {
	answer string
	err    error
	prompt string
}

func (f *fakeGenerator) GenerateAnswer(_ context.Context, _ string, contextBlock string) (string, error) {
	f.prompt = contextBlock
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func score(v float64) *float64 {
	return &v
}

func trimToLimit(chunks []domain.RetrievedChunk, limit int) []domain.RetrievedChunk {
	if limit < len(chunks) {
		return chunks[:limit]
	}
	return chunks
}
