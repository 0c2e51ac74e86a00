package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/akorchagin/policy-rag/internal/core/domain"
	"github.com/akorchagin/policy-rag/internal/core/ports"
)

const (
	defaultTopK              = 5
	defaultGroundedThreshold = 0.60
)

type QueryOptions struct {
	TopK                int
	OverfetchFactor     int
	PromptExcerptChars  int
	DisplayExcerptChars int
	GroundedThreshold   float64
}

// QueryUseCase runs the full pipeline for one question: embed, reconcile
// the collection, retrieve, assemble cited context, generate, score.
// Each stage blocks on the previous one's output; nothing is retried.
type QueryUseCase struct {
	embedder   ports.Embedder
	reconciler *CollectionReconciler
	retriever  *SemanticRetriever
	generator  ports.AnswerGenerator
	assembler  *ContextAssembler

	topK              int
	groundedThreshold float64
}

func NewQueryUseCase(
	embedder ports.Embedder,
	index ports.VectorIndex,
	directory ports.DocumentDirectory,
	generator ports.AnswerGenerator,
	opts QueryOptions,
) *QueryUseCase {
	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	threshold := opts.GroundedThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = defaultGroundedThreshold
	}
	return &QueryUseCase{
		embedder:          embedder,
		reconciler:        NewCollectionReconciler(index),
		retriever:         NewSemanticRetriever(index, directory, opts.OverfetchFactor),
		generator:         generator,
		assembler:         NewContextAssembler(opts.PromptExcerptChars, opts.DisplayExcerptChars),
		topK:              topK,
		groundedThreshold: threshold,
	}
}

func (uc *QueryUseCase) Ask(ctx context.Context, question, scope string) (*domain.QueryResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("question is empty"))
	}
	scope = strings.TrimSpace(scope)

	queryVector, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(queryVector) == 0 {
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "embed question", errors.New("empty embedding vector"))
	}

	if err := uc.reconciler.Ensure(ctx, len(queryVector)); err != nil {
		return nil, fmt.Errorf("reconcile collection: %w", err)
	}

	chunks, err := uc.retriever.Retrieve(ctx, queryVector, scope, uc.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	if len(chunks) == 0 {
		// A legitimate outcome, not a failure: nothing indexed matches.
		return &domain.QueryResult{
			Answer:     noContentAnswer(scope),
			Sources:    []domain.Source{},
			Confidence: 0,
		}, nil
	}

	assembled := uc.assembler.Assemble(chunks)

	answer, err := uc.generator.GenerateAnswer(ctx, question, assembled.Prompt)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	confidence := MeanConfidence(chunks)
	return &domain.QueryResult{
		Answer:     answer,
		Sources:    assembled.Sources,
		Confidence: confidence,
		Grounded:   confidence >= uc.groundedThreshold,
	}, nil
}

func noContentAnswer(scope string) string {
	if scope == "" || scope == domain.ScopeAll {
		return "No indexed policy content matches this question."
	}
	return fmt.Sprintf("No indexed policy content is available for %s.", scope)
}
