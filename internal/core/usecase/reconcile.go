package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/akorchagin/policy-rag/internal/core/domain"
	"github.com/akorchagin/policy-rag/internal/core/ports"
)

// CollectionReconciler guarantees that the collection exists and that its
// declared vector dimension matches the embedding produced for the current
// query. It runs before every search and must stay correct when several
// queries race on an absent collection, which it gets for free from the
// index's idempotent create.
type CollectionReconciler struct {
	index ports.VectorIndex
}

func NewCollectionReconciler(index ports.VectorIndex) *CollectionReconciler {
	return &CollectionReconciler{index: index}
}

func (r *CollectionReconciler) Ensure(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return domain.WrapError(domain.ErrInvalidInput, "reconcile collection", fmt.Errorf("dimension %d", dimension))
	}

	info, err := r.index.Describe(ctx)
	if err != nil {
		return fmt.Errorf("describe collection: %w", err)
	}

	if info == nil {
		if err := r.index.Create(ctx, dimension); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
		slog.Info("collection_created", "dimension", dimension)
		return nil
	}

	if info.Dimension == dimension {
		return nil
	}

	if info.PointsCount == 0 {
		// Empty collection with a stale dimension: recreating loses nothing.
		if err := r.index.Drop(ctx); err != nil {
			return fmt.Errorf("drop empty collection: %w", err)
		}
		if err := r.index.Create(ctx, dimension); err != nil {
			return fmt.Errorf("recreate collection: %w", err)
		}
		slog.Warn("collection_recreated_after_dimension_drift",
			"stored_dimension", info.Dimension,
			"embedding_dimension", dimension,
		)
		return nil
	}

	return domain.WrapError(domain.ErrDimensionMismatch, "reconcile collection",
		fmt.Errorf("collection holds %d points with dimension %d, embedding model produces dimension %d", info.PointsCount, info.Dimension, dimension))
}
