package repository

import (
	"context"

	"github.com/utafrali/storefront-reviews/internal/domain"
)

// ProductRepository reads catalog products.
type ProductRepository interface {
	// GetByID returns the product or an error wrapping apperrors.ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

// ProductWriter creates or replaces catalog products. Only the seed tool
// writes products; the review page treats them as read-only.
type ProductWriter interface {
	Upsert(ctx context.Context, product *domain.Product) error
}

// ReviewRepository stores reviews under their product.
type ReviewRepository interface {
	// Append writes a new review for productID. The backend assigns
	// CreatedAt; the returned review carries the stored values.
	Append(ctx context.Context, productID string, review *domain.NewReview) (*domain.Review, error)

	// ListByProductID returns a page of reviews, newest first, and the total count.
	ListByProductID(ctx context.Context, productID string, page, perPage int) ([]domain.Review, int, error)
}

// DraftRepository persists per-session review drafts. Drafts are never
// removed explicitly; a submitted draft keeps the thank-you view until the
// backend's TTL drops it.
type DraftRepository interface {
	// Get returns the stored draft, or an error wrapping apperrors.ErrNotFound.
	Get(ctx context.Context, key domain.DraftKey) (*domain.Draft, error)
	Save(ctx context.Context, key domain.DraftKey, draft *domain.Draft) error
}
