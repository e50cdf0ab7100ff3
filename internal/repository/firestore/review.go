package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"

	"github.com/utafrali/storefront-reviews/internal/domain"
	"github.com/utafrali/storefront-reviews/pkg/database"
)

// reviewDoc is the stored document shape. CreatedAt is left zero on write so
// Firestore fills it with the commit time.
type reviewDoc struct {
	Rating    int            `firestore:"rating"`
	Comment   string         `firestore:"comment"`
	Analysis  map[string]any `firestore:"analysis"`
	CreatedAt time.Time      `firestore:"createdAt,serverTimestamp"`
}

// ReviewRepository appends reviews to products/{id}/reviews.
type ReviewRepository struct {
	client *firestore.Client
}

func NewReviewRepository(client *firestore.Client) *ReviewRepository {
	return &ReviewRepository{client: client}
}

func (r *ReviewRepository) reviews(productID string) *firestore.CollectionRef {
	return r.client.Collection(productsCollection).Doc(productID).Collection(reviewsCollection)
}

// Append adds a document {rating, comment, analysis, createdAt}. The commit
// time reported by Firestore is the stored createdAt.
func (r *ReviewRepository) Append(ctx context.Context, productID string, review *domain.NewReview) (_ *domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemFirestore, "AppendReview", productsCollection+"/{id}/"+reviewsCollection+".add")
	defer func() { end(err) }()

	analysis := map[string]any(review.Analysis)
	if analysis == nil {
		analysis = map[string]any{}
	}

	ref, wr, err := r.reviews(productID).Add(ctx, reviewDoc{
		Rating:   review.Rating,
		Comment:  review.Comment,
		Analysis: analysis,
	})
	if err != nil {
		return nil, fmt.Errorf("add review for product %s: %w", productID, err)
	}

	return &domain.Review{
		ID:        ref.ID,
		ProductID: productID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		Analysis:  domain.Analysis(analysis),
		CreatedAt: wr.UpdateTime,
	}, nil
}

// ListByProductID pages through reviews ordered by createdAt descending.
func (r *ReviewRepository) ListByProductID(ctx context.Context, productID string, page, perPage int) (_ []domain.Review, _ int, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemFirestore, "ListReviews", productsCollection+"/{id}/"+reviewsCollection+".list")
	defer func() { end(err) }()

	limit := perPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * limit
	}

	col := r.reviews(productID)
	total, err := count(ctx, col)
	if err != nil {
		return nil, 0, err
	}

	it := col.OrderBy("createdAt", firestore.Desc).Offset(offset).Limit(limit).Documents(ctx)
	defer it.Stop()

	reviews := []domain.Review{}
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("iterate reviews: %w", err)
		}

		var doc reviewDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, 0, fmt.Errorf("decode review %s: %w", snap.Ref.ID, err)
		}
		reviews = append(reviews, domain.Review{
			ID:        snap.Ref.ID,
			ProductID: productID,
			Rating:    doc.Rating,
			Comment:   doc.Comment,
			Analysis:  domain.Analysis(doc.Analysis),
			CreatedAt: doc.CreatedAt,
		})
	}
	return reviews, total, nil
}

func count(ctx context.Context, col *firestore.CollectionRef) (int, error) {
	res, err := col.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	v, ok := res["all"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("count reviews: unexpected result type %T", res["all"])
	}
	return int(v.GetIntegerValue()), nil
}
