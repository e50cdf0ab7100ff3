package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/storefront-reviews/internal/domain"
	"github.com/utafrali/storefront-reviews/pkg/database"
	apperrors "github.com/utafrali/storefront-reviews/pkg/errors"
)

const foreignKeyViolation = "23503"

const (
	insertReviewSQL = `
		INSERT INTO product_reviews (product_id, rating, comment, analysis)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, created_at`

	listReviewsSQL = `
		SELECT id::text, product_id, rating, comment, analysis, created_at,
		       count(*) OVER() AS total_count
		FROM product_reviews
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
)

// ReviewRepository implements review persistence using PostgreSQL.
// created_at is assigned by the database.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Append inserts a review and returns it with its generated ID and timestamp.
func (r *ReviewRepository) Append(ctx context.Context, productID string, review *domain.NewReview) (_ *domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "AppendReview", insertReviewSQL)
	defer func() { end(err) }()

	analysis := review.Analysis
	if analysis == nil {
		analysis = domain.Analysis{}
	}
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis: %w", err)
	}

	stored := &domain.Review{
		ProductID: productID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		Analysis:  analysis,
	}
	err = r.pool.QueryRow(ctx, insertReviewSQL, productID, review.Rating, review.Comment, analysisJSON).
		Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, fmt.Errorf("insert review: %w", err)
	}
	return stored, nil
}

// ListByProductID returns paginated reviews for a product, newest first.
func (r *ReviewRepository) ListByProductID(ctx context.Context, productID string, page, perPage int) (_ []domain.Review, _ int, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "ListReviews", listReviewsSQL)
	defer func() { end(err) }()

	limit := perPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * limit
	}

	rows, err := r.pool.Query(ctx, listReviewsSQL, productID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    []domain.Review
		totalCount int
	)
	for rows.Next() {
		var (
			rv           domain.Review
			analysisJSON []byte
		)
		if err := rows.Scan(
			&rv.ID,
			&rv.ProductID,
			&rv.Rating,
			&rv.Comment,
			&analysisJSON,
			&rv.CreatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		if len(analysisJSON) > 0 {
			if err := json.Unmarshal(analysisJSON, &rv.Analysis); err != nil {
				return nil, 0, fmt.Errorf("unmarshal analysis: %w", err)
			}
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	if reviews == nil {
		reviews = []domain.Review{}
	}
	return reviews, totalCount, nil
}
