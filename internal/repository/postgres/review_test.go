package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront-reviews/internal/domain"
	apperrors "github.com/utafrali/storefront-reviews/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

var reviewColumnsWithCount = []string{
	"id", "product_id", "rating", "comment", "analysis", "created_at", "total_count",
}

// ─────────────────────────────────────────────────────────────────────────────
// ProductRepository
// ─────────────────────────────────────────────────────────────────────────────

func TestProductRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM products")).
		WithArgs("p-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "product_name", "image_url", "description"}).
			AddRow("p-1", "Trail Runner", "https://img/p-1.png", "Light shoe"))

	p, err := repo.GetByID(context.Background(), "p-1")

	require.NoError(t, err)
	assert.Equal(t, &domain.Product{ID: "p-1", ProductName: "Trail Runner", ImageURL: "https://img/p-1.png", Description: "Light shoe"}, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM products")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	p, err := repo.GetByID(context.Background(), "missing")

	assert.Nil(t, p)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Upsert(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO UPDATE")).
		WithArgs("p-1", "Trail Runner", "https://img/p.png", "Light shoe").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Upsert(context.Background(), &domain.Product{
		ID:          "p-1",
		ProductName: "Trail Runner",
		ImageURL:    "https://img/p.png",
		Description: "Light shoe",
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Upsert_DBError(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products")).
		WithArgs("p-1", "", "", "").
		WillReturnError(errors.New("connection reset"))

	err := repo.Upsert(context.Background(), &domain.Product{ID: "p-1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert product p-1")
}

func TestProductRepository_GetByID_DBError(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM products")).
		WithArgs("p-1").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.GetByID(context.Background(), "p-1")

	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "get product p-1")
}

// ─────────────────────────────────────────────────────────────────────────────
// ReviewRepository.Append
// ─────────────────────────────────────────────────────────────────────────────

func TestReviewRepository_Append(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO product_reviews (product_id, rating, comment, analysis)")).
		WithArgs("p-1", 4, "Great", []byte(`{"sentiment":"positive"}`)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow("rev-1", now))

	got, err := repo.Append(context.Background(), "p-1", &domain.NewReview{
		Rating:   4,
		Comment:  "Great",
		Analysis: domain.Analysis{"sentiment": "positive"},
	})

	require.NoError(t, err)
	assert.Equal(t, "rev-1", got.ID)
	assert.Equal(t, "p-1", got.ProductID)
	assert.Equal(t, 4, got.Rating)
	assert.Equal(t, now, got.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Append_NilAnalysisStoredAsEmptyObject(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)

	mock.ExpectQuery("INSERT INTO product_reviews").
		WithArgs("p-1", 0, "ok", []byte(`{}`)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow("rev-2", now))

	got, err := repo.Append(context.Background(), "p-1", &domain.NewReview{Comment: "ok"})

	require.NoError(t, err)
	assert.Equal(t, domain.Analysis{}, got.Analysis)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Append_UnknownProduct(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)

	mock.ExpectQuery("INSERT INTO product_reviews").
		WithArgs("ghost", 3, "x", []byte(`{}`)).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	_, err := repo.Append(context.Background(), "ghost", &domain.NewReview{Rating: 3, Comment: "x"})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReviewRepository_Append_DBError(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)

	mock.ExpectQuery("INSERT INTO product_reviews").
		WithArgs("p-1", 3, "x", []byte(`{}`)).
		WillReturnError(errors.New("disk full"))

	_, err := repo.Append(context.Background(), "p-1", &domain.NewReview{Rating: 3, Comment: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert review")
}

// ─────────────────────────────────────────────────────────────────────────────
// ReviewRepository.ListByProductID
// ─────────────────────────────────────────────────────────────────────────────

func TestReviewRepository_ListByProductID(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).
		WithArgs("p-1", 2, 2).
		WillReturnRows(pgxmock.NewRows(reviewColumnsWithCount).
			AddRow("rev-3", "p-1", 5, "Love it", []byte(`{"score":0.9}`), now, 5).
			AddRow("rev-2", "p-1", 1, "Meh", []byte(nil), now.Add(-time.Hour), 5))

	reviews, total, err := repo.ListByProductID(context.Background(), "p-1", 2, 2)

	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, reviews, 2)
	assert.Equal(t, "rev-3", reviews[0].ID)
	assert.Equal(t, 0.9, reviews[0].Analysis["score"])
	assert.Nil(t, reviews[1].Analysis)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_ListByProductID_Empty(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)

	mock.ExpectQuery("FROM product_reviews").
		WithArgs("p-1", 20, 0).
		WillReturnRows(pgxmock.NewRows(reviewColumnsWithCount))

	reviews, total, err := repo.ListByProductID(context.Background(), "p-1", 0, 0)

	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NotNil(t, reviews)
	assert.Empty(t, reviews)
}

func TestReviewRepository_ListByProductID_QueryError(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)

	mock.ExpectQuery("FROM product_reviews").
		WithArgs("p-1", 20, 0).
		WillReturnError(errors.New("timeout"))

	_, _, err := repo.ListByProductID(context.Background(), "p-1", 1, 20)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "list reviews")
}
