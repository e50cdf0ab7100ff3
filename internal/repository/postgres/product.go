package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront-reviews/internal/domain"
	"github.com/utafrali/storefront-reviews/pkg/database"
	apperrors "github.com/utafrali/storefront-reviews/pkg/errors"
)

const getProductSQL = `
		SELECT id, product_name, image_url, description
		FROM products
		WHERE id = $1`

const upsertProductSQL = `
		INSERT INTO products (id, product_name, image_url, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET product_name = EXCLUDED.product_name,
		    image_url = EXCLUDED.image_url,
		    description = EXCLUDED.description`

// ProductRepository reads products from PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByID retrieves a product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (_ *domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "GetProduct", getProductSQL)
	defer func() { end(err) }()

	var p domain.Product
	err = r.pool.QueryRow(ctx, getProductSQL, id).Scan(&p.ID, &p.ProductName, &p.ImageURL, &p.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return &p, nil
}

// Upsert inserts the product or overwrites its catalog fields.
func (r *ProductRepository) Upsert(ctx context.Context, p *domain.Product) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "UpsertProduct", upsertProductSQL)
	defer func() { end(err) }()

	if _, err = r.pool.Exec(ctx, upsertProductSQL, p.ID, p.ProductName, p.ImageURL, p.Description); err != nil {
		return fmt.Errorf("upsert product %s: %w", p.ID, err)
	}
	return nil
}
