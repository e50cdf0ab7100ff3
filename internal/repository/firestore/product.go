package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/utafrali/storefront-reviews/internal/domain"
	"github.com/utafrali/storefront-reviews/pkg/database"
	apperrors "github.com/utafrali/storefront-reviews/pkg/errors"
)

// ProductRepository reads products/{id} documents.
type ProductRepository struct {
	client *firestore.Client
}

func NewProductRepository(client *firestore.Client) *ProductRepository {
	return &ProductRepository{client: client}
}

// GetByID returns the product stored at products/{id}.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (_ *domain.Product, err error) {
	if id == "" {
		return nil, apperrors.NotFound("product", id)
	}

	ctx, end := database.TraceQuery(ctx, database.SystemFirestore, "GetProduct", productsCollection+"/{id}.get")
	defer func() { end(err) }()

	snap, err := r.client.Collection(productsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}

	var p domain.Product
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decode product %s: %w", id, err)
	}
	p.ID = snap.Ref.ID
	return &p, nil
}

// Upsert writes products/{id}, replacing any existing document.
func (r *ProductRepository) Upsert(ctx context.Context, p *domain.Product) (err error) {
	if p.ID == "" {
		return apperrors.InvalidInput("product id is required")
	}

	ctx, end := database.TraceQuery(ctx, database.SystemFirestore, "UpsertProduct", productsCollection+"/{id}.set")
	defer func() { end(err) }()

	if _, err = r.client.Collection(productsCollection).Doc(p.ID).Set(ctx, p); err != nil {
		return fmt.Errorf("upsert product %s: %w", p.ID, err)
	}
	return nil
}
