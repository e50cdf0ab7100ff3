// Package firestore stores products and their reviews in Cloud Firestore.
// Reviews live in the reviews sub-collection of products/{productId}.
package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

const (
	productsCollection = "products"
	reviewsCollection  = "reviews"
)

// NewClient connects to project. FIRESTORE_EMULATOR_HOST, when set, points
// the client at a local emulator.
func NewClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return client, nil
}

// Ping reads at most one product document to verify connectivity.
func Ping(ctx context.Context, client *firestore.Client) error {
	it := client.Collection(productsCollection).Limit(1).Documents(ctx)
	defer it.Stop()
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("firestore ping: %w", err)
	}
	return nil
}
