package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront-reviews/internal/domain"
	apperrors "github.com/utafrali/storefront-reviews/pkg/errors"
)

const keyPrefix = "review:draft:"

// DraftRepository implements repository.DraftRepository using Redis. Every
// save refreshes the TTL, so abandoned drafts expire on their own.
type DraftRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDraftRepository creates a new Redis-backed draft repository.
func NewDraftRepository(client *redis.Client, ttl time.Duration) *DraftRepository {
	return &DraftRepository{
		client: client,
		ttl:    ttl,
	}
}

func draftKey(key domain.DraftKey) string {
	return keyPrefix + key.SessionID + ":" + key.ProductID
}

// Get retrieves the draft for a session and product.
func (r *DraftRepository) Get(ctx context.Context, key domain.DraftKey) (*domain.Draft, error) {
	data, err := r.client.Get(ctx, draftKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("draft", key.SessionID+"/"+key.ProductID)
		}
		return nil, fmt.Errorf("redis get draft: %w", err)
	}

	var draft domain.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("unmarshal draft: %w", err)
	}
	return &draft, nil
}

// Save persists a draft with the configured TTL.
func (r *DraftRepository) Save(ctx context.Context, key domain.DraftKey, draft *domain.Draft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}

	if err := r.client.Set(ctx, draftKey(key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set draft: %w", err)
	}
	return nil
}
