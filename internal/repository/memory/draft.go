// Package memory holds in-process repositories used when Redis is disabled
// and in tests.
package memory

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/utafrali/storefront-reviews/internal/domain"
	apperrors "github.com/utafrali/storefront-reviews/pkg/errors"
)

// maxDrafts bounds memory use; the least recently touched draft goes first.
const maxDrafts = 50_000

// DraftRepository keeps drafts in an expiring LRU. A draft lives for ttl
// after its last save.
type DraftRepository struct {
	drafts *expirable.LRU[domain.DraftKey, domain.Draft]
}

func NewDraftRepository(ttl time.Duration) *DraftRepository {
	return newDraftRepository(maxDrafts, ttl)
}

func newDraftRepository(size int, ttl time.Duration) *DraftRepository {
	return &DraftRepository{drafts: expirable.NewLRU[domain.DraftKey, domain.Draft](size, nil, ttl)}
}

func (r *DraftRepository) Get(_ context.Context, key domain.DraftKey) (*domain.Draft, error) {
	d, ok := r.drafts.Get(key)
	if !ok {
		return nil, apperrors.NotFound("draft", key.SessionID+"/"+key.ProductID)
	}
	return &d, nil
}

func (r *DraftRepository) Save(_ context.Context, key domain.DraftKey, draft *domain.Draft) error {
	r.drafts.Add(key, *draft)
	return nil
}
