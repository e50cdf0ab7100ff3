// Package catalog resolves product identifiers into ProductLookup values,
// reporting Loading while a fetch is still in flight.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"github.com/utafrali/storefront-reviews/internal/domain"
	"github.com/utafrali/storefront-reviews/internal/repository"
	apperrors "github.com/utafrali/storefront-reviews/pkg/errors"
)

var lookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_lookups_total",
		Help: "Product lookups by outcome",
	},
	[]string{"outcome"}, // hit, found, not_found, loading, error
)

const defaultCacheSize = 10_000

// Config bounds how long a lookup waits and how long results are kept.
// CacheSize caps the number of cached ids; zero means defaultCacheSize.
type Config struct {
	LoadWait     time.Duration
	CacheTTL     time.Duration
	CacheSize    int
	FetchTimeout time.Duration
}

// Loader fronts a ProductRepository. Concurrent lookups of one id share a
// single fetch, and the fetch outlives the request that started it so a
// later page refresh can pick up the result.
type Loader struct {
	repo   repository.ProductRepository
	cfg    Config
	logger *slog.Logger

	group singleflight.Group
	// A nil product records a not-found id.
	cache *expirable.LRU[string, *domain.Product]
}

func NewLoader(repo repository.ProductRepository, cfg Config, logger *slog.Logger) *Loader {
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	return &Loader{
		repo:   repo,
		cfg:    cfg,
		logger: logger,
		cache:  expirable.NewLRU[string, *domain.Product](size, nil, cfg.CacheTTL),
	}
}

// Lookup returns the cached result for id, or waits up to LoadWait for a
// fetch. A fetch that has not finished by then, or that failed for any
// reason other than not-found, is reported as Loading.
func (l *Loader) Lookup(ctx context.Context, id string) domain.ProductLookup {
	if product, ok := l.cached(id); ok {
		lookupsTotal.WithLabelValues("hit").Inc()
		return domain.ProductLookup{Product: product}
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(id, func() (any, error) {
		return l.fetch(fetchCtx, id)
	})

	timer := time.NewTimer(l.cfg.LoadWait)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			lookupsTotal.WithLabelValues("error").Inc()
			return domain.ProductLookup{Loading: true}
		}
		product, _ := res.Val.(*domain.Product)
		if product == nil {
			lookupsTotal.WithLabelValues("not_found").Inc()
		} else {
			lookupsTotal.WithLabelValues("found").Inc()
		}
		return domain.ProductLookup{Product: product}
	case <-timer.C:
	case <-ctx.Done():
	}
	lookupsTotal.WithLabelValues("loading").Inc()
	return domain.ProductLookup{Loading: true}
}

func (l *Loader) fetch(ctx context.Context, id string) (*domain.Product, error) {
	if l.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.FetchTimeout)
		defer cancel()
	}

	product, err := l.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			l.store(id, nil)
			return nil, nil
		}
		l.logger.ErrorContext(ctx, "failed to fetch product",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	l.store(id, product)
	return product, nil
}

func (l *Loader) cached(id string) (*domain.Product, bool) {
	return l.cache.Get(id)
}

func (l *Loader) store(id string, product *domain.Product) {
	l.cache.Add(id, product)
}
