package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront-reviews/internal/domain"
	apperrors "github.com/utafrali/storefront-reviews/pkg/errors"
)

type fakeProducts struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	err      error
	release  chan struct{}
	calls    atomic.Int32
}

func (f *fakeProducts) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	return p, nil
}

func testConfig() Config {
	return Config{LoadWait: 200 * time.Millisecond, CacheTTL: time.Minute, FetchTimeout: time.Second}
}

func newTestLoader(repo *fakeProducts, cfg Config) *Loader {
	return NewLoader(repo, cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

var shoe = &domain.Product{ID: "p-1", ProductName: "Trail Runner"}

func TestLookup_Found(t *testing.T) {
	repo := &fakeProducts{products: map[string]*domain.Product{"p-1": shoe}}
	l := newTestLoader(repo, testConfig())

	got := l.Lookup(context.Background(), "p-1")

	assert.Equal(t, domain.ProductLookup{Product: shoe}, got)
}

func TestLookup_NotFoundIsCached(t *testing.T) {
	repo := &fakeProducts{products: map[string]*domain.Product{}}
	l := newTestLoader(repo, testConfig())

	for i := 0; i < 3; i++ {
		got := l.Lookup(context.Background(), "missing")
		assert.Equal(t, domain.ProductLookup{}, got)
	}
	assert.Equal(t, int32(1), repo.calls.Load())
}

func TestLookup_SlowFetchReportsLoadingThenResolves(t *testing.T) {
	repo := &fakeProducts{products: map[string]*domain.Product{"p-1": shoe}, release: make(chan struct{})}
	cfg := testConfig()
	cfg.LoadWait = 10 * time.Millisecond
	l := newTestLoader(repo, cfg)

	got := l.Lookup(context.Background(), "p-1")
	assert.True(t, got.Loading)
	assert.Nil(t, got.Product)

	close(repo.release)
	require.Eventually(t, func() bool {
		_, ok := l.cached("p-1")
		return ok
	}, time.Second, 5*time.Millisecond)

	got = l.Lookup(context.Background(), "p-1")
	assert.Equal(t, domain.ProductLookup{Product: shoe}, got)
	assert.Equal(t, int32(1), repo.calls.Load())
}

func TestLookup_FetchSurvivesRequestCancellation(t *testing.T) {
	repo := &fakeProducts{products: map[string]*domain.Product{"p-1": shoe}, release: make(chan struct{})}
	l := newTestLoader(repo, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := l.Lookup(ctx, "p-1")
	assert.True(t, got.Loading)

	close(repo.release)
	require.Eventually(t, func() bool {
		_, ok := l.cached("p-1")
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestLookup_ConcurrentLookupsShareOneFetch(t *testing.T) {
	repo := &fakeProducts{products: map[string]*domain.Product{"p-1": shoe}, release: make(chan struct{})}
	l := newTestLoader(repo, testConfig())

	var wg sync.WaitGroup
	results := make([]domain.ProductLookup, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = l.Lookup(context.Background(), "p-1")
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(repo.release)
	wg.Wait()

	assert.Equal(t, int32(1), repo.calls.Load())
	for _, r := range results {
		assert.Equal(t, shoe, r.Product)
	}
}

func TestLookup_ErrorReportsLoadingAndRetries(t *testing.T) {
	repo := &fakeProducts{products: map[string]*domain.Product{"p-1": shoe}, err: errors.New("backend down")}
	l := newTestLoader(repo, testConfig())

	got := l.Lookup(context.Background(), "p-1")
	assert.Equal(t, domain.ProductLookup{Loading: true}, got)

	repo.mu.Lock()
	repo.err = nil
	repo.mu.Unlock()

	got = l.Lookup(context.Background(), "p-1")
	assert.Equal(t, domain.ProductLookup{Product: shoe}, got)
	assert.Equal(t, int32(2), repo.calls.Load())
}

func TestLookup_ExpiredEntryRefetches(t *testing.T) {
	repo := &fakeProducts{products: map[string]*domain.Product{"p-1": shoe}}
	cfg := testConfig()
	cfg.CacheTTL = 30 * time.Millisecond
	l := newTestLoader(repo, cfg)

	l.Lookup(context.Background(), "p-1")
	l.Lookup(context.Background(), "p-1")
	assert.Equal(t, int32(1), repo.calls.Load())

	require.Eventually(t, func() bool {
		_, ok := l.cached("p-1")
		return !ok
	}, time.Second, 5*time.Millisecond)
	l.Lookup(context.Background(), "p-1")

	assert.Equal(t, int32(2), repo.calls.Load())
}

func TestLookup_CacheSizeEvictsLeastRecent(t *testing.T) {
	repo := &fakeProducts{products: map[string]*domain.Product{
		"p-1": shoe,
		"p-2": {ID: "p-2", ProductName: "Tote"},
		"p-3": {ID: "p-3", ProductName: "Kettle"},
	}}
	cfg := testConfig()
	cfg.CacheSize = 2
	l := newTestLoader(repo, cfg)

	for _, id := range []string{"p-1", "p-2", "p-3"} {
		l.Lookup(context.Background(), id)
	}

	_, ok := l.cached("p-1")
	assert.False(t, ok)
	_, ok = l.cached("p-3")
	assert.True(t, ok)
}
