package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront-reviews/internal/domain"
	"github.com/utafrali/storefront-reviews/pkg/logger"
)

type recordingWriter struct {
	ids    []string
	failOn string
}

func (w *recordingWriter) Upsert(_ context.Context, p *domain.Product) error {
	if p.ID == w.failOn {
		return errors.New("write failed")
	}
	w.ids = append(w.ids, p.ID)
	return nil
}

func TestSeed_WritesEveryProduct(t *testing.T) {
	w := &recordingWriter{}

	n, err := seed(context.Background(), w, demoProducts, logger.NewWithWriter("test", "error", io.Discard))

	require.NoError(t, err)
	assert.Equal(t, len(demoProducts), n)
	assert.Len(t, w.ids, len(demoProducts))
	assert.Equal(t, demoProducts[0].ID, w.ids[0])
}

func TestSeed_StopsAtFirstFailure(t *testing.T) {
	w := &recordingWriter{failOn: demoProducts[2].ID}

	n, err := seed(context.Background(), w, demoProducts, logger.NewWithWriter("test", "error", io.Discard))

	require.Error(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, w.ids, 2)
}

func TestSeed_RejectsMissingID(t *testing.T) {
	w := &recordingWriter{}

	_, err := seed(context.Background(), w, []domain.Product{{ProductName: "nameless"}}, logger.NewWithWriter("test", "error", io.Discard))

	assert.ErrorContains(t, err, "has no id")
	assert.Empty(t, w.ids)
}

func TestDemoProducts_HaveUniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for _, p := range demoProducts {
		assert.NotEmpty(t, p.ProductName)
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
	}
}

func TestLoadProducts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"p-1","productName":"Mug","imageUrl":"https://img/m.png","description":"Stoneware"}]`), 0o600))

	products, err := loadProducts(path)

	require.NoError(t, err)
	assert.Equal(t, []domain.Product{{ID: "p-1", ProductName: "Mug", ImageURL: "https://img/m.png", Description: "Stoneware"}}, products)
}

func TestLoadProducts_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	_, err := loadProducts(path)
	assert.ErrorContains(t, err, "decode products file")

	_, err = loadProducts(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "read products file")
}
