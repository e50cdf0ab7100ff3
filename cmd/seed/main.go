// Package main seeds the review page catalog with demo products. Products are
// written straight into the configured store backend, so the review page can
// be exercised without the rest of the storefront running.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/utafrali/storefront-reviews/internal/config"
	"github.com/utafrali/storefront-reviews/internal/domain"
	"github.com/utafrali/storefront-reviews/internal/repository"
	firestorerepo "github.com/utafrali/storefront-reviews/internal/repository/firestore"
	"github.com/utafrali/storefront-reviews/internal/repository/postgres"
	"github.com/utafrali/storefront-reviews/migrations"
	"github.com/utafrali/storefront-reviews/pkg/database"
	"github.com/utafrali/storefront-reviews/pkg/logger"
)

// --------------------------------------------------------------------------
// Seed data
// --------------------------------------------------------------------------

var demoProducts = []domain.Product{
	{
		ID:          "trail-runner-2",
		ProductName: "Trail Runner 2",
		ImageURL:    "https://picsum.photos/seed/trail-runner-2/640/480",
		Description: "Lightweight trail shoe with a grippy outsole and breathable mesh upper.",
	},
	{
		ID:          "canvas-tote",
		ProductName: "Canvas Tote",
		ImageURL:    "https://picsum.photos/seed/canvas-tote/640/480",
		Description: "Heavy cotton canvas tote with an inside zip pocket.",
	},
	{
		ID:          "pour-over-kettle",
		ProductName: "Pour-Over Kettle",
		ImageURL:    "https://picsum.photos/seed/pour-over-kettle/640/480",
		Description: "Gooseneck kettle for slow, even pours. Works on gas and induction.",
	},
	{
		ID:          "merino-beanie",
		ProductName: "Merino Beanie",
		ImageURL:    "https://picsum.photos/seed/merino-beanie/640/480",
		Description: "Soft ribbed beanie knitted from fine merino wool.",
	},
	{
		ID:          "desk-lamp-led",
		ProductName: "LED Desk Lamp",
		ImageURL:    "https://picsum.photos/seed/desk-lamp-led/640/480",
		Description: "Dimmable desk lamp with adjustable colour temperature and a USB-C port.",
	},
}

// --------------------------------------------------------------------------
// main
// --------------------------------------------------------------------------

func main() {
	file := flag.String("file", "", "JSON file with an array of products to seed instead of the demo set")
	flag.Parse()

	if err := run(*file); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(file string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(config.ServiceName+"-seed", cfg.LogLevel)

	products := demoProducts
	if file != "" {
		if products, err = loadProducts(file); err != nil {
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	writer, closeFn, err := openWriter(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeFn()

	n, err := seed(ctx, writer, products, log)
	if err != nil {
		return err
	}
	log.Info("seed complete", slog.Int("products", n), slog.String("store_backend", cfg.StoreBackend))
	return nil
}

// openWriter connects the configured store backend. The postgres schema is
// migrated first so a fresh database can be seeded directly.
func openWriter(ctx context.Context, cfg *config.Config, log *slog.Logger) (repository.ProductWriter, func(), error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.PostgresConfig(), log)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		return postgres.NewProductRepository(pool), pool.Close, nil
	case config.StoreFirestore:
		client, err := firestorerepo.NewClient(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("connect firestore: %w", err)
		}
		return firestorerepo.NewProductRepository(client), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func loadProducts(path string) ([]domain.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read products file: %w", err)
	}
	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("decode products file %s: %w", path, err)
	}
	return products, nil
}

// seed upserts every product and stops at the first failure.
func seed(ctx context.Context, w repository.ProductWriter, products []domain.Product, log *slog.Logger) (int, error) {
	for i := range products {
		p := &products[i]
		if p.ID == "" {
			return i, fmt.Errorf("product %d has no id", i)
		}
		if err := w.Upsert(ctx, p); err != nil {
			return i, err
		}
		log.Info("seeded product", slog.String("product_id", p.ID), slog.String("name", p.ProductName))
	}
	return len(products), nil
}
