// Command seed fills the review store with deterministic sample reviews for
// local development. Product ids are not checked against the product service.
//
// Run: go run ./cmd/seed -count 500 -products 50
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/einarr2o12/review-service/internal/config"
	"github.com/einarr2o12/review-service/internal/domain"
	"github.com/einarr2o12/review-service/internal/repository/postgres"
	"github.com/einarr2o12/review-service/migrations"
	"github.com/einarr2o12/review-service/pkg/database"
	"github.com/einarr2o12/review-service/pkg/logger"
)

var comments = []string{
	"Exactly as described.",
	"Arrived quickly, works well.",
	"Good value for the price.",
	"Quality could be better.",
	"Stopped working after a week.",
	"Would buy again.",
	"",
}

var channels = []string{"web", "ios", "android"}

func main() {
	count := flag.Int("count", 200, "number of reviews to insert")
	products := flag.Int64("products", 20, "reviews are spread over product ids 1..n")
	seed := flag.Uint64("seed", 42, "random seed; the same seed yields the same reviews")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("review-seed", cfg.LogLevel)

	if err := run(context.Background(), cfg, log, *count, *products, *seed); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, count int, products int64, seed uint64) error {
	if count < 1 || products < 1 {
		return fmt.Errorf("count and products must be positive")
	}

	pgCfg := database.DefaultPostgresConfig(cfg.DatabaseURL)
	pool, err := database.NewPostgresPool(ctx, &pgCfg, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	repo := postgres.NewReviewRepository(pool)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) // #nosec G404 -- sample data
	start := time.Now()

	for i := range count {
		in, err := sampleReview(rng, products)
		if err != nil {
			return err
		}
		if _, err := repo.Create(ctx, in); err != nil {
			return fmt.Errorf("insert review %d: %w", i+1, err)
		}
		if (i+1)%100 == 0 {
			log.Info("seeding reviews", slog.Int("inserted", i+1), slog.Int("total", count))
		}
	}

	log.Info("seed complete",
		slog.Int("reviews", count),
		slog.Int64("products", products),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func sampleReview(rng *rand.Rand, products int64) (*domain.CreateReviewInput, error) {
	comment := comments[rng.IntN(len(comments))]
	metadata, err := json.Marshal(map[string]any{
		"verified_purchase": rng.IntN(4) != 0,
		"channel":           channels[rng.IntN(len(channels))],
	})
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return &domain.CreateReviewInput{
		ProductID:      rng.Int64N(products) + 1,
		Rating:         rng.IntN(5) + 1,
		Comment:        &comment,
		ReviewMetadata: metadata,
	}, nil
}
