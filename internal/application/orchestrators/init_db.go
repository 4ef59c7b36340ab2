package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"vitebridge/internal/domain/item"
	"vitebridge/internal/domain/sales"
)

// SchemaEnsurer creates the tables if they are missing.
type SchemaEnsurer func(ctx context.Context) error

// ItemStoreForSeed defines the store interface needed by InitDB.
type ItemStoreForSeed interface {
	Count(ctx context.Context) (int, error)
	CreateBatch(ctx context.Context, ins []item.Input) error
}

// SalesStoreForSeed defines the store interface needed by InitDB.
type SalesStoreForSeed interface {
	Count(ctx context.Context) (int, error)
	CreateBatch(ctx context.Context, points []sales.DataPoint) error
}

// InitDBDeps holds dependencies for InitDB.
type InitDBDeps struct {
	EnsureSchema SchemaEnsurer
	ItemStore    ItemStoreForSeed
	SalesStore   SalesStoreForSeed
}

// ExecuteInitDB creates the schema and seeds each empty table with sample rows.
// PRE: all deps are non-nil
// POST: seeded reports whether any table received sample rows; tables that
// already held rows are left untouched
func ExecuteInitDB(ctx context.Context, deps InitDBDeps) (seeded bool, err error) {
	if err := deps.EnsureSchema(ctx); err != nil {
		return false, fmt.Errorf("ensure schema: %w", err)
	}

	itemCount, err := deps.ItemStore.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count items: %w", err)
	}
	if itemCount == 0 {
		samples := item.Samples()
		if err := deps.ItemStore.CreateBatch(ctx, samples); err != nil {
			return false, fmt.Errorf("seed items: %w", err)
		}
		slog.Info("seed_event", "event", "items_seeded", "count", len(samples))
		seeded = true
	}

	salesCount, err := deps.SalesStore.Count(ctx)
	if err != nil {
		return seeded, fmt.Errorf("count sales: %w", err)
	}
	if salesCount == 0 {
		samples := sales.Samples()
		if err := deps.SalesStore.CreateBatch(ctx, samples); err != nil {
			return seeded, fmt.Errorf("seed sales: %w", err)
		}
		slog.Info("seed_event", "event", "sales_seeded", "count", len(samples))
		seeded = true
	}

	if !seeded {
		slog.Debug("seed_event", "event", "seed_skipped", "items", itemCount, "sales", salesCount)
	}
	return seeded, nil
}
