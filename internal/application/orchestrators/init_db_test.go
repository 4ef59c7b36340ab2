package orchestrators

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"vitebridge/internal/adapters/storage"
	itemstore "vitebridge/internal/adapters/storage/item"
	salesstore "vitebridge/internal/adapters/storage/sales"
	"vitebridge/internal/domain/item"
	"vitebridge/internal/domain/sales"
)

func newInitDBDeps(t *testing.T) (InitDBDeps, *itemstore.SQLiteStore, *salesstore.SQLiteStore) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "init.db"), 4)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	items := itemstore.NewSQLiteStore(db)
	points := salesstore.NewSQLiteStore(db)
	deps := InitDBDeps{
		EnsureSchema: func(ctx context.Context) error { return storage.EnsureSchema(ctx, db) },
		ItemStore:    items,
		SalesStore:   points,
	}
	return deps, items, points
}

func TestExecuteInitDB_SeedsEmptyTables(t *testing.T) {
	deps, items, points := newInitDBDeps(t)
	ctx := context.Background()

	seeded, err := ExecuteInitDB(ctx, deps)
	if err != nil {
		t.Fatalf("ExecuteInitDB: %v", err)
	}
	if !seeded {
		t.Fatal("expected seeded on empty database")
	}

	n, _ := items.Count(ctx)
	if n != len(item.Samples()) {
		t.Errorf("items = %d, want %d", n, len(item.Samples()))
	}
	m, _ := points.Count(ctx)
	if m != len(sales.Samples()) {
		t.Errorf("sales = %d, want %d", m, len(sales.Samples()))
	}
}

func TestExecuteInitDB_SecondRunIsNoop(t *testing.T) {
	deps, items, _ := newInitDBDeps(t)
	ctx := context.Background()

	if _, err := ExecuteInitDB(ctx, deps); err != nil {
		t.Fatalf("first run: %v", err)
	}
	seeded, err := ExecuteInitDB(ctx, deps)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if seeded {
		t.Error("second run should not seed")
	}
	n, _ := items.Count(ctx)
	if n != len(item.Samples()) {
		t.Errorf("items = %d after two runs, want %d", n, len(item.Samples()))
	}
}

func TestExecuteInitDB_LeavesPopulatedItemsAlone(t *testing.T) {
	deps, items, points := newInitDBDeps(t)
	ctx := context.Background()
	if err := deps.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if _, err := items.Create(ctx, item.Input{Title: "mine", Description: "kept"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	seeded, err := ExecuteInitDB(ctx, deps)
	if err != nil {
		t.Fatalf("ExecuteInitDB: %v", err)
	}
	if !seeded {
		t.Error("expected seeded=true since sales table was empty")
	}
	n, _ := items.Count(ctx)
	if n != 1 {
		t.Errorf("items = %d, want 1", n)
	}
	m, _ := points.Count(ctx)
	if m != len(sales.Samples()) {
		t.Errorf("sales = %d, want %d", m, len(sales.Samples()))
	}
}

func TestExecuteInitDB_SchemaError(t *testing.T) {
	deps, _, _ := newInitDBDeps(t)
	boom := errors.New("boom")
	deps.EnsureSchema = func(context.Context) error { return boom }

	_, err := ExecuteInitDB(context.Background(), deps)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped schema error, got %v", err)
	}
}
