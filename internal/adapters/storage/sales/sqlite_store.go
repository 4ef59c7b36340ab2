package sales

import (
	"context"
	"fmt"

	"vitebridge/internal/adapters/storage"
	domain "vitebridge/internal/domain/sales"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

var _ Store = (*SQLiteStore)(nil)

// List returns every data point in insertion order.
// PRE: none
// POST: Returns an empty, non-nil slice when the table is empty
func (s *SQLiteStore) List(ctx context.Context) ([]domain.DataPoint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, month, sales, revenue FROM sales_data ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sales list: %w", err)
	}
	defer rows.Close()

	points := []domain.DataPoint{}
	for rows.Next() {
		var p domain.DataPoint
		if err := rows.Scan(&p.ID, &p.Month, &p.Sales, &p.Revenue); err != nil {
			return nil, fmt.Errorf("sales scan: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// CreateBatch inserts all points in one transaction.
// PRE: every point has been validated
// POST: Either every row is committed or none is
func (s *SQLiteStore) CreateBatch(ctx context.Context, points []domain.DataPoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sales batch: %w", err)
	}
	defer tx.Rollback()

	for _, p := range points {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sales_data (month, sales, revenue) VALUES (?, ?, ?)`,
			p.Month, p.Sales, p.Revenue); err != nil {
			return fmt.Errorf("sales batch insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sales batch commit: %w", err)
	}
	return nil
}

// Count returns the number of rows.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales_data`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sales count: %w", err)
	}
	return n, nil
}
