package item

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vitebridge/internal/adapters/storage"
	domain "vitebridge/internal/domain/item"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new SQLiteStore over a pool or a request session.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

var _ Store = (*SQLiteStore)(nil)

// List returns items in insertion order.
// PRE: filter.Offset >= 0, filter.Limit >= 0
// POST: Returns at most Limit items starting at Offset; a zero Limit returns none
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description FROM items ORDER BY id LIMIT ? OFFSET ?`,
		filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("item list: %w", err)
	}
	defer rows.Close()

	items := []domain.Item{}
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.ID, &it.Title, &it.Description); err != nil {
			return nil, fmt.Errorf("item scan: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("item list: %w", err)
	}
	return items, nil
}

// GetByID retrieves an item.
// PRE: none
// POST: Returns the item or domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (domain.Item, error) {
	var it domain.Item
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description FROM items WHERE id = ?`, id).
		Scan(&it.ID, &it.Title, &it.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("item get: %w", err)
	}
	return it, nil
}

// Create inserts a row and returns it with the store-assigned id.
// PRE: in has been validated
// POST: Row is committed
func (s *SQLiteStore) Create(ctx context.Context, in domain.Input) (domain.Item, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO items (title, description) VALUES (?, ?)`, in.Title, in.Description)
	if err != nil {
		return domain.Item{}, fmt.Errorf("item create: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Item{}, fmt.Errorf("item create: %w", err)
	}
	return in.WithID(id), nil
}

// CreateBatch inserts all rows in one transaction.
// PRE: every input has been validated
// POST: Either every row is committed or none is
func (s *SQLiteStore) CreateBatch(ctx context.Context, ins []domain.Input) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("item batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO items (title, description) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("item batch: %w", err)
	}
	defer stmt.Close()

	for _, in := range ins {
		if _, err := stmt.ExecContext(ctx, in.Title, in.Description); err != nil {
			return fmt.Errorf("item batch insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("item batch commit: %w", err)
	}
	return nil
}

// Update replaces every scalar field of an existing row.
// PRE: in has been validated
// POST: Row is committed, or domain.ErrNotFound when id is absent
func (s *SQLiteStore) Update(ctx context.Context, id int64, in domain.Input) (domain.Item, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET title = ?, description = ? WHERE id = ?`, in.Title, in.Description, id)
	if err != nil {
		return domain.Item{}, fmt.Errorf("item update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Item{}, fmt.Errorf("item update: %w", err)
	}
	if n == 0 {
		return domain.Item{}, fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
	}
	return in.WithID(id), nil
}

// Delete removes a row.
// PRE: none
// POST: Row is gone, or domain.ErrNotFound when id was absent
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("item delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("item delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Count returns the number of rows.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("item count: %w", err)
	}
	return n, nil
}
