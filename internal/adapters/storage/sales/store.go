package sales

import (
	"context"

	domain "vitebridge/internal/domain/sales"
)

// Store persists sales data points.
type Store interface {
	List(ctx context.Context) ([]domain.DataPoint, error)
	CreateBatch(ctx context.Context, points []domain.DataPoint) error
	Count(ctx context.Context) (int, error)
}
