package item

import (
	"context"

	domain "vitebridge/internal/domain/item"
)

// Store persists Item rows.
type Store interface {
	List(ctx context.Context, filter ListFilter) ([]domain.Item, error)
	GetByID(ctx context.Context, id int64) (domain.Item, error)
	Create(ctx context.Context, in domain.Input) (domain.Item, error)
	CreateBatch(ctx context.Context, ins []domain.Input) error
	Update(ctx context.Context, id int64, in domain.Input) (domain.Item, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

// ListFilter carries offset pagination for List.
type ListFilter struct {
	Offset int
	Limit  int
}
