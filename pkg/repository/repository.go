package repository

import (
	"context"

	"github.com/blackbridgeaiagency-star/flywheel/pkg/db/option"
)

// Repository is a typed store over one GORM model. The generic surface
// covers keyed reads, filtered lists, and inserts; writes that carry domain
// rules (status transitions, guarded flag flips) stay on the owning repos.
type Repository[T any] interface {
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
}
