package insight

import (
	"context"

	"hims.app/advisor/internal/model"
)

type HealthFetcher interface {
	FetchHealth(ctx context.Context, scope model.Scope, bust bool) (*model.HealthSnapshot, error)
}

type HealthCache = Cache[model.Scope, *model.HealthSnapshot]

// NewHealthCache caches branch health per scope. Forced refreshes ask the
// advisory service to bust its own cache.
func NewHealthCache(ctx context.Context, svc HealthFetcher, signal Signal, opts Options) *HealthCache {
	return New[model.Scope, *model.HealthSnapshot](ctx, "health",
		func(ctx context.Context, scope model.Scope, force bool) (*model.HealthSnapshot, error) {
			return svc.FetchHealth(ctx, scope, force)
		},
		model.Scope.String,
		signal, opts)
}
