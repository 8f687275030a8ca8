package insight

import (
	"context"

	"hims.app/advisor/internal/model"
)

type InsightKey struct {
	Scope  model.Scope
	Module string
}

func (k InsightKey) String() string {
	return string(k.Scope) + "/" + k.Module
}

type InsightFetcher interface {
	FetchInsights(ctx context.Context, scope model.Scope, module string) (*model.InsightSet, error)
}

type InsightCache = Cache[InsightKey, *model.InsightSet]

func NewInsightCache(ctx context.Context, svc InsightFetcher, signal Signal, opts Options) *InsightCache {
	return New[InsightKey, *model.InsightSet](ctx, "page_insights",
		func(ctx context.Context, k InsightKey, _ bool) (*model.InsightSet, error) {
			return svc.FetchInsights(ctx, k.Scope, k.Module)
		},
		InsightKey.String,
		signal, opts)
}
