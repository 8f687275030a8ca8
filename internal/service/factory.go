package service

import (
	"context"
	"time"

	"hims.app/advisor/internal/advisory"
	"hims.app/advisor/internal/eventbus"
	"hims.app/advisor/internal/insight"
	"hims.app/advisor/internal/queue"
	"hims.app/advisor/internal/rules"
	"hims.app/advisor/internal/tab"
)

type ServicesConfig struct {
	Advisory       advisory.Service
	Rules          *rules.Evaluator
	Bus            *eventbus.Bus
	RemotePublish  queue.Publisher // nil when running a single replica
	FieldDebounce  time.Duration
	InsightOptions insight.Options
}

// Services is the composition root for everything shared by the tabs of one
// gateway process.
type Services struct {
	advisory      advisory.Service
	rules         *rules.Evaluator
	bus           *eventbus.Bus
	remotePublish queue.Publisher
	fieldDebounce time.Duration

	health   *insight.HealthCache
	insights *insight.InsightCache
	tabs     *tab.Registry
}

func NewServices(ctx context.Context, cfg ServicesConfig) *Services {
	if cfg.Rules == nil {
		cfg.Rules = rules.Default()
	}
	if cfg.Bus == nil {
		cfg.Bus = eventbus.New("data-changed")
	}
	return &Services{
		advisory:      cfg.Advisory,
		rules:         cfg.Rules,
		bus:           cfg.Bus,
		remotePublish: cfg.RemotePublish,
		fieldDebounce: cfg.FieldDebounce,
		health:        insight.NewHealthCache(ctx, cfg.Advisory, cfg.Bus, cfg.InsightOptions),
		insights:      insight.NewInsightCache(ctx, cfg.Advisory, cfg.Bus, cfg.InsightOptions),
		tabs:          tab.NewRegistry(),
	}
}

func (s *Services) Mutations() MutationService {
	return NewMutationService(s.bus, s.remotePublish)
}

func (s *Services) Bus() *eventbus.Bus {
	return s.bus
}

func (s *Services) Rules() *rules.Evaluator {
	return s.rules
}

func (s *Services) Health() *insight.HealthCache {
	return s.health
}

func (s *Services) Insights() *insight.InsightCache {
	return s.insights
}

func (s *Services) Tabs() *tab.Registry {
	return s.tabs
}

// OpenTab creates a tab wired to the shared caches and registers it.
func (s *Services) OpenTab(ctx context.Context, id string, sink tab.Sink) *tab.Tab {
	t := tab.New(ctx, id, tab.Deps{
		Rules:         s.rules,
		Fields:        s.advisory,
		Chat:          s.advisory,
		Health:        s.health,
		Insights:      s.insights,
		FieldDebounce: s.fieldDebounce,
	}, sink)
	s.tabs.Add(t)
	return t
}

// CloseTab closes the tab and forgets it.
func (s *Services) CloseTab(t *tab.Tab) {
	s.tabs.Remove(t.ID())
	t.Close()
}

// Close shuts every tab and both caches down.
func (s *Services) Close() {
	s.tabs.CloseAll()
	s.health.Close()
	s.insights.Close()
}
