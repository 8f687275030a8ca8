package service

import (
	"context"
	"fmt"
	"log/slog"

	"hims.app/advisor/internal/queue"
)

type Publisher interface {
	Publish()
}

// MutationService announces that domain data changed so cached advisory
// snapshots get refreshed.
type MutationService interface {
	NotifyChanged(ctx context.Context, source string) error
}

type mutationService struct {
	bus    Publisher
	remote queue.Publisher
}

// NewMutationService signals bus and, when remote is not nil, the other
// gateway replicas.
func NewMutationService(bus Publisher, remote queue.Publisher) MutationService {
	return &mutationService{bus: bus, remote: remote}
}

func (s *mutationService) NotifyChanged(ctx context.Context, source string) error {
	s.bus.Publish()
	slog.DebugContext(ctx, "data-changed published locally", "source", source)

	if s.remote == nil {
		return nil
	}
	if err := s.remote.Publish(ctx, source); err != nil {
		slog.WarnContext(ctx, "failed to relay data-changed to other replicas", "error", err, "source", source)
		return fmt.Errorf("relaying data-changed: %w", err)
	}
	return nil
}
