package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"hims.app/advisor/common/logger"
)

// LocalBus is the in-process signal the relay republishes onto.
type LocalBus interface {
	Publish()
}

// Relay forwards data-changed announcements from other gateway replicas onto
// the local bus. Announcements published by this node are skipped because the
// publisher already signalled its own bus.
type Relay struct {
	client  *redis.Client
	channel string
	origin  string
	bus     LocalBus

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewRelay(client *redis.Client, channel, origin string, bus LocalBus) *Relay {
	return &Relay{
		client:    client,
		channel:   channel,
		origin:    origin,
		bus:       bus,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (r *Relay) Run(ctx context.Context) error {
	defer close(r.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "advisor.queue.relay"})

	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	slog.InfoContext(ctx, "relay started", "channel", r.channel, "origin", r.origin)
	return r.Consume(ctx, sub.Channel())
}

// Consume republishes messages until ctx ends, Stop is called or msgs closes.
func (r *Relay) Consume(ctx context.Context, msgs <-chan *redis.Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stopCh:
			slog.InfoContext(ctx, "relay stopping")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			r.handle(ctx, msg)
		}
	}
}

func (r *Relay) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

func (r *Relay) handle(ctx context.Context, msg *redis.Message) {
	env, err := ParseEnvelope(msg.Payload)
	if err != nil {
		slog.WarnContext(ctx, "dropping malformed data-changed message", "error", err, "channel", msg.Channel)
		return
	}
	if env.Origin == r.origin {
		return
	}

	slog.DebugContext(ctx, "relaying data-changed", "origin", env.Origin, "source", env.Source)
	r.bus.Publish()
}
