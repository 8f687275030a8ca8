package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Publisher interface {
	Publish(ctx context.Context, source string) error
	Close() error
}

type redisPublisher struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *slog.Logger
}

func NewRedisPublisher(client *redis.Client, channel, origin string, logger *slog.Logger) Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisPublisher{
		client:  client,
		channel: channel,
		origin:  origin,
		logger:  logger,
	}
}

func (p *redisPublisher) Publish(ctx context.Context, source string) error {
	payload, err := Envelope{Origin: p.origin, Source: source, At: time.Now().UTC()}.Encode()
	if err != nil {
		return err
	}

	receivers, err := p.client.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("publish data-changed: %w", err)
	}

	p.logger.DebugContext(ctx, "published data-changed", "channel", p.channel, "source", source, "receivers", receivers)
	return nil
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}
