// Package advisory talks to the remote advisory service that computes field
// checks, branch health, page insights and chat answers.
package advisory

import (
	"context"

	"hims.app/advisor/internal/model"
)

type FieldValidator interface {
	ValidateField(ctx context.Context, req model.FieldValidateRequest) (*model.FieldValidation, error)
}

type ChatTurner interface {
	Chat(ctx context.Context, req model.ChatRequest) (*model.ChatReply, error)
}

type Service interface {
	FieldValidator
	ChatTurner
	FetchHealth(ctx context.Context, scope model.Scope, bust bool) (*model.HealthSnapshot, error)
	FetchInsights(ctx context.Context, scope model.Scope, module string) (*model.InsightSet, error)
}

type chatOverride struct {
	Service
	turner ChatTurner
}

// WithChat returns base with chat turns answered by turner.
func WithChat(base Service, turner ChatTurner) Service {
	return &chatOverride{Service: base, turner: turner}
}

func (c *chatOverride) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatReply, error) {
	return c.turner.Chat(ctx, req)
}
