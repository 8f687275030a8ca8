package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, so a tab's id, its advisory scope and the
// field being checked show up on every log line without being passed around.
type LogFields struct {
	TabID     *string // Browser tab (websocket connection) id
	Scope     *string // Advisory scope, one per branch
	Module    *string // Page module, e.g. "specialty"
	Field     *string // Form field name
	SessionID *string // Chat session id
	Component string  // Component name (OTel semantic convention style, e.g., "advisor.insight.cache")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing
	result.TabID = pick(new.TabID, existing.TabID)
	result.Scope = pick(new.Scope, existing.Scope)
	result.Module = pick(new.Module, existing.Module)
	result.Field = pick(new.Field, existing.Field)
	result.SessionID = pick(new.SessionID, existing.SessionID)
	if new.Component != "" {
		result.Component = new.Component
	}
	return result
}

func pick(newer, older *string) *string {
	if newer != nil {
		return newer
	}
	return older
}

// attrs renders the set fields in a stable order.
func (f LogFields) attrs() []slog.Attr {
	out := make([]slog.Attr, 0, 6)
	for _, kv := range []struct {
		key string
		val *string
	}{
		{"tab_id", f.TabID},
		{"scope", f.Scope},
		{"module", f.Module},
		{"field", f.Field},
		{"session_id", f.SessionID},
	} {
		if kv.val != nil {
			out = append(out, slog.String(kv.key, *kv.val))
		}
	}
	if f.Component != "" {
		out = append(out, slog.String("component", f.Component))
	}
	return out
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{Scope: logger.Ptr(scope)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
