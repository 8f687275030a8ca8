// Package chat keeps one tab's conversation with the advisory assistant.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hims.app/advisor/common/id"
	"hims.app/advisor/common/logger"
	"hims.app/advisor/internal/advisory"
	"hims.app/advisor/internal/model"
	"hims.app/advisor/internal/tabstore"
)

const (
	FallbackAnswer = `Sorry, I couldn't process that. Try a simpler question like "How many beds do we have?"`
	FallbackSource = "keyword_match"
)

type ContextSource interface {
	Get() *model.PageContext
}

type Options struct {
	// OnMessage is called for every appended message, in log order, with the
	// manager locked. It must not call back into the manager.
	OnMessage func(model.ChatMessage)
}

// Manager sends chat turns one at a time. Concurrent callers are not ordered;
// callers that need arrival order submit from a single goroutine. A turn still
// in flight when the scope changes is dropped when it returns.
type Manager struct {
	turner   advisory.ChatTurner
	contexts ContextSource
	store    tabstore.Store
	opts     Options

	turn sync.Mutex

	mu       sync.Mutex
	scope    model.Scope
	epoch    uint64
	closed   bool
	messages []model.ChatMessage
}

func NewManager(turner advisory.ChatTurner, contexts ContextSource, store tabstore.Store, opts Options) *Manager {
	return &Manager{
		turner:   turner,
		contexts: contexts,
		store:    store,
		opts:     opts,
	}
}

// Send appends text as a user message, asks the assistant and appends its
// reply, or the fallback answer when the turn fails. It returns the assistant
// message, or false when nothing was sent or the reply was dropped.
func (m *Manager) Send(ctx context.Context, text string) (model.ChatMessage, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ChatMessage{}, false
	}

	m.turn.Lock()
	defer m.turn.Unlock()

	m.mu.Lock()
	if m.closed || m.scope == "" {
		m.mu.Unlock()
		return model.ChatMessage{}, false
	}
	scope, epoch := m.scope, m.epoch
	m.appendLocked(newMessage(model.RoleUser, text))
	sessionID := m.sessionIDLocked()
	m.mu.Unlock()

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Scope:     logger.Ptr(scope.String()),
		SessionID: logger.Ptr(sessionID),
		Component: "advisor.chat.manager",
	})

	reply, err := m.turner.Chat(ctx, model.ChatRequest{
		Message:     text,
		Scope:       scope,
		SessionID:   &sessionID,
		PageContext: m.contexts.Get(),
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.epoch != epoch {
		slog.DebugContext(ctx, "dropping chat reply for previous scope")
		return model.ChatMessage{}, false
	}

	var msg model.ChatMessage
	if err != nil || reply == nil {
		slog.WarnContext(ctx, "chat turn failed", "error", err, "question", logger.Truncate(text, 80))
		msg = newMessage(model.RoleAssistant, FallbackAnswer)
		msg.SourceTag = logger.Ptr(FallbackSource)
	} else {
		if reply.SessionID != "" && reply.SessionID != sessionID {
			m.store.Set(tabstore.KeySessionID, reply.SessionID)
		}
		msg = newMessage(model.RoleAssistant, reply.Answer)
		if reply.SourceTag != "" {
			msg.SourceTag = logger.Ptr(reply.SourceTag)
		}
		msg.FollowUp = reply.FollowUp
	}
	m.appendLocked(msg)
	return msg, true
}

// SetScope switches the conversation to scope. A change clears the log and
// the session id; the next Send starts a new session.
func (m *Manager) SetScope(scope model.Scope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if scope == m.scope {
		return
	}
	m.scope = scope
	m.epoch++
	m.messages = nil
	m.store.Delete(tabstore.KeySessionID)
}

func (m *Manager) Scope() model.Scope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scope
}

func (m *Manager) Messages() []model.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ChatMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

func (m *Manager) SessionID() (string, bool) {
	return m.store.Get(tabstore.KeySessionID)
}

// Close drops any reply still in flight. Later sends are no-ops.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.epoch++
}

func (m *Manager) sessionIDLocked() string {
	if sid, ok := m.store.Get(tabstore.KeySessionID); ok && sid != "" {
		return sid
	}
	sid := uuid.NewString()
	m.store.Set(tabstore.KeySessionID, sid)
	return sid
}

func (m *Manager) appendLocked(msg model.ChatMessage) {
	m.messages = append(m.messages, msg)
	if m.opts.OnMessage != nil {
		m.opts.OnMessage(msg)
	}
}

func newMessage(role model.Role, content string) model.ChatMessage {
	return model.ChatMessage{
		ID:        id.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}
