// Package tab binds the advisory components that belong to one browser tab.
package tab

import (
	"context"
	"errors"
	"sync"
	"time"

	"hims.app/advisor/common/logger"
	"hims.app/advisor/internal/advisory"
	"hims.app/advisor/internal/chat"
	"hims.app/advisor/internal/eventbus"
	"hims.app/advisor/internal/field"
	"hims.app/advisor/internal/insight"
	"hims.app/advisor/internal/model"
	"hims.app/advisor/internal/pagecontext"
	"hims.app/advisor/internal/tabstore"
)

var (
	ErrNoScope      = errors.New("no advisory scope selected")
	ErrUnknownField = errors.New("unknown field")
	ErrClosed       = errors.New("tab closed")
)

// Deps are the process-wide collaborators shared by all tabs.
type Deps struct {
	Rules         field.RuleEvaluator
	Fields        advisory.FieldValidator
	Chat          advisory.ChatTurner
	Health        *insight.HealthCache
	Insights      *insight.InsightCache
	FieldDebounce time.Duration
}

type FieldState struct {
	Value      string               `json:"value"`
	Warnings   []model.FieldWarning `json:"warnings"`
	Suggestion *model.Suggestion    `json:"suggestion,omitempty"`
	Validating bool                 `json:"validating"`
}

type Tab struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	deps   Deps
	sink   Sink

	contexts      *pagecontext.Store
	store         *tabstore.Memory
	healthUpdated *eventbus.Bus
	chat          *chat.Manager
	mirror        *insight.HealthMirror
	stopBadges    func()

	mu           sync.Mutex
	closed       bool
	scope        model.Scope
	releasePage  func()
	fields       map[string]*field.Pipeline
	stopHealth   func()
	insightWatch map[string]func()
}

func New(ctx context.Context, id string, deps Deps, sink Sink) *Tab {
	ctx = logger.WithLogFields(ctx, logger.LogFields{TabID: logger.Ptr(id)})
	ctx, cancel := context.WithCancel(ctx)

	t := &Tab{
		id:            id,
		ctx:           ctx,
		cancel:        cancel,
		deps:          deps,
		sink:          sink,
		contexts:      pagecontext.New(),
		store:         tabstore.NewMemory(),
		healthUpdated: eventbus.New("health-updated"),
		fields:        make(map[string]*field.Pipeline),
		insightWatch:  make(map[string]func()),
	}
	t.mirror = insight.NewHealthMirror(t.store, t.healthUpdated)
	t.chat = chat.NewManager(deps.Chat, t.contexts, t.store, chat.Options{
		OnMessage: func(m model.ChatMessage) {
			t.sink.Emit(Event{Type: EventChatMessage, Data: m})
		},
	})
	t.stopBadges = t.healthUpdated.Subscribe(t.emitBadges)
	return t
}

func (t *Tab) ID() string {
	return t.id
}

func (t *Tab) Scope() model.Scope {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scope
}

// SetScope points the tab at another branch. Health and watched insights are
// re-subscribed on the new scope and the chat starts over.
func (t *Tab) SetScope(scope model.Scope) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if scope == t.scope {
		return nil
	}
	t.scope = scope
	t.chat.SetScope(scope)

	if t.stopHealth != nil {
		t.stopHealth()
		t.stopHealth = nil
	}
	// Watched modules survive an unset scope and resubscribe on the next one.
	for module, stop := range t.insightWatch {
		if stop != nil {
			stop()
		}
		t.insightWatch[module] = nil
	}
	if scope == "" {
		return nil
	}

	t.stopHealth = t.deps.Health.Subscribe(scope, t.onHealth)
	for module := range t.insightWatch {
		t.insightWatch[module] = t.watchLocked(module)
	}
	return nil
}

// EnterPage makes pc the tab's active page context.
func (t *Tab) EnterPage(pc *model.PageContext) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if t.releasePage != nil {
		t.releasePage()
	}
	t.releasePage = t.contexts.Register(pc)
	return nil
}

func (t *Tab) LeavePage() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.releasePage != nil {
		t.releasePage()
		t.releasePage = nil
	}
}

func (t *Tab) PageContext() *model.PageContext {
	return t.contexts.Get()
}

// OpenField starts a pipeline for one form field. Reopening an id replaces
// the previous pipeline.
func (t *Tab) OpenField(fieldID, module, name string, fieldCtx map[string]any, value string) (FieldState, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return FieldState{}, ErrClosed
	}
	prev := t.fields[fieldID]
	p := field.New(t.ctx, t.deps.Rules, t.deps.Fields, field.Options{
		Module:   module,
		Field:    name,
		Context:  fieldCtx,
		Debounce: t.deps.FieldDebounce,
		OnChange: func(s field.State) {
			t.sink.Emit(Event{Type: EventFieldState, FieldID: fieldID, Data: toFieldState(s)})
		},
	})
	t.fields[fieldID] = p
	t.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	if value == "" {
		return toFieldState(p.State()), nil
	}
	return toFieldState(p.SetValue(value)), nil
}

// ChangeField applies a new value, and new sibling values when fieldCtx is
// not nil.
func (t *Tab) ChangeField(fieldID, value string, fieldCtx map[string]any) (FieldState, error) {
	p, err := t.field(fieldID)
	if err != nil {
		return FieldState{}, err
	}
	if fieldCtx != nil {
		p.SetContext(fieldCtx)
	}
	return toFieldState(p.SetValue(value)), nil
}

func (t *Tab) ApplySuggestion(fieldID string) (map[string]any, error) {
	p, err := t.field(fieldID)
	if err != nil {
		return nil, err
	}
	value := p.ApplySuggestion()
	if value != nil {
		t.sink.Emit(Event{Type: EventFieldApplied, FieldID: fieldID, Data: value})
	}
	return value, nil
}

func (t *Tab) DismissSuggestion(fieldID string) error {
	p, err := t.field(fieldID)
	if err != nil {
		return err
	}
	p.DismissSuggestion()
	return nil
}

func (t *Tab) CloseField(fieldID string) {
	t.mu.Lock()
	p := t.fields[fieldID]
	delete(t.fields, fieldID)
	t.mu.Unlock()

	if p != nil {
		p.Close()
	}
}

// WatchInsights subscribes the tab to page insights for module on its scope.
func (t *Tab) WatchInsights(module string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if t.scope == "" {
		return ErrNoScope
	}
	if _, ok := t.insightWatch[module]; ok {
		return nil
	}
	t.insightWatch[module] = t.watchLocked(module)
	return nil
}

func (t *Tab) UnwatchInsights(module string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if stop := t.insightWatch[module]; stop != nil {
		stop()
	}
	delete(t.insightWatch, module)
}

// RefreshHealth forces a health fetch for the current scope. Subscribers,
// this tab included, receive the result.
func (t *Tab) RefreshHealth() error {
	t.mu.Lock()
	scope, closed := t.scope, t.closed
	t.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if scope == "" {
		return ErrNoScope
	}
	go t.deps.Health.Refresh(t.ctx, scope, true)
	return nil
}

// SendChat blocks until the assistant answered or the turn was dropped.
func (t *Tab) SendChat(ctx context.Context, text string) (model.ChatMessage, bool) {
	return t.chat.Send(ctx, text)
}

func (t *Tab) ChatMessages() []model.ChatMessage {
	return t.chat.Messages()
}

// Close tears the tab down: field checks are aborted, subscriptions dropped
// and pending chat replies discarded.
func (t *Tab) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	fields := t.fields
	t.fields = make(map[string]*field.Pipeline)
	if t.stopHealth != nil {
		t.stopHealth()
		t.stopHealth = nil
	}
	for _, stop := range t.insightWatch {
		if stop != nil {
			stop()
		}
	}
	clear(t.insightWatch)
	if t.releasePage != nil {
		t.releasePage()
		t.releasePage = nil
	}
	t.mu.Unlock()

	for _, p := range fields {
		p.Close()
	}
	t.chat.Close()
	t.stopBadges()
	t.cancel()
}

func (t *Tab) field(fieldID string) (*field.Pipeline, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}
	p, ok := t.fields[fieldID]
	if !ok {
		return nil, ErrUnknownField
	}
	return p, nil
}

func (t *Tab) watchLocked(module string) func() {
	key := insight.InsightKey{Scope: t.scope, Module: module}
	return t.deps.Insights.Subscribe(key, func(set *model.InsightSet) {
		t.sink.Emit(Event{Type: EventInsights, Module: module, Data: set})
	})
}

func (t *Tab) onHealth(h *model.HealthSnapshot) {
	t.sink.Emit(Event{Type: EventHealth, Data: h})
	t.mirror.Deliver(h)
}

// emitBadges is the navigation badge region. It only reads the mirrored
// snapshot.
func (t *Tab) emitBadges() {
	h, ok := insight.ReadMirroredHealth(t.store)
	if !ok {
		return
	}
	t.sink.Emit(Event{Type: EventBadges, Data: h.BadgeCounts()})
}

func toFieldState(s field.State) FieldState {
	warnings := s.Warnings
	if warnings == nil {
		warnings = []model.FieldWarning{}
	}
	return FieldState{
		Value:      s.Value,
		Warnings:   warnings,
		Suggestion: s.Suggestion,
		Validating: s.Validating,
	}
}
