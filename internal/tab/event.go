package tab

// Server event types pushed to the browser tab.
const (
	EventFieldState   = "field.state"
	EventFieldApplied = "field.applied"
	EventHealth       = "health"
	EventInsights     = "insights"
	EventBadges       = "badges"
	EventChatMessage  = "chat.message"
	EventError        = "error"
)

type Event struct {
	Type    string `json:"type"`
	FieldID string `json:"fieldId,omitempty"`
	Module  string `json:"module,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Sink receives the tab's outbound events. Emit is called from timer and
// fetch goroutines while component locks are held, so it must not block.
type Sink interface {
	Emit(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }
