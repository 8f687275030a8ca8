package model

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	SourceTag *string   `json:"source,omitempty"`
	FollowUp  []string  `json:"followUp,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatRequest struct {
	Message     string       `json:"message"`
	Scope       Scope        `json:"branchId"`
	SessionID   *string      `json:"sessionId,omitempty"`
	PageContext *PageContext `json:"pageContext,omitempty"`
}

type ChatReply struct {
	Answer     string         `json:"answer"`
	SourceTag  string         `json:"source"`
	SessionID  string         `json:"sessionId"`
	FollowUp   []string       `json:"followUp,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	DurationMs int64          `json:"durationMs,omitempty"`
}
