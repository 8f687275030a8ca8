package dto

import "hims.app/advisor/internal/model"

// Client message types accepted on the tab websocket.
const (
	MsgScopeSet        = "scope.set"
	MsgPageEnter       = "page.enter"
	MsgPageLeave       = "page.leave"
	MsgFieldOpen       = "field.open"
	MsgFieldChange     = "field.change"
	MsgFieldApply      = "field.apply"
	MsgFieldDismiss    = "field.dismiss"
	MsgFieldClose      = "field.close"
	MsgInsightsWatch   = "insights.watch"
	MsgInsightsUnwatch = "insights.unwatch"
	MsgHealthRefresh   = "health.refresh"
	MsgChatSend        = "chat.send"
)

type ClientMessage struct {
	Type    string             `json:"type"`
	Scope   string             `json:"scope,omitempty"`
	Page    *model.PageContext `json:"page,omitempty"`
	FieldID string             `json:"fieldId,omitempty"`
	Module  string             `json:"module,omitempty"`
	Field   string             `json:"field,omitempty"`
	Value   string             `json:"value,omitempty"`
	Context map[string]any     `json:"context,omitempty"`
	Text    string             `json:"text,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Request string `json:"request,omitempty"`
}
