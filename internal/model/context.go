package model

import "maps"

type Action string

const (
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionList   Action = "list"
	ActionView   Action = "view"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionEdit, ActionList, ActionView:
		return true
	}
	return false
}

// PageContext describes the page currently active in a tab.
type PageContext struct {
	Module       string         `json:"module"`
	Action       Action         `json:"action"`
	EntityID     *string        `json:"entityId,omitempty"`
	FormSnapshot map[string]any `json:"formData,omitempty"`
}

// Clone returns a copy whose form snapshot does not alias the receiver's.
func (c *PageContext) Clone() *PageContext {
	if c == nil {
		return nil
	}
	out := *c
	if c.EntityID != nil {
		id := *c.EntityID
		out.EntityID = &id
	}
	if c.FormSnapshot != nil {
		out.FormSnapshot = maps.Clone(c.FormSnapshot)
	}
	return &out
}

// Scope partitions cached advisory data, one per branch.
type Scope string

func (s Scope) String() string {
	return string(s)
}
