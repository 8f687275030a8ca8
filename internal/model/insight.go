package model

import (
	"math"
	"time"
)

type Insight struct {
	ID          string  `json:"id"`
	Level       Level   `json:"level"`
	Message     string  `json:"message"`
	ActionHint  *string `json:"actionHint,omitempty"`
	EntityCount *int    `json:"entityCount,omitempty"`
}

type InsightSet struct {
	Module   string    `json:"module"`
	Insights []Insight `json:"insights"`
	// GeneratedAt is unix time in seconds, as sent by the advisory service.
	GeneratedAt float64 `json:"generatedAt"`
}

func (s *InsightSet) GeneratedTime() time.Time {
	sec, frac := math.Modf(s.GeneratedAt)
	return time.Unix(int64(sec), int64(frac*1e9))
}
