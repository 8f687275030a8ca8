package model

type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

type FieldWarning struct {
	Level          Level   `json:"level"`
	Message        string  `json:"message"`
	Field          *string `json:"field,omitempty"`
	SuggestedValue any     `json:"suggestedValue,omitempty"`
}

type Suggestion struct {
	Value      map[string]any `json:"value"`
	Reasoning  string         `json:"reasoning"`
	Confidence float64        `json:"confidence"`
}

type FieldValidateRequest struct {
	Module  string         `json:"module"`
	Field   string         `json:"field"`
	Value   string         `json:"value"`
	Context map[string]any `json:"context,omitempty"`
}

type FieldValidation struct {
	Valid      bool           `json:"valid"`
	Warnings   []FieldWarning `json:"warnings"`
	Suggestion *Suggestion    `json:"suggestion,omitempty"`
}

// MergeWarnings appends the extra warnings whose message is not already present
// and drops duplicate messages. Order of first appearance is kept.
func MergeWarnings(primary, extra []FieldWarning) []FieldWarning {
	seen := make(map[string]struct{}, len(primary)+len(extra))
	out := make([]FieldWarning, 0, len(primary)+len(extra))
	for _, list := range [][]FieldWarning{primary, extra} {
		for _, w := range list {
			if _, ok := seen[w.Message]; ok {
				continue
			}
			seen[w.Message] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}
