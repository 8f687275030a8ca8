// Package rules holds the local, synchronous field checks that run before any
// remote advisory call. Evaluation never performs I/O.
package rules

import (
	"strings"

	"hims.app/advisor/internal/model"
)

// Check inspects one field value and returns the warnings it produces.
type Check func(value string, ctx map[string]any) []model.FieldWarning

// Rule binds a check to a module/field pair. An empty Module matches any module.
type Rule struct {
	Module string
	Field  string
	Check  Check
}

type Evaluator struct {
	rules []Rule
}

// New returns an evaluator over the given rules, evaluated in order.
func New(rules ...Rule) *Evaluator {
	return &Evaluator{rules: rules}
}

// Default returns the evaluator with the built-in rule table.
func Default() *Evaluator {
	return New(defaultRules()...)
}

func (e *Evaluator) Evaluate(module, field, value string, ctx map[string]any) []model.FieldWarning {
	var out []model.FieldWarning
	for _, r := range e.rules {
		if r.Module != "" && r.Module != module {
			continue
		}
		if r.Field != field {
			continue
		}
		out = append(out, r.Check(value, ctx)...)
	}
	for i := range out {
		if out[i].Field == nil {
			f := field
			out[i].Field = &f
		}
	}
	return out
}

func warning(level model.Level, message string) []model.FieldWarning {
	return []model.FieldWarning{{Level: level, Message: message}}
}

// nonEmpty skips the check entirely for empty input.
func nonEmpty(c Check) Check {
	return func(value string, ctx map[string]any) []model.FieldWarning {
		if value == "" {
			return nil
		}
		return c(value, ctx)
	}
}

func upperTrim(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
