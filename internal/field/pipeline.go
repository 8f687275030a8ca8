// Package field runs the two-tier advisory check for one form field: local
// rules on every change, then one debounced remote check for the latest value.
package field

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"hims.app/advisor/common/logger"
	"hims.app/advisor/internal/advisory"
	"hims.app/advisor/internal/model"
)

const DefaultDebounce = 400 * time.Millisecond

type RuleEvaluator interface {
	Evaluate(module, field, value string, ctx map[string]any) []model.FieldWarning
}

type Options struct {
	Module   string
	Field    string
	Context  map[string]any
	Debounce time.Duration
	// OnChange receives every state change in order. It runs with the
	// pipeline locked and must not call back into the pipeline.
	OnChange func(State)
}

type State struct {
	Value      string
	Warnings   []model.FieldWarning
	Suggestion *model.Suggestion // nil when none is offered or it was applied/dismissed
	Validating bool
}

type Pipeline struct {
	ctx    context.Context
	rules  RuleEvaluator
	remote advisory.FieldValidator
	opts   Options

	mu         sync.Mutex
	value      string
	fieldCtx   map[string]any
	local      []model.FieldWarning
	remoteWarn []model.FieldWarning
	suggestion *model.Suggestion
	dismissed  bool
	validating bool
	gen        uint64
	timer      *time.Timer
	cancel     context.CancelFunc
	closed     bool
	inflight   sync.WaitGroup
}

func New(ctx context.Context, rules RuleEvaluator, remote advisory.FieldValidator, opts Options) *Pipeline {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Module:    logger.Ptr(opts.Module),
		Field:     logger.Ptr(opts.Field),
		Component: "advisor.field.pipeline",
	})
	return &Pipeline{
		ctx:      ctx,
		rules:    rules,
		remote:   remote,
		opts:     opts,
		fieldCtx: maps.Clone(opts.Context),
	}
}

// SetValue re-runs the local rules for v and schedules a remote check. The
// returned state already holds the local warnings.
func (p *Pipeline) SetValue(v string) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return p.stateLocked()
	}
	p.value = v
	return p.changedLocked()
}

// SetContext replaces the sibling form values the rules look at.
func (p *Pipeline) SetContext(fieldCtx map[string]any) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return p.stateLocked()
	}
	p.fieldCtx = maps.Clone(fieldCtx)
	return p.changedLocked()
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

// ApplySuggestion retires the active suggestion and returns its value for the
// caller to merge into the form. It returns nil when no suggestion is active.
func (p *Pipeline) ApplySuggestion() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.suggestion == nil || p.dismissed {
		return nil
	}
	p.dismissed = true
	p.notifyLocked()
	return maps.Clone(p.suggestion.Value)
}

func (p *Pipeline) DismissSuggestion() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.dismissed {
		return
	}
	p.dismissed = true
	if p.suggestion != nil {
		p.notifyLocked()
	}
}

// Close stops the debounce timer, aborts the in-flight check and waits for it
// to return. Later calls on the pipeline have no effect.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.gen++
	p.stopLocked()
	p.mu.Unlock()

	p.inflight.Wait()
}

func (p *Pipeline) changedLocked() State {
	p.gen++
	p.stopLocked()

	p.local = p.rules.Evaluate(p.opts.Module, p.opts.Field, p.value, p.fieldCtx)
	p.remoteWarn = nil
	p.suggestion = nil
	p.dismissed = false
	p.validating = false

	if p.value != "" {
		gen := p.gen
		p.timer = time.AfterFunc(p.opts.Debounce, func() { p.check(gen) })
	}

	p.notifyLocked()
	return p.stateLocked()
}

func (p *Pipeline) stopLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// check runs on the debounce timer's goroutine.
func (p *Pipeline) check(gen uint64) {
	p.mu.Lock()
	if p.closed || gen != p.gen {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(p.ctx)
	p.cancel = cancel
	p.timer = nil
	p.validating = true
	p.inflight.Add(1)
	req := model.FieldValidateRequest{
		Module:  p.opts.Module,
		Field:   p.opts.Field,
		Value:   p.value,
		Context: maps.Clone(p.fieldCtx),
	}
	p.notifyLocked()
	p.mu.Unlock()

	defer p.inflight.Done()
	defer cancel()

	res, err := p.remote.ValidateField(ctx, req)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || gen != p.gen {
		return
	}
	p.cancel = nil
	p.validating = false

	switch {
	case err != nil && advisory.IsCanceled(err):
	case err != nil:
		slog.WarnContext(ctx, "remote field check failed", "error", err)
		p.remoteWarn = nil
		p.suggestion = nil
	case res != nil:
		p.remoteWarn = res.Warnings
		p.suggestion = res.Suggestion
		p.dismissed = false
	}
	p.notifyLocked()
}

func (p *Pipeline) stateLocked() State {
	s := State{
		Value:      p.value,
		Warnings:   model.MergeWarnings(p.local, p.remoteWarn),
		Validating: p.validating,
	}
	if p.suggestion != nil && !p.dismissed {
		sug := *p.suggestion
		sug.Value = maps.Clone(p.suggestion.Value)
		s.Suggestion = &sug
	}
	return s
}

func (p *Pipeline) notifyLocked() {
	if p.opts.OnChange != nil {
		p.opts.OnChange(p.stateLocked())
	}
}
