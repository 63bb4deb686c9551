package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/dlclark/regexp2"

	"github.com/michael-freling/claude-hooks-engine/internal/ruleset"
)

// ConfigSource supplies the merged configuration for each dispatch.
type ConfigSource interface {
	Load() *ruleset.Config
}

// Engine dispatches events to rules.
type Engine struct {
	configs   ConfigSource
	evaluator *Evaluator
	executor  *Executor
	logger    *slog.Logger
}

// NewEngine creates an engine.
func NewEngine(configs ConfigSource, evaluator *Evaluator, executor *Executor, logger *slog.Logger) *Engine {
	return &Engine{
		configs:   configs,
		evaluator: evaluator,
		executor:  executor,
		logger:    logger,
	}
}

// Dispatch runs the rules triggered by event in priority order. The first
// action to produce a response ends the dispatch. Any internal failure,
// including a panic, results in Continue.
func (e *Engine) Dispatch(ctx context.Context, event *Event) (response *Response) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("hook dispatch failed", "panic", r, "stack", string(debug.Stack()))
			response = Continue()
		}
	}()

	if event == nil {
		return Continue()
	}

	cfg := e.configs.Load()
	for _, rule := range e.MatchingRules(cfg, event) {
		if !e.evaluator.EvaluateDefinition(ctx, rule.Conditions, event, cfg) {
			e.logger.Debug("rule conditions not met", "rule", rule.ID)
			continue
		}

		for _, def := range rule.Actions {
			if response := e.executor.ExecuteDefinition(ctx, def, event, cfg); response != nil {
				response.RuleID = rule.ID
				e.logger.Debug("rule decided", "rule", rule.ID, "status", response.Status, "decision", response.Decision)
				return response
			}
		}
	}

	return Continue()
}

// MatchingRules returns the rules whose trigger matches event, in priority
// order. Rules with a malformed matcher are skipped.
func (e *Engine) MatchingRules(cfg *ruleset.Config, event *Event) []*ruleset.Rule {
	var matched []*ruleset.Rule
	for _, rule := range cfg.Rules {
		if rule.Trigger.Event != event.Kind {
			continue
		}

		ok, err := matchesTool(rule.Trigger.Matcher, event.ToolName)
		if err != nil {
			e.logger.Warn("rule skipped", "rule", rule.ID, "error", err)
			continue
		}
		if ok {
			matched = append(matched, rule)
		}
	}
	return matched
}

// RuleTrace is the outcome of one triggered rule in Explain.
type RuleTrace struct {
	Rule          *ruleset.Rule
	ConditionsMet bool
}

// Explain reports, for each triggered rule, whether its conditions hold,
// along with the response Dispatch would produce.
func (e *Engine) Explain(ctx context.Context, event *Event) ([]RuleTrace, *Response) {
	cfg := e.configs.Load()

	var traces []RuleTrace
	for _, rule := range e.MatchingRules(cfg, event) {
		traces = append(traces, RuleTrace{
			Rule:          rule,
			ConditionsMet: e.evaluator.EvaluateDefinition(ctx, rule.Conditions, event, cfg),
		})
	}

	return traces, e.Dispatch(ctx, event)
}

// matchesTool reports whether matcher matches toolName from its start,
// ignoring case. An empty matcher or "*" matches every tool.
func matchesTool(matcher, toolName string) (bool, error) {
	if matcher == "" || matcher == "*" {
		return true, nil
	}

	re, err := compileRegex(`\A(?:`+matcher+`)`, regexp2.IgnoreCase)
	if err != nil {
		return false, fmt.Errorf("trigger matcher: %w", err)
	}
	return re.MatchString(toolName)
}
