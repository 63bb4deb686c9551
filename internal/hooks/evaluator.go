package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/gobwas/glob"

	"github.com/michael-freling/claude-hooks-engine/internal/command"
	"github.com/michael-freling/claude-hooks-engine/internal/ruleset"
)

const (
	// maxDepth bounds nesting and reference chains.
	maxDepth = 32

	regexMatchTimeout = 250 * time.Millisecond
)

// Evaluator decides whether conditions hold for an event. Every failure
// while evaluating is logged and treated as the condition not holding.
type Evaluator struct {
	runner   command.Runner
	builtins *Builtins
	timeout  time.Duration
	logger   *slog.Logger
}

// NewEvaluator creates an evaluator. timeout bounds script conditions that
// do not set their own.
func NewEvaluator(runner command.Runner, builtins *Builtins, timeout time.Duration, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		runner:   runner,
		builtins: builtins,
		timeout:  timeout,
		logger:   logger,
	}
}

// EvaluateDefinition parses and evaluates an authored condition.
func (e *Evaluator) EvaluateDefinition(ctx context.Context, def ruleset.Definition, event *Event, cfg *ruleset.Config) bool {
	condition, err := ParseCondition(def)
	if err != nil {
		e.logger.Warn("invalid condition", "error", err)
		return false
	}
	return e.Evaluate(ctx, condition, event, cfg)
}

// Evaluate reports whether condition holds for event. A tree nested or
// referenced beyond the depth limit does not hold as a whole.
func (e *Evaluator) Evaluate(ctx context.Context, condition Condition, event *Event, cfg *ruleset.Config) bool {
	matched, err := e.evaluate(ctx, condition, event, cfg, 0)
	if err != nil {
		e.logger.Warn("condition not evaluated", "error", err)
		return false
	}
	return matched
}

// evaluate only returns an error for ErrMaxDepth; every other failure is
// local to its node and reported as false.
func (e *Evaluator) evaluate(ctx context.Context, condition Condition, event *Event, cfg *ruleset.Config, depth int) (bool, error) {
	if depth > maxDepth {
		return false, ErrMaxDepth
	}

	switch c := condition.(type) {
	case MatchAll:
		return true, nil
	case RefCondition:
		return e.evaluateRef(ctx, c, event, cfg, depth)
	case AllCondition:
		for _, child := range c.Conditions {
			matched, err := e.evaluate(ctx, child, event, cfg, depth+1)
			if err != nil || !matched {
				return false, err
			}
		}
		return true, nil
	case AnyCondition:
		for _, child := range c.Conditions {
			matched, err := e.evaluate(ctx, child, event, cfg, depth+1)
			if err != nil || matched {
				return matched, err
			}
		}
		return false, nil
	case NotCondition:
		matched, err := e.evaluate(ctx, c.Condition, event, cfg, depth+1)
		if err != nil {
			return false, err
		}
		return !matched, nil
	case RegexCondition:
		return e.evaluateRegex(c, event), nil
	case GlobCondition:
		return e.evaluateGlob(c, event), nil
	case EqualsCondition:
		return e.evaluateEquals(c, event), nil
	case ExistsCondition:
		_, ok := event.Lookup(c.Field)
		return ok, nil
	case ScriptCondition:
		return e.evaluateScript(ctx, c, event, cfg), nil
	case BuiltinCondition:
		matched, err := e.builtins.Evaluate(ctx, c.Name, event, c.Params)
		if err != nil {
			e.logger.Warn("builtin condition failed", "builtin", c.Name, "error", err)
		}
		return matched, nil
	case UnknownCondition:
		e.logger.Warn("unknown condition type", "type", c.Type)
		return false, nil
	default:
		e.logger.Warn("unsupported condition", "condition", fmt.Sprintf("%T", condition))
		return false, nil
	}
}

func (e *Evaluator) evaluateRef(ctx context.Context, c RefCondition, event *Event, cfg *ruleset.Config, depth int) (bool, error) {
	base, ok := cfg.Conditions[c.Name]
	if !ok {
		e.logger.Warn("condition not evaluated", "ref", c.Name, "error", ErrUnknownReference)
		return false, nil
	}

	merged := make(ruleset.Definition, len(base)+len(c.Patch))
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range c.Patch {
		merged[key] = value
	}

	resolved, err := ParseCondition(merged)
	if err != nil {
		e.logger.Warn("invalid condition", "ref", c.Name, "error", err)
		return false, nil
	}
	return e.evaluate(ctx, resolved, event, cfg, depth+1)
}

func (e *Evaluator) evaluateRegex(c RegexCondition, event *Event) bool {
	value, ok := event.Lookup(c.Field)
	if !ok {
		return false
	}

	re, err := compileRegex(c.Pattern, regexOptions(c.Flags))
	if err != nil {
		e.logger.Warn("regex condition not evaluated", "field", c.Field, "error", err)
		return false
	}

	matched, err := re.MatchString(stringify(value))
	if err != nil {
		e.logger.Warn("regex condition not evaluated", "field", c.Field, "error", err)
		return false
	}
	return matched
}

func (e *Evaluator) evaluateGlob(c GlobCondition, event *Event) bool {
	value, ok := event.Lookup(c.Field)
	if !ok {
		return false
	}

	g, err := compileGlob(c.Pattern)
	if err != nil {
		e.logger.Warn("glob condition not evaluated", "field", c.Field, "error", err)
		return false
	}
	return g.Match(stringify(value))
}

var fnmatchEscaper = strings.NewReplacer(`\`, `\\`, `{`, `\{`, `}`, `\}`)

// compileGlob compiles a shell fnmatch pattern: * and ? cross "/", and
// braces and backslashes match literally.
func compileGlob(pattern string) (glob.Glob, error) {
	g, err := glob.Compile(fnmatchEscaper.Replace(pattern))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedPattern, pattern, err)
	}
	return g, nil
}

func (e *Evaluator) evaluateEquals(c EqualsCondition, event *Event) bool {
	value, ok := event.Lookup(c.Field)
	if !ok {
		return false
	}

	actual := stringify(value)
	switch c.Operator {
	case OpEquals:
		return actual == c.Value
	case OpStartsWith:
		return strings.HasPrefix(actual, c.Value)
	case OpEndsWith:
		return strings.HasSuffix(actual, c.Value)
	case OpContains:
		return strings.Contains(actual, c.Value)
	default:
		e.logger.Warn("unknown equals operator", "operator", c.Operator)
		return false
	}
}

func (e *Evaluator) evaluateScript(ctx context.Context, c ScriptCondition, event *Event, cfg *ruleset.Config) bool {
	path, err := command.ResolveScript(cfg.ScriptsDir, c.Script)
	if err != nil {
		e.logger.Warn("script condition not evaluated", "error", err)
		return false
	}

	stdin, err := json.Marshal(event.Raw)
	if err != nil {
		e.logger.Warn("script condition not evaluated", "script", path, "error", err)
		return false
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}

	result, err := e.runner.Run(ctx, command.Request{
		Name:    path,
		Stdin:   stdin,
		Timeout: timeout,
	})
	if err != nil {
		e.logger.Warn("script condition failed", "script", path, "error", err)
		return false
	}

	e.logger.Debug("script condition finished", "script", path, "exit_code", result.ExitCode)
	return result.ExitCode == 0
}

func regexOptions(flags []string) regexp2.RegexOptions {
	options := regexp2.None
	for _, flag := range flags {
		switch strings.ToLower(flag) {
		case "ignorecase", "i":
			options |= regexp2.IgnoreCase
		case "multiline", "m":
			options |= regexp2.Multiline
		case "dotall", "s":
			options |= regexp2.Singleline
		}
	}
	return options
}

func compileRegex(pattern string, options regexp2.RegexOptions) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(pattern, options)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedPattern, pattern, err)
	}
	re.MatchTimeout = regexMatchTimeout
	return re, nil
}
