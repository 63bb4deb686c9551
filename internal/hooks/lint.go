package hooks

import (
	"fmt"
	"maps"
	"slices"

	"github.com/michael-freling/claude-hooks-engine/internal/ruleset"
)

// Lint reports definitions the engine would ignore or treat as false at
// dispatch time: unparsable trees, unknown types and builtins, and patterns
// or matchers that do not compile. References are checked by ruleset.Validate.
func Lint(cfg *ruleset.Config, builtins *Builtins) []string {
	l := &linter{builtins: builtins}

	for _, rule := range cfg.Rules {
		owner := "rule " + rule.ID
		if _, err := matchesTool(rule.Trigger.Matcher, ""); err != nil {
			l.addf("%s: %v", owner, err)
		}
		l.conditionDefinition(owner, rule.Conditions)
		for i, def := range rule.Actions {
			l.actionDefinition(fmt.Sprintf("%s action %d", owner, i), def)
		}
	}

	for _, id := range slices.Sorted(maps.Keys(cfg.Conditions)) {
		l.conditionDefinition("condition "+id, cfg.Conditions[id])
	}
	for _, id := range slices.Sorted(maps.Keys(cfg.Actions)) {
		l.actionDefinition("action "+id, cfg.Actions[id])
	}

	return l.problems
}

type linter struct {
	builtins *Builtins
	problems []string
}

func (l *linter) addf(format string, args ...any) {
	l.problems = append(l.problems, fmt.Sprintf(format, args...))
}

func (l *linter) conditionDefinition(owner string, def ruleset.Definition) {
	condition, err := ParseCondition(def)
	if err != nil {
		l.addf("%s: %v", owner, err)
		return
	}
	l.condition(owner, condition)
}

func (l *linter) condition(owner string, condition Condition) {
	switch c := condition.(type) {
	case AllCondition:
		for _, child := range c.Conditions {
			l.condition(owner, child)
		}
	case AnyCondition:
		for _, child := range c.Conditions {
			l.condition(owner, child)
		}
	case NotCondition:
		l.condition(owner, c.Condition)
	case RegexCondition:
		if _, err := compileRegex(c.Pattern, regexOptions(c.Flags)); err != nil {
			l.addf("%s: %v", owner, err)
		}
	case GlobCondition:
		if _, err := compileGlob(c.Pattern); err != nil {
			l.addf("%s: %v", owner, err)
		}
	case EqualsCondition:
		switch c.Operator {
		case OpEquals, OpStartsWith, OpEndsWith, OpContains:
		default:
			l.addf("%s: unknown equals operator %q", owner, c.Operator)
		}
	case BuiltinCondition:
		if !l.builtins.Has(c.Name) {
			l.addf("%s: %v: %q", owner, ErrUnknownBuiltin, c.Name)
		}
	case UnknownCondition:
		l.addf("%s: unknown condition type %q", owner, c.Type)
	}
}

func (l *linter) actionDefinition(owner string, def ruleset.Definition) {
	action, err := ParseAction(def)
	if err != nil {
		l.addf("%s: %v", owner, err)
		return
	}
	l.action(owner, action)
}

func (l *linter) action(owner string, action Action) {
	switch a := action.(type) {
	case DecisionAction:
		switch a.Decision {
		case "block", "deny", "allow", "ask":
		default:
			l.addf("%s: unknown decision %q", owner, a.Decision)
		}
	case ChainAction:
		for _, child := range a.Actions {
			l.action(owner, child)
		}
	case ConditionalAction:
		l.condition(owner, a.Condition)
		l.action(owner, a.Then)
		l.action(owner, a.Else)
	case UnknownAction:
		l.addf("%s: unknown action type %q", owner, a.Type)
	}
}
