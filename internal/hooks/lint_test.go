package hooks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/michael-freling/claude-hooks-engine/internal/ruleset"
)

func TestLint(t *testing.T) {
	cfg := ruleset.NewConfig()
	cfg.Rules = []*ruleset.Rule{
		newRule("good", 50, "PreToolUse", "Bash", ruleset.Definition{"builtin": "dangerous-command"}, deny("no")),
		newRule("bad-matcher", 50, "PreToolUse", "(Bash", nil),
		newRule("bad-tree", 50, "PreToolUse", "", ruleset.Definition{"all": []any{
			map[string]any{"type": "regex", "field": "tool_name", "pattern": "("},
			map[string]any{"builtin": "mind-reader"},
			map[string]any{"not": map[string]any{"type": "telepathy"}},
		}}),
		newRule("bad-actions", 50, "PreToolUse", "", nil,
			ruleset.Definition{"type": "decision", "decision": "maybe"},
			ruleset.Definition{"type": "chain", "actions": []any{map[string]any{"type": "teleport"}}},
			ruleset.Definition{"type": "chain", "actions": "nope"},
		),
	}
	cfg.Conditions["operator"] = ruleset.Definition{"type": "equals", "field": "tool_name", "operator": "near"}
	cfg.Actions["fine"] = ruleset.Definition{"type": "log"}

	got := Lint(cfg, newTestBuiltins(t))

	assert.Len(t, got, 8)
	wantFragments := []string{
		"rule bad-matcher: trigger matcher",
		"rule bad-tree: malformed pattern",
		`rule bad-tree: unknown builtin condition: "mind-reader"`,
		`rule bad-tree: unknown condition type "telepathy"`,
		`rule bad-actions action 0: unknown decision "maybe"`,
		`rule bad-actions action 1: unknown action type "teleport"`,
		"rule bad-actions action 2: chain",
		`condition operator: unknown equals operator "near"`,
	}
	for i, fragment := range wantFragments {
		assert.Contains(t, got[i], fragment)
	}
}

func TestLint_CleanConfig(t *testing.T) {
	cfg := ruleset.NewConfig()
	cfg.Rules = []*ruleset.Rule{
		newRule("good", 50, "PreToolUse", "Bash|Write", ruleset.Definition{"builtin": "sensitive-file"}, deny("no")),
	}

	assert.Empty(t, Lint(cfg, newTestBuiltins(t)))
}
