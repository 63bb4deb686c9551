package hooks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michael-freling/claude-hooks-engine/internal/ruleset"
)

func TestParseCondition(t *testing.T) {
	tests := []struct {
		name string
		def  ruleset.Definition
		want Condition
	}{
		{
			name: "empty is match all",
			def:  ruleset.Definition{},
			want: MatchAll{},
		},
		{
			name: "nil is match all",
			def:  nil,
			want: MatchAll{},
		},
		{
			name: "ref keeps remaining keys as patch",
			def:  ruleset.Definition{"ref": "is-bash", "pattern": "^git"},
			want: RefCondition{Name: "is-bash", Patch: ruleset.Definition{"pattern": "^git"}},
		},
		{
			name: "ref takes precedence over all",
			def:  ruleset.Definition{"ref": "x", "all": []any{}},
			want: RefCondition{Name: "x", Patch: ruleset.Definition{"all": []any{}}},
		},
		{
			name: "regex",
			def:  ruleset.Definition{"type": "regex", "field": "tool_input.command", "pattern": "rm", "flags": []any{"ignorecase"}},
			want: RegexCondition{Field: "tool_input.command", Pattern: "rm", Flags: []string{"ignorecase"}},
		},
		{
			name: "glob",
			def:  ruleset.Definition{"type": "glob", "field": "tool_input.file_path", "pattern": "*.go"},
			want: GlobCondition{Field: "tool_input.file_path", Pattern: "*.go"},
		},
		{
			name: "equals defaults to equals operator",
			def:  ruleset.Definition{"type": "equals", "field": "tool_name", "value": "Bash"},
			want: EqualsCondition{Field: "tool_name", Operator: OpEquals, Value: "Bash"},
		},
		{
			name: "equals operator spelled with dash",
			def:  ruleset.Definition{"type": "equals", "field": "tool_name", "operator": "Starts-With", "value": "Ba"},
			want: EqualsCondition{Field: "tool_name", Operator: OpStartsWith, Value: "Ba"},
		},
		{
			name: "equals value is stringified",
			def:  ruleset.Definition{"type": "equals", "field": "tool_input.count", "value": 3},
			want: EqualsCondition{Field: "tool_input.count", Operator: OpEquals, Value: "3"},
		},
		{
			name: "exists",
			def:  ruleset.Definition{"type": "exists", "field": "tool_input.file_path"},
			want: ExistsCondition{Field: "tool_input.file_path"},
		},
		{
			name: "script with timeout",
			def:  ruleset.Definition{"type": "script", "script": "check.sh", "timeout": 1.5},
			want: ScriptCondition{Script: "check.sh", Timeout: 1500 * time.Millisecond},
		},
		{
			name: "builtin inferred from key",
			def:  ruleset.Definition{"builtin": "dangerous-command"},
			want: BuiltinCondition{Name: "dangerous-command"},
		},
		{
			name: "script inferred from key",
			def:  ruleset.Definition{"script": "check.sh"},
			want: ScriptCondition{Script: "check.sh"},
		},
		{
			name: "builtin with params",
			def:  ruleset.Definition{"type": "builtin", "builtin": "sensitive-file", "params": map[string]any{"patterns": []any{"*.txt"}}},
			want: BuiltinCondition{Name: "sensitive-file", Params: map[string]any{"patterns": []any{"*.txt"}}},
		},
		{
			name: "unknown type",
			def:  ruleset.Definition{"type": "telepathy"},
			want: UnknownCondition{Type: "telepathy"},
		},
		{
			name: "fields without type are unknown",
			def:  ruleset.Definition{"field": "tool_name"},
			want: UnknownCondition{},
		},
		{
			name: "combinators nest",
			def: ruleset.Definition{
				"all": []any{
					map[string]any{"type": "exists", "field": "a"},
					map[string]any{"any": []any{
						map[string]any{"not": map[string]any{"type": "exists", "field": "b"}},
					}},
				},
			},
			want: AllCondition{Conditions: []Condition{
				ExistsCondition{Field: "a"},
				AnyCondition{Conditions: []Condition{
					NotCondition{Condition: ExistsCondition{Field: "b"}},
				}},
			}},
		},
		{
			name: "empty all",
			def:  ruleset.Definition{"all": []any{}},
			want: AllCondition{Conditions: []Condition{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCondition(tt.def)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCondition_Errors(t *testing.T) {
	tests := []struct {
		name        string
		def         ruleset.Definition
		errContains string
	}{
		{
			name:        "ref must be a string",
			def:         ruleset.Definition{"ref": 42},
			errContains: "condition ref",
		},
		{
			name:        "all must be a list",
			def:         ruleset.Definition{"all": "nope"},
			errContains: "all",
		},
		{
			name:        "any items must be maps",
			def:         ruleset.Definition{"any": []any{"nope"}},
			errContains: "any",
		},
		{
			name:        "not must be a map",
			def:         ruleset.Definition{"not": []any{}},
			errContains: "not",
		},
		{
			name:        "nested error carries its path",
			def:         ruleset.Definition{"all": []any{map[string]any{"not": "x"}}},
			errContains: "all[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCondition(tt.def)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}
