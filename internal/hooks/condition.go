package hooks

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/michael-freling/claude-hooks-engine/internal/ruleset"
)

// Condition is a parsed condition node.
type Condition interface {
	isCondition()
}

// MatchAll is the empty condition and always holds.
type MatchAll struct{}

// RefCondition names a shared condition. Patch keys override the shared
// definition's keys before it is evaluated.
type RefCondition struct {
	Name  string
	Patch ruleset.Definition
}

// RegexCondition searches a field with a regular expression.
type RegexCondition struct {
	Field   string
	Pattern string
	Flags   []string
}

// GlobCondition matches a field with a shell-style pattern.
type GlobCondition struct {
	Field   string
	Pattern string
}

// EqualsOperator selects how an EqualsCondition compares strings.
type EqualsOperator string

const (
	OpEquals     EqualsOperator = "equals"
	OpStartsWith EqualsOperator = "startswith"
	OpEndsWith   EqualsOperator = "endswith"
	OpContains   EqualsOperator = "contains"
)

// EqualsCondition compares the string form of a field with Value.
type EqualsCondition struct {
	Field    string
	Operator EqualsOperator
	Value    string
}

// ExistsCondition holds when a field is present and not null.
type ExistsCondition struct {
	Field string
}

// ScriptCondition holds when the script exits with status 0.
type ScriptCondition struct {
	Script string
	// Timeout overrides the evaluator default when positive.
	Timeout time.Duration
}

// BuiltinCondition runs a named predicate from the builtin catalog.
type BuiltinCondition struct {
	Name   string
	Params map[string]any
}

// AllCondition holds when every child holds. Evaluation stops at the first false.
type AllCondition struct {
	Conditions []Condition
}

// AnyCondition holds when some child holds. Evaluation stops at the first true.
type AnyCondition struct {
	Conditions []Condition
}

// NotCondition negates its child.
type NotCondition struct {
	Condition Condition
}

// UnknownCondition is a definition with an unrecognized type. It never holds.
type UnknownCondition struct {
	Type string
}

func (MatchAll) isCondition()         {}
func (RefCondition) isCondition()     {}
func (RegexCondition) isCondition()   {}
func (GlobCondition) isCondition()    {}
func (EqualsCondition) isCondition()  {}
func (ExistsCondition) isCondition()  {}
func (ScriptCondition) isCondition()  {}
func (BuiltinCondition) isCondition() {}
func (AllCondition) isCondition()     {}
func (AnyCondition) isCondition()     {}
func (NotCondition) isCondition()     {}
func (UnknownCondition) isCondition() {}

type conditionFields struct {
	Type     string         `mapstructure:"type"`
	Field    string         `mapstructure:"field"`
	Pattern  string         `mapstructure:"pattern"`
	Flags    []string       `mapstructure:"flags"`
	Value    any            `mapstructure:"value"`
	Operator string         `mapstructure:"operator"`
	Script   string         `mapstructure:"script"`
	Timeout  float64        `mapstructure:"timeout"`
	Builtin  string         `mapstructure:"builtin"`
	Params   map[string]any `mapstructure:"params"`
}

// ParseCondition converts an authored definition into a Condition.
// Keys are checked in order: ref, all, any, not, then type. When type is
// absent it is inferred from a builtin or script key.
func ParseCondition(def ruleset.Definition) (Condition, error) {
	if len(def) == 0 {
		return MatchAll{}, nil
	}

	if ref, ok := def["ref"]; ok {
		name, ok := ref.(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("condition ref must be a non-empty string, got %v", ref)
		}
		patch := make(ruleset.Definition, len(def)-1)
		for key, value := range def {
			if key != "ref" {
				patch[key] = value
			}
		}
		return RefCondition{Name: name, Patch: patch}, nil
	}

	if children, ok := def["all"]; ok {
		conditions, err := parseConditionList("all", children)
		if err != nil {
			return nil, err
		}
		return AllCondition{Conditions: conditions}, nil
	}

	if children, ok := def["any"]; ok {
		conditions, err := parseConditionList("any", children)
		if err != nil {
			return nil, err
		}
		return AnyCondition{Conditions: conditions}, nil
	}

	if child, ok := def["not"]; ok {
		childDef, ok := asDefinition(child)
		if !ok {
			return nil, fmt.Errorf("not: expected a condition map, got %T", child)
		}
		condition, err := ParseCondition(childDef)
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		return NotCondition{Condition: condition}, nil
	}

	var fields conditionFields
	if err := decodeDefinition(def, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode condition: %w", err)
	}

	conditionType := strings.ToLower(fields.Type)
	if conditionType == "" {
		switch {
		case fields.Builtin != "":
			conditionType = "builtin"
		case fields.Script != "":
			conditionType = "script"
		}
	}

	switch conditionType {
	case "regex":
		return RegexCondition{Field: fields.Field, Pattern: fields.Pattern, Flags: fields.Flags}, nil
	case "glob":
		return GlobCondition{Field: fields.Field, Pattern: fields.Pattern}, nil
	case "equals":
		return EqualsCondition{
			Field:    fields.Field,
			Operator: normalizeOperator(fields.Operator),
			Value:    stringify(fields.Value),
		}, nil
	case "exists":
		return ExistsCondition{Field: fields.Field}, nil
	case "script":
		return ScriptCondition{Script: fields.Script, Timeout: seconds(fields.Timeout)}, nil
	case "builtin":
		return BuiltinCondition{Name: fields.Builtin, Params: fields.Params}, nil
	default:
		return UnknownCondition{Type: fields.Type}, nil
	}
}

func parseConditionList(key string, value any) ([]Condition, error) {
	defs, ok := asDefinitionList(value)
	if !ok {
		return nil, fmt.Errorf("%s: expected a list of condition maps, got %T", key, value)
	}

	conditions := make([]Condition, 0, len(defs))
	for i, def := range defs {
		condition, err := ParseCondition(def)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		conditions = append(conditions, condition)
	}
	return conditions, nil
}

func normalizeOperator(operator string) EqualsOperator {
	normalized := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(operator))
	if normalized == "" {
		return OpEquals
	}
	return EqualsOperator(normalized)
}

func decodeDefinition(def ruleset.Definition, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           result,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(def)
}

func asDefinition(value any) (ruleset.Definition, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case nil:
		return ruleset.Definition{}, true
	default:
		return nil, false
	}
}

func asDefinitionList(value any) ([]ruleset.Definition, bool) {
	switch v := value.(type) {
	case []ruleset.Definition:
		return v, true
	case []any:
		defs := make([]ruleset.Definition, 0, len(v))
		for _, item := range v {
			def, ok := asDefinition(item)
			if !ok {
				return nil, false
			}
			defs = append(defs, def)
		}
		return defs, true
	case nil:
		return nil, true
	default:
		return nil, false
	}
}

func seconds(value float64) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value * float64(time.Second))
}
