package hooks

import (
	"fmt"
	"strings"
	"time"

	"github.com/michael-freling/claude-hooks-engine/internal/ruleset"
)

// Action is a parsed action node. A nil Action does nothing.
type Action interface {
	isAction()
}

// DecisionAction produces a decision response. Message may contain
// {{key}} placeholders.
type DecisionAction struct {
	Decision string
	Message  string
	Params   map[string]any
}

// ScriptAction runs a script with params exported as HOOK_<NAME> variables.
// A synchronous script exiting with status 2 blocks the operation.
type ScriptAction struct {
	Script  string
	Async   bool
	Timeout time.Duration
	Params  map[string]any
}

// ChainAction runs actions in order until one produces a response.
type ChainAction struct {
	Actions []Action
}

// ConditionalAction runs Then when Condition holds, otherwise Else.
type ConditionalAction struct {
	Condition Condition
	Then      Action
	Else      Action
}

// LogAction appends the event to a JSONL log. It never produces a response.
type LogAction struct {
	Params map[string]any
}

// RefAction names a shared action. Params are merged over the shared params.
type RefAction struct {
	Name   string
	Params map[string]any
}

// UnknownAction is a definition with an unrecognized type. It does nothing.
type UnknownAction struct {
	Type string
}

func (DecisionAction) isAction()    {}
func (ScriptAction) isAction()      {}
func (ChainAction) isAction()       {}
func (ConditionalAction) isAction() {}
func (LogAction) isAction()         {}
func (RefAction) isAction()         {}
func (UnknownAction) isAction()     {}

// DefaultDecision is used when a decision action names none.
const DefaultDecision = "block"

type actionFields struct {
	Type     string         `mapstructure:"type"`
	Decision string         `mapstructure:"decision"`
	Message  string         `mapstructure:"message"`
	Script   string         `mapstructure:"script"`
	Async    bool           `mapstructure:"async"`
	Timeout  float64        `mapstructure:"timeout"`
	Params   map[string]any `mapstructure:"params"`
}

// ParseAction converts an authored definition into an Action. A ref key
// takes precedence over type. An empty definition parses to nil.
func ParseAction(def ruleset.Definition) (Action, error) {
	if len(def) == 0 {
		return nil, nil
	}

	if ref, ok := def["ref"]; ok {
		name, ok := ref.(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("action ref must be a non-empty string, got %v", ref)
		}
		params, ok := asDefinition(def["params"])
		if !ok {
			return nil, fmt.Errorf("action ref %q: params must be a map", name)
		}
		return RefAction{Name: name, Params: params}, nil
	}

	var fields actionFields
	if err := decodeDefinition(def, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode action: %w", err)
	}

	switch strings.ToLower(fields.Type) {
	case "decision":
		decision := strings.ToLower(fields.Decision)
		if decision == "" {
			decision = DefaultDecision
		}
		return DecisionAction{Decision: decision, Message: fields.Message, Params: fields.Params}, nil
	case "script":
		return ScriptAction{
			Script:  fields.Script,
			Async:   fields.Async,
			Timeout: seconds(fields.Timeout),
			Params:  fields.Params,
		}, nil
	case "chain":
		defs, ok := asDefinitionList(def["actions"])
		if !ok {
			return nil, fmt.Errorf("chain: expected a list of action maps, got %T", def["actions"])
		}
		actions := make([]Action, 0, len(defs))
		for i, childDef := range defs {
			action, err := ParseAction(childDef)
			if err != nil {
				return nil, fmt.Errorf("chain[%d]: %w", i, err)
			}
			actions = append(actions, action)
		}
		return ChainAction{Actions: actions}, nil
	case "conditional":
		return parseConditional(def)
	case "log":
		return LogAction{Params: fields.Params}, nil
	default:
		return UnknownAction{Type: fields.Type}, nil
	}
}

func parseConditional(def ruleset.Definition) (Action, error) {
	conditionDef, ok := asDefinition(def["condition"])
	if !ok {
		return nil, fmt.Errorf("conditional: condition must be a map, got %T", def["condition"])
	}
	condition, err := ParseCondition(conditionDef)
	if err != nil {
		return nil, fmt.Errorf("conditional: %w", err)
	}

	result := ConditionalAction{Condition: condition}
	for _, branch := range []struct {
		key    string
		target *Action
	}{
		{key: "then", target: &result.Then},
		{key: "else", target: &result.Else},
	} {
		branchDef, ok := asDefinition(def[branch.key])
		if !ok {
			return nil, fmt.Errorf("conditional: %s must be an action map, got %T", branch.key, def[branch.key])
		}
		action, err := ParseAction(branchDef)
		if err != nil {
			return nil, fmt.Errorf("conditional %s: %w", branch.key, err)
		}
		*branch.target = action
	}

	return result, nil
}
