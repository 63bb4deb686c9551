// Package ruleset loads hook rules, shared conditions and shared actions from
// layered configuration directories and merges them into one Config.
package ruleset

import "errors"

// ErrParse marks a definition file that could not be parsed.
var ErrParse = errors.New("failed to parse definition file")

const (
	// DefaultPriority is used for rules that do not set one.
	DefaultPriority = 50

	rulesFileName      = "rules.yaml"
	rulesAliasFileName = "hooks.yaml"
	conditionsFileName = "conditions.yaml"
	actionsFileName    = "actions.yaml"
	scriptsDirName     = "scripts"
)

// Definition is an untyped condition or action definition as authored.
type Definition = map[string]any

// Trigger gates whether a rule is considered for an event.
type Trigger struct {
	// Event is the event kind the rule applies to, e.g. PreToolUse.
	Event string `yaml:"event"`
	// Matcher is a regular expression matched case-insensitively against the
	// start of the tool name. Empty matches every tool.
	Matcher string `yaml:"matcher"`
}

// Rule is a named, prioritized trigger, condition and action list.
type Rule struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Enabled     bool         `yaml:"-"`
	Priority    int          `yaml:"-"`
	Tags        []string     `yaml:"tags"`
	Trigger     Trigger      `yaml:"trigger"`
	Conditions  Definition   `yaml:"conditions"`
	Actions     []Definition `yaml:"actions"`

	// Source is the directory the winning definition came from.
	Source string `yaml:"-"`
}

// HasTag reports whether the rule carries tag.
func (r *Rule) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Kind names the table a Conflict happened in.
type Kind string

const (
	KindRule      Kind = "rule"
	KindCondition Kind = "condition"
	KindAction    Kind = "action"
)

// Conflict records one identifier overridden by a later source.
type Conflict struct {
	Kind     Kind
	ID       string
	Source   string
	Previous string
}

// Config is the merged view of every source.
type Config struct {
	// Rules holds enabled rules, highest priority first.
	Rules []*Rule
	// Conditions are shared condition definitions by identifier.
	Conditions map[string]Definition
	// Actions are shared action definitions by identifier.
	Actions map[string]Definition
	// ScriptsDir resolves relative script paths; empty when no source has one.
	ScriptsDir string
	// Sources lists the directories that were read, in order.
	Sources []string
	// Conflicts lists overrides in the order they happened.
	Conflicts []Conflict
}

// NewConfig returns an empty configuration.
func NewConfig() *Config {
	return &Config{
		Conditions: map[string]Definition{},
		Actions:    map[string]Definition{},
	}
}
