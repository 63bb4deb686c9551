package ruleset

import (
	"fmt"
	"maps"
	"slices"
)

// Report lists problems found in a merged configuration.
type Report struct {
	Errors   []string
	Warnings []string
}

// OK reports whether the configuration has no errors.
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

// Validate checks that every condition and action reference resolves and
// turns recorded overrides into warnings.
func Validate(cfg *Config) *Report {
	report := &Report{}

	for _, rule := range cfg.Rules {
		if rule.Trigger.Event == "" {
			report.Warnings = append(report.Warnings, fmt.Sprintf("rule %q has no trigger event and never fires", rule.ID))
		}
		checkConditionRefs(cfg, rule.Conditions, rule.ID, report)
		for _, action := range rule.Actions {
			checkActionRefs(cfg, action, rule.ID, report)
		}
	}

	for _, id := range slices.Sorted(maps.Keys(cfg.Conditions)) {
		checkConditionRefs(cfg, cfg.Conditions[id], "condition "+id, report)
	}
	for _, id := range slices.Sorted(maps.Keys(cfg.Actions)) {
		checkActionRefs(cfg, cfg.Actions[id], "action "+id, report)
	}

	for _, c := range cfg.Conflicts {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%s %q defined in %s overrides %s", c.Kind, c.ID, c.Source, c.Previous))
	}

	return report
}

func checkConditionRefs(cfg *Config, def Definition, owner string, report *Report) {
	if len(def) == 0 {
		return
	}

	if ref, ok := def["ref"].(string); ok {
		if _, found := cfg.Conditions[ref]; !found {
			report.Errors = append(report.Errors, fmt.Sprintf("%s references unknown condition: %s", owner, ref))
		}
	}

	for _, key := range []string{"all", "any"} {
		children, _ := def[key].([]any)
		for _, child := range children {
			childDef, _ := child.(map[string]any)
			checkConditionRefs(cfg, childDef, owner, report)
		}
	}

	if child, ok := def["not"].(map[string]any); ok {
		checkConditionRefs(cfg, child, owner, report)
	}
}

func checkActionRefs(cfg *Config, def Definition, owner string, report *Report) {
	if len(def) == 0 {
		return
	}

	if ref, ok := def["ref"].(string); ok {
		if _, found := cfg.Actions[ref]; !found {
			report.Errors = append(report.Errors, fmt.Sprintf("%s references unknown action: %s", owner, ref))
		}
	}

	children, _ := def["actions"].([]any)
	for _, child := range children {
		childDef, _ := child.(map[string]any)
		checkActionRefs(cfg, childDef, owner, report)
	}

	if condition, ok := def["condition"].(map[string]any); ok {
		checkConditionRefs(cfg, condition, owner, report)
	}
	for _, key := range []string{"then", "else"} {
		if branch, ok := def[key].(map[string]any); ok {
			checkActionRefs(cfg, branch, owner, report)
		}
	}
}
