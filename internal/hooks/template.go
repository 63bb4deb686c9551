package hooks

import (
	"encoding/json"
	"sort"
	"strings"
)

// templateContext builds the {{key}} substitutions for an action. Payload
// fields come first, then tool_name and tool_input, then the action's own
// params, so authored params are never overridden by tool input.
func templateContext(event *Event, params map[string]any) map[string]string {
	context := make(map[string]string, len(event.ToolInput)+len(params)+2)

	for key, value := range event.ToolInput {
		context[key] = stringify(value)
	}

	context["tool_name"] = event.ToolName
	toolInput, err := json.Marshal(event.ToolInput)
	if err != nil {
		toolInput = []byte("{}")
	}
	context["tool_input"] = string(toolInput)

	for key, value := range params {
		context[key] = stringify(value)
	}

	return context
}

// renderTemplate substitutes {{key}} placeholders literally in one pass.
// Unknown placeholders are left as written.
func renderTemplate(template string, context map[string]string) string {
	if !strings.Contains(template, "{{") {
		return template
	}

	keys := make([]string, 0, len(context))
	for key := range context {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		pairs = append(pairs, "{{"+key+"}}", context[key])
	}

	return strings.NewReplacer(pairs...).Replace(template)
}
