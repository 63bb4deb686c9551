package hooks

import (
	"encoding/json"
	"fmt"
	"io"
)

// Event kinds sent by the agent around tool calls.
const (
	PreToolUse  = "PreToolUse"
	PostToolUse = "PostToolUse"
)

// UnknownEventKind is used when neither the caller nor the message names the event.
const UnknownEventKind = "Unknown"

// Event is one hook message from the agent. It is never mutated after creation.
type Event struct {
	// Kind is the hook event, e.g. PreToolUse.
	Kind      string
	ToolName  string
	ToolInput map[string]any
	SessionID string
	// Raw is the full original message, used for dotted field lookups and
	// passed to scripts.
	Raw map[string]any
}

// ParseEvent reads one JSON message from reader. A non-empty kind takes
// precedence over the kind named in the message.
func ParseEvent(reader io.Reader, kind string) (*Event, error) {
	decoder := json.NewDecoder(reader)
	decoder.UseNumber()

	var raw map[string]any
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	return NewEvent(raw, kind), nil
}

// NewEvent builds an event from a decoded message.
func NewEvent(raw map[string]any, kind string) *Event {
	if raw == nil {
		raw = map[string]any{}
	}

	if kind == "" {
		kind = firstString(raw, "hook_event_name", "hook_type")
	}
	if kind == "" {
		kind = UnknownEventKind
	}

	toolInput, _ := raw["tool_input"].(map[string]any)
	if toolInput == nil {
		toolInput = map[string]any{}
	}

	return &Event{
		Kind:      kind,
		ToolName:  firstString(raw, "tool_name"),
		ToolInput: toolInput,
		SessionID: firstString(raw, "session_id"),
		Raw:       raw,
	}
}

// GetStringArg retrieves a string argument from the tool input.
// Returns the value and true if found, empty string and false if not found.
func (e *Event) GetStringArg(name string) (string, bool) {
	value, ok := e.ToolInput[name]
	if !ok {
		return "", false
	}

	strValue, ok := value.(string)
	if !ok {
		return "", false
	}

	return strValue, true
}

// Lookup resolves a dot-separated path into the full message.
func (e *Event) Lookup(path string) (any, bool) {
	return LookupField(e.Raw, path)
}

func firstString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := raw[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
