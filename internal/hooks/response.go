package hooks

import (
	"encoding/json"
	"fmt"
	"io"
)

// Exit statuses understood by the agent host.
const (
	ExitContinue = 0
	ExitBlock    = 2
)

// Decision is the permission decision carried by a terminal response.
type Decision string

const (
	DecisionNone  Decision = ""
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
	DecisionAsk   Decision = "ask"
)

// Response is the outcome of one dispatch.
type Response struct {
	Status   int
	Decision Decision
	Message  string

	// RuleID identifies the rule that produced the response, if any.
	RuleID string
}

// Continue lets the operation proceed with no output.
func Continue() *Response {
	return &Response{Status: ExitContinue}
}

// Block denies the operation.
func Block(message string) *Response {
	return &Response{
		Status:   ExitBlock,
		Decision: DecisionDeny,
		Message:  message,
	}
}

// Allow approves the operation without prompting.
func Allow(message string) *Response {
	return &Response{
		Status:   ExitContinue,
		Decision: DecisionAllow,
		Message:  message,
	}
}

// Ask asks the user to confirm the operation.
func Ask(message string) *Response {
	return &Response{
		Status:   ExitContinue,
		Decision: DecisionAsk,
		Message:  message,
	}
}

type decisionPayload struct {
	PermissionDecision Decision `json:"permissionDecision"`
	Message            string   `json:"message,omitempty"`
}

// Encode writes the response in the host protocol and returns the exit status.
// A decision is written to stdout as one JSON line; blocking messages are also
// written to stderr since hosts read stderr on a blocking exit. A message with
// no decision goes to stderr only.
func (r *Response) Encode(stdout, stderr io.Writer) int {
	if r.Decision != DecisionNone {
		payload, err := json.Marshal(decisionPayload{
			PermissionDecision: r.Decision,
			Message:            r.Message,
		})
		if err == nil {
			fmt.Fprintln(stdout, string(payload))
		}
		if r.Status == ExitBlock && r.Message != "" {
			fmt.Fprintln(stderr, r.Message)
		}
		return r.Status
	}

	if r.Message != "" {
		fmt.Fprintln(stderr, r.Message)
	}

	return r.Status
}
