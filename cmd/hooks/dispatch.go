package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/michael-freling/claude-hooks-engine/internal/hooks"
)

const hookTypeEnv = "CLAUDE_HOOK_TYPE"

func newDispatchCmd(opts *options) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Dispatch a hook event read from stdin",
		Long: `Reads one hook message from stdin as JSON and runs the matching rules.
Exit code 0 continues, exit code 2 blocks. Decisions are written to stdout as JSON.
Any internal failure continues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exitWith(runHook(cmd, opts, kind))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "event", os.Getenv(hookTypeEnv), "event kind; overrides hook_event_name in the message")

	return cmd
}

func newEventCmd(opts *options, use, kind string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Dispatch a %s event read from stdin", kind),
		Long:  fmt.Sprintf(`Reads tool input from stdin as JSON and runs the %s rules. Returns exit code 0 to continue, exit code 2 to block.`, kind),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exitWith(runHook(cmd, opts, kind))
			return nil
		},
	}
}

func exitWith(status int) {
	if status != hooks.ExitContinue {
		exitFunc(status)
	}
}

// runHook dispatches the message on stdin and encodes the response. Setup
// failures, malformed input and panics all continue.
func runHook(cmd *cobra.Command, opts *options, kind string) (status int) {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "claude-hooks: internal error: %v\n", r)
			status = hooks.ExitContinue
		}
	}()

	a, err := newApp(opts, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "claude-hooks: %v\n", err)
		return hooks.ExitContinue
	}

	event, err := hooks.ParseEvent(cmd.InOrStdin(), kind)
	if err != nil {
		a.logger.Warn("invalid hook message, dispatching an empty event", "error", err)
		event = hooks.NewEvent(nil, kind)
	}

	return a.engine.Dispatch(cmd.Context(), event).Encode(stdout, stderr)
}

func newTestCmd(opts *options) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "test <event-file>",
		Short: "Dispatch a hook message from a file and print the result",
		Long:  `Runs the rules against a JSON hook message stored in a file. The result is printed instead of being returned as the exit code.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open event file: %w", err)
			}
			defer file.Close()

			event, err := hooks.ParseEvent(file, kind)
			if err != nil {
				return fmt.Errorf("failed to parse event file %s: %w", args[0], err)
			}

			input, err := json.Marshal(event.ToolInput)
			if err != nil {
				return fmt.Errorf("failed to encode tool input: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Testing: %s\n\n", args[0])
			fmt.Fprintln(out, "Event:")
			fmt.Fprintf(out, "  Type: %s\n", event.Kind)
			fmt.Fprintf(out, "  Tool: %s\n", event.ToolName)
			fmt.Fprintf(out, "  Input: %s\n\n", input)

			printResponse(out, a.engine.Dispatch(cmd.Context(), event))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "event", "", "event kind; overrides hook_event_name in the message")

	return cmd
}
