package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/michael-freling/claude-hooks-engine/internal/command"
	"github.com/michael-freling/claude-hooks-engine/internal/hooks"
	"github.com/michael-freling/claude-hooks-engine/internal/logstore"
	"github.com/michael-freling/claude-hooks-engine/internal/ruleset"
)

func newListCmd(opts *options) *cobra.Command {
	var (
		event        string
		tag          string
		showBuiltins bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active rules",
		Long:  `Lists the enabled rules of the merged configuration in priority order, or the builtin condition catalog.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if showBuiltins {
				return printBuiltins(out, a.builtins)
			}

			cfg := a.store.Load()
			var rules []*ruleset.Rule
			for _, rule := range cfg.Rules {
				if event != "" && rule.Trigger.Event != event {
					continue
				}
				if tag != "" && !rule.HasTag(tag) {
					continue
				}
				rules = append(rules, rule)
			}

			printRules(out, cfg, rules)
			return nil
		},
	}

	cmd.Flags().StringVar(&event, "event", "", "only rules triggered by this event")
	cmd.Flags().StringVar(&tag, "tag", "", "only rules carrying this tag")
	cmd.Flags().BoolVar(&showBuiltins, "builtins", false, "list builtin conditions instead of rules")

	return cmd
}

func printRules(out io.Writer, cfg *ruleset.Config, rules []*ruleset.Rule) {
	fmt.Fprintf(out, "Active Rules (%d total)\n\n", len(rules))

	events := map[string]struct{}{}
	tags := map[string]struct{}{}
	for _, rule := range rules {
		fmt.Fprintf(out, "[%3d] %s\n", rule.Priority, rule.ID)
		if rule.Name != "" {
			fmt.Fprintf(out, "  Name: %s\n", rule.Name)
		}
		fmt.Fprintf(out, "  Trigger: %s -> %s\n", orDefault(rule.Trigger.Event, "(none)"), orDefault(rule.Trigger.Matcher, "*"))
		if len(rule.Tags) > 0 {
			fmt.Fprintf(out, "  Tags: %s\n", strings.Join(rule.Tags, ", "))
		}
		fmt.Fprintf(out, "  Actions: %d\n", len(rule.Actions))
		fmt.Fprintf(out, "  Source: %s\n\n", rule.Source)

		if rule.Trigger.Event != "" {
			events[rule.Trigger.Event] = struct{}{}
		}
		for _, tag := range rule.Tags {
			tags[tag] = struct{}{}
		}
	}

	fmt.Fprintf(out, "Events covered: %s\n", strings.Join(sortedSet(events), ", "))
	fmt.Fprintf(out, "Tags used: %s\n", strings.Join(sortedSet(tags), ", "))
	fmt.Fprintf(out, "Conditions defined: %d\n", len(cfg.Conditions))
	fmt.Fprintf(out, "Actions defined: %d\n", len(cfg.Actions))
}

func printBuiltins(out io.Writer, builtins *hooks.Builtins) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	for _, builtin := range builtins.List() {
		fmt.Fprintf(w, "%s\t%s\n", builtin.Name, builtin.Description)
	}
	return w.Flush()
}

func newExplainCmd(opts *options) *cobra.Command {
	var (
		event string
		tool  string
		input string
	)

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Show which rules apply to a tool call and what they decide",
		Long: `Builds a hook message from the flags, reports every triggered rule with
its condition outcome, and runs a dispatch. Actions of the dispatch run for real.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			toolInput, err := decodeObject(input)
			if err != nil {
				return fmt.Errorf("invalid --input JSON: %w", err)
			}

			a, err := newApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			hookEvent := hooks.NewEvent(map[string]any{
				"hook_event_name": event,
				"tool_name":       tool,
				"tool_input":      toolInput,
			}, event)

			total := len(a.store.Load().Rules)
			traces, response := a.engine.Explain(cmd.Context(), hookEvent)

			pretty, err := json.MarshalIndent(toolInput, "  ", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode tool input: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Explaining: %s -> %s\n\n", event, tool)
			fmt.Fprintf(out, "Input:\n  %s\n\n", pretty)
			fmt.Fprintf(out, "Matching Rules (%d of %d):\n\n", len(traces), total)
			for _, trace := range traces {
				status := "conditions not met"
				if trace.ConditionsMet {
					status = "conditions met"
				}
				fmt.Fprintf(out, "  [%3d] %s\n", trace.Rule.Priority, trace.Rule.ID)
				fmt.Fprintf(out, "        %s\n", status)
				if trace.ConditionsMet {
					fmt.Fprintf(out, "        Actions: %s\n", strings.Join(actionNames(trace.Rule.Actions), ", "))
				}
				fmt.Fprintln(out)
			}

			fmt.Fprintln(out, "Simulated Dispatch Result:")
			printResponse(out, response)
			return nil
		},
	}

	cmd.Flags().StringVar(&event, "event", hooks.PreToolUse, "event kind")
	cmd.Flags().StringVar(&tool, "tool", "", "tool name, e.g. Bash")
	cmd.Flags().StringVar(&input, "input", "{}", "tool input as a JSON object")
	cmd.MarkFlagRequired("tool")

	return cmd
}

func decodeObject(text string) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader([]byte(text)))
	decoder.UseNumber()

	var object map[string]any
	if err := decoder.Decode(&object); err != nil {
		return nil, err
	}
	if object == nil {
		object = map[string]any{}
	}
	return object, nil
}

func actionNames(defs []ruleset.Definition) []string {
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		switch {
		case def["ref"] != nil:
			names = append(names, fmt.Sprint(def["ref"]))
		case def["type"] != nil:
			names = append(names, fmt.Sprint(def["type"]))
		default:
			names = append(names, "unknown")
		}
	}
	return names
}

func printResponse(out io.Writer, response *hooks.Response) {
	fmt.Fprintf(out, "  Exit Code: %d\n", response.Status)
	if response.Decision != hooks.DecisionNone {
		fmt.Fprintf(out, "  Decision: %s\n", response.Decision)
	}
	if response.Message != "" {
		fmt.Fprintf(out, "  Message: %s\n", response.Message)
	}
	if response.RuleID != "" {
		fmt.Fprintf(out, "  Rule: %s\n", response.RuleID)
	}
	if response.Status == hooks.ExitContinue && response.Decision == hooks.DecisionNone && response.Message == "" {
		fmt.Fprintln(out, "  Result: Continue")
	}
}

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the merged configuration",
		Long:  `Checks that references resolve, patterns compile and builtins exist. Exits with code 1 when errors are found.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			cfg := a.store.Load()
			report := ruleset.Validate(cfg)
			report.Errors = append(report.Errors, hooks.Lint(cfg, a.builtins)...)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Sources (in precedence order):")
			for i, source := range a.settings.Sources {
				status := "found"
				if _, err := os.Stat(source); err != nil {
					status = "missing"
				}
				fmt.Fprintf(out, "  %d. [%s] %s\n", i+1, status, source)
			}
			fmt.Fprintf(out, "\nRules: %d, Conditions: %d, Actions: %d\n\n", len(cfg.Rules), len(cfg.Conditions), len(cfg.Actions))

			if len(report.Errors) > 0 {
				fmt.Fprintln(out, "ERRORS:")
				for _, message := range report.Errors {
					fmt.Fprintf(out, "  x %s\n", message)
				}
				fmt.Fprintln(out)
			}
			if len(report.Warnings) > 0 {
				fmt.Fprintln(out, "WARNINGS:")
				for _, message := range report.Warnings {
					fmt.Fprintf(out, "  ! %s\n", message)
				}
				fmt.Fprintln(out)
			}

			if !report.OK() {
				return fmt.Errorf("configuration has %d error(s)", len(report.Errors))
			}
			fmt.Fprintln(out, "Configuration is valid")
			return nil
		},
	}
}

func newLogsCmd(opts *options) *cobra.Command {
	var (
		tail int
		file string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent events recorded by log actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				a, err := newApp(opts, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				file = a.settings.LogFile
			}
			store := logstore.New(command.ExpandHome(file))

			out := cmd.OutOrStdout()
			records, err := store.Tail(tail)
			if errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintf(out, "No log file found at %s\n", store.Path())
				return nil
			}
			if err != nil {
				return err
			}

			for _, record := range records {
				fmt.Fprintf(out, "[%s] %-12s %s\n", record.Timestamp.Local().Format("2006-01-02 15:04:05"), record.EventType, record.ToolName)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&tail, "tail", 20, "number of records to show; 0 shows all")
	cmd.Flags().StringVar(&file, "file", "", "log file (default from settings)")

	return cmd
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func sortedSet(set map[string]struct{}) []string {
	values := make([]string, 0, len(set))
	for value := range set {
		values = append(values, value)
	}
	sort.Strings(values)
	return values
}
