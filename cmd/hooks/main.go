package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/michael-freling/claude-hooks-engine/internal/command"
	"github.com/michael-freling/claude-hooks-engine/internal/config"
	"github.com/michael-freling/claude-hooks-engine/internal/hooks"
	"github.com/michael-freling/claude-hooks-engine/internal/ruleset"
)

// exitFunc is replaced in tests.
var exitFunc = os.Exit

type options struct {
	configPath string
	logLevel   string
	sources    []string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "claude-hooks",
		Short: "Claude Code hook engine driven by YAML rules",
		Long: `A CLI tool that decides whether Claude Code may proceed with a hook event.
Rules, shared conditions and shared actions are read from layered YAML sources;
later sources override earlier ones by id.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "engine settings file (default ~/.claude-hooks/engine.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "diagnostics level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringArrayVar(&opts.sources, "source", nil, "rule source directory, repeatable; replaces the configured sources")

	rootCmd.AddCommand(newDispatchCmd(opts))
	rootCmd.AddCommand(newEventCmd(opts, "pre-tool-use", hooks.PreToolUse))
	rootCmd.AddCommand(newEventCmd(opts, "post-tool-use", hooks.PostToolUse))
	rootCmd.AddCommand(newTestCmd(opts))
	rootCmd.AddCommand(newListCmd(opts))
	rootCmd.AddCommand(newExplainCmd(opts))
	rootCmd.AddCommand(newValidateCmd(opts))
	rootCmd.AddCommand(newLogsCmd(opts))

	return rootCmd
}

// app holds the wired engine for one invocation.
type app struct {
	settings *config.Settings
	logger   *slog.Logger
	store    *ruleset.Store
	builtins *hooks.Builtins
	engine   *hooks.Engine
}

func newApp(opts *options, stderr io.Writer) (*app, error) {
	settings, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if opts.logLevel != "" {
		settings.LogLevel = opts.logLevel
	}
	if len(opts.sources) > 0 {
		settings.Sources = opts.sources
	}

	logger, err := config.NewLogger(stderr, settings.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	runner := command.NewRunner()
	builtins := hooks.NewBuiltins(command.NewGitRunner(runner), command.NewGhRunner(runner))
	evaluator := hooks.NewEvaluator(runner, builtins, settings.ConditionTimeout, logger)
	executor := hooks.NewExecutor(evaluator, runner, settings.ActionTimeout, settings.LogFile, logger)
	store := ruleset.NewStore(ruleset.NewLoader(logger, settings.Sources...))

	return &app{
		settings: settings,
		logger:   logger,
		store:    store,
		builtins: builtins,
		engine:   hooks.NewEngine(store, evaluator, executor, logger),
	}, nil
}
