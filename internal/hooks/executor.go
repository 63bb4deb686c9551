package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/michael-freling/claude-hooks-engine/internal/command"
	"github.com/michael-freling/claude-hooks-engine/internal/logstore"
	"github.com/michael-freling/claude-hooks-engine/internal/ruleset"
)

// defaultBlockMessage is used when a blocking script writes nothing to stderr.
const defaultBlockMessage = "Blocked by script"

// scriptBlockExitCode is the script exit status that blocks the operation.
const scriptBlockExitCode = 2

// Executor runs actions. A nil response means the action did not decide.
type Executor struct {
	evaluator *Evaluator
	runner    command.Runner
	timeout   time.Duration
	logFile   string
	logger    *slog.Logger
}

// NewExecutor creates an executor. timeout bounds synchronous scripts that
// do not set their own; logFile is the default target of log actions.
func NewExecutor(evaluator *Evaluator, runner command.Runner, timeout time.Duration, logFile string, logger *slog.Logger) *Executor {
	return &Executor{
		evaluator: evaluator,
		runner:    runner,
		timeout:   timeout,
		logFile:   logFile,
		logger:    logger,
	}
}

// ExecuteDefinition parses and runs an authored action.
func (x *Executor) ExecuteDefinition(ctx context.Context, def ruleset.Definition, event *Event, cfg *ruleset.Config) *Response {
	action, err := ParseAction(def)
	if err != nil {
		x.logger.Warn("invalid action", "error", err)
		return nil
	}
	return x.Execute(ctx, action, event, cfg)
}

// Execute runs action and returns its response, or nil.
func (x *Executor) Execute(ctx context.Context, action Action, event *Event, cfg *ruleset.Config) *Response {
	return x.execute(ctx, action, event, cfg, 0)
}

func (x *Executor) execute(ctx context.Context, action Action, event *Event, cfg *ruleset.Config, depth int) *Response {
	if depth > maxDepth {
		x.logger.Warn("action not executed", "error", ErrMaxDepth)
		return nil
	}

	switch a := action.(type) {
	case nil:
		return nil
	case DecisionAction:
		return x.decide(a, event)
	case ScriptAction:
		return x.runScript(ctx, a, event, cfg)
	case ChainAction:
		for _, child := range a.Actions {
			if response := x.execute(ctx, child, event, cfg, depth+1); response != nil {
				return response
			}
		}
		return nil
	case ConditionalAction:
		matched, err := x.evaluator.evaluate(ctx, a.Condition, event, cfg, depth+1)
		if err != nil {
			x.logger.Warn("action not executed", "error", err)
			return nil
		}
		if matched {
			return x.execute(ctx, a.Then, event, cfg, depth+1)
		}
		return x.execute(ctx, a.Else, event, cfg, depth+1)
	case LogAction:
		x.appendLog(ctx, a, event)
		return nil
	case RefAction:
		return x.executeRef(ctx, a, event, cfg, depth)
	case UnknownAction:
		x.logger.Warn("unknown action type", "type", a.Type)
		return nil
	default:
		x.logger.Warn("unsupported action", "action", fmt.Sprintf("%T", action))
		return nil
	}
}

func (x *Executor) decide(a DecisionAction, event *Event) *Response {
	message := a.Message
	if message == "" {
		message = stringify(a.Params["message"])
	}
	message = renderTemplate(message, templateContext(event, a.Params))

	switch a.Decision {
	case "block", "deny":
		return Block(message)
	case "allow":
		return Allow(message)
	case "ask":
		return Ask(message)
	default:
		x.logger.Warn("unknown decision", "decision", a.Decision)
		return nil
	}
}

func (x *Executor) runScript(ctx context.Context, a ScriptAction, event *Event, cfg *ruleset.Config) *Response {
	path, err := command.ResolveScript(cfg.ScriptsDir, a.Script)
	if err != nil {
		x.logger.Warn("script action not executed", "error", err)
		return nil
	}

	env := scriptEnv(a.Params)
	if a.Async {
		if err := x.runner.Start(command.Request{Name: path, Env: env}); err != nil {
			x.logger.Warn("async script action failed", "script", path, "error", err)
		}
		return nil
	}

	stdin, err := json.Marshal(event.Raw)
	if err != nil {
		x.logger.Warn("script action not executed", "script", path, "error", err)
		return nil
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = x.timeout
	}

	result, err := x.runner.Run(ctx, command.Request{
		Name:    path,
		Stdin:   stdin,
		Env:     env,
		Timeout: timeout,
	})
	if err != nil {
		x.logger.Warn("script action failed", "script", path, "error", err)
		return nil
	}

	x.logger.Debug("script action finished", "script", path, "exit_code", result.ExitCode)
	if result.ExitCode != scriptBlockExitCode {
		return nil
	}

	message := strings.TrimSpace(result.Stderr)
	if message == "" {
		message = defaultBlockMessage
	}
	return Block(message)
}

// scriptEnv exports params as HOOK_<NAME>=value, sorted by name.
func scriptEnv(params map[string]any) []string {
	if len(params) == 0 {
		return nil
	}

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, key := range keys {
		env = append(env, "HOOK_"+strings.ToUpper(key)+"="+stringify(params[key]))
	}
	return env
}

func (x *Executor) appendLog(ctx context.Context, a LogAction, event *Event) {
	path := x.logFile
	if custom := stringify(a.Params["log_file"]); custom != "" {
		path = custom
	}
	path = command.ExpandHome(path)

	err := logstore.New(path).Append(ctx, logstore.Record{
		EventType: event.Kind,
		ToolName:  event.ToolName,
		ToolInput: event.ToolInput,
		SessionID: event.SessionID,
	})
	if err != nil {
		x.logger.Warn("log action failed", "path", path, "error", err)
	}
}

func (x *Executor) executeRef(ctx context.Context, a RefAction, event *Event, cfg *ruleset.Config, depth int) *Response {
	base, ok := cfg.Actions[a.Name]
	if !ok {
		x.logger.Warn("action not executed", "ref", a.Name, "error", ErrUnknownReference)
		return nil
	}

	resolved := make(ruleset.Definition, len(base))
	for key, value := range base {
		resolved[key] = value
	}
	if len(a.Params) > 0 {
		baseParams, _ := base["params"].(map[string]any)
		params := make(map[string]any, len(baseParams)+len(a.Params))
		for key, value := range baseParams {
			params[key] = value
		}
		for key, value := range a.Params {
			params[key] = value
		}
		resolved["params"] = params
	}

	action, err := ParseAction(resolved)
	if err != nil {
		x.logger.Warn("invalid action", "ref", a.Name, "error", err)
		return nil
	}
	return x.execute(ctx, action, event, cfg, depth+1)
}
