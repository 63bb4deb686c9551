package hooks

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/michael-freling/claude-hooks-engine/internal/command"
	"github.com/michael-freling/claude-hooks-engine/internal/logstore"
	"github.com/michael-freling/claude-hooks-engine/internal/ruleset"
)

func newTestExecutor(t *testing.T, runner command.Runner, logFile string) *Executor {
	evaluator := newTestEvaluator(t, runner)
	return NewExecutor(evaluator, runner, 30*time.Second, logFile, discardLogger())
}

func TestExecutor_Decisions(t *testing.T) {
	cfg := ruleset.NewConfig()
	cfg.Actions["block-with"] = ruleset.Definition{
		"type":    "decision",
		"message": "{{reason}} ({{tool_name}})",
		"params":  map[string]any{"reason": "default reason"},
	}
	cfg.Actions["loop"] = ruleset.Definition{"ref": "loop"}

	tests := []struct {
		name string
		def  ruleset.Definition
		want *Response
	}{
		{
			name: "decision defaults to block",
			def:  ruleset.Definition{"type": "decision", "message": "blocked: {{tool_name}}"},
			want: Block("blocked: Bash"),
		},
		{
			name: "deny blocks",
			def:  ruleset.Definition{"type": "decision", "decision": "deny", "message": "no {{command}}"},
			want: Block("no rm -rf /"),
		},
		{
			name: "allow",
			def:  ruleset.Definition{"type": "decision", "decision": "allow"},
			want: Allow(""),
		},
		{
			name: "ask",
			def:  ruleset.Definition{"type": "decision", "decision": "ask", "message": "sure?"},
			want: Ask("sure?"),
		},
		{
			name: "message from params",
			def:  ruleset.Definition{"type": "decision", "params": map[string]any{"message": "from {{who}}", "who": "params"}},
			want: Block("from params"),
		},
		{
			name: "unknown decision does nothing",
			def:  ruleset.Definition{"type": "decision", "decision": "maybe"},
			want: nil,
		},
		{
			name: "unknown type does nothing",
			def:  ruleset.Definition{"type": "teleport"},
			want: nil,
		},
		{
			name: "empty does nothing",
			def:  ruleset.Definition{},
			want: nil,
		},
		{
			name: "invalid definition does nothing",
			def:  ruleset.Definition{"type": "chain", "actions": "nope"},
			want: nil,
		},
		{
			name: "chain returns first response",
			def: ruleset.Definition{"type": "chain", "actions": []any{
				map[string]any{"type": "teleport"},
				map[string]any{"type": "decision", "decision": "ask", "message": "first"},
				map[string]any{"type": "decision", "decision": "deny", "message": "second"},
			}},
			want: Ask("first"),
		},
		{
			name: "chain without responses",
			def: ruleset.Definition{"type": "chain", "actions": []any{
				map[string]any{"type": "teleport"},
			}},
			want: nil,
		},
		{
			name: "conditional then",
			def: ruleset.Definition{
				"type":      "conditional",
				"condition": map[string]any{"type": "equals", "field": "tool_name", "value": "Bash"},
				"then":      map[string]any{"type": "decision", "decision": "deny", "message": "then"},
				"else":      map[string]any{"type": "decision", "decision": "allow", "message": "else"},
			},
			want: Block("then"),
		},
		{
			name: "conditional else",
			def: ruleset.Definition{
				"type":      "conditional",
				"condition": map[string]any{"type": "equals", "field": "tool_name", "value": "Read"},
				"then":      map[string]any{"type": "decision", "decision": "deny", "message": "then"},
				"else":      map[string]any{"type": "decision", "decision": "allow", "message": "else"},
			},
			want: Allow("else"),
		},
		{
			name: "conditional without else",
			def: ruleset.Definition{
				"type":      "conditional",
				"condition": map[string]any{"type": "equals", "field": "tool_name", "value": "Read"},
				"then":      map[string]any{"type": "decision", "decision": "deny"},
			},
			want: nil,
		},
		{
			name: "ref uses shared params",
			def:  ruleset.Definition{"ref": "block-with"},
			want: Block("default reason (Bash)"),
		},
		{
			name: "ref params override shared params",
			def:  ruleset.Definition{"ref": "block-with", "params": map[string]any{"reason": "custom reason"}},
			want: Block("custom reason (Bash)"),
		},
		{
			name: "unknown ref does nothing",
			def:  ruleset.Definition{"ref": "missing"},
			want: nil,
		},
		{
			name: "self reference does nothing",
			def:  ruleset.Definition{"ref": "loop"},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := newTestExecutor(t, nil, "")
			got := executor.ExecuteDefinition(context.Background(), tt.def, bashEvent("rm -rf /"), cfg)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExecutor_RefDoesNotMutateSharedDefinition(t *testing.T) {
	cfg := ruleset.NewConfig()
	cfg.Actions["block-with"] = ruleset.Definition{
		"type":    "decision",
		"message": "{{reason}}",
		"params":  map[string]any{"reason": "default"},
	}
	executor := newTestExecutor(t, nil, "")

	first := executor.ExecuteDefinition(context.Background(), ruleset.Definition{"ref": "block-with", "params": map[string]any{"reason": "custom"}}, bashEvent("ls"), cfg)
	second := executor.ExecuteDefinition(context.Background(), ruleset.Definition{"ref": "block-with"}, bashEvent("ls"), cfg)

	assert.Equal(t, Block("custom"), first)
	assert.Equal(t, Block("default"), second)
	assert.Equal(t, map[string]any{"reason": "default"}, cfg.Actions["block-with"]["params"])
}

func TestExecutor_Script(t *testing.T) {
	scriptsDir := t.TempDir()
	scriptPath := writeScript(t, scriptsDir, "guard.sh", "exit 0")
	event := bashEvent("make deploy")

	tests := []struct {
		name      string
		def       ruleset.Definition
		setupMock func(m *command.MockRunner)
		want      *Response
	}{
		{
			name: "exit 2 blocks with stderr",
			def:  ruleset.Definition{"type": "script", "script": "guard.sh", "params": map[string]any{"level": 3, "channel": "ops"}},
			setupMock: func(m *command.MockRunner) {
				m.EXPECT().Run(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, req command.Request) (*command.Result, error) {
						assert.Equal(t, scriptPath, req.Name)
						assert.Equal(t, []string{"HOOK_CHANNEL=ops", "HOOK_LEVEL=3"}, req.Env)
						assert.Equal(t, 30*time.Second, req.Timeout)
						assert.JSONEq(t, `{"hook_event_name":"PreToolUse","session_id":"session-1","tool_name":"Bash","tool_input":{"command":"make deploy"}}`, string(req.Stdin))
						return &command.Result{ExitCode: 2, Stderr: "deploys are frozen\n"}, nil
					})
			},
			want: Block("deploys are frozen"),
		},
		{
			name: "exit 2 without stderr uses default message",
			def:  ruleset.Definition{"type": "script", "script": "guard.sh", "timeout": 3},
			setupMock: func(m *command.MockRunner) {
				m.EXPECT().Run(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, req command.Request) (*command.Result, error) {
						assert.Equal(t, 3*time.Second, req.Timeout)
						assert.Empty(t, req.Env)
						return &command.Result{ExitCode: 2}, nil
					})
			},
			want: Block(defaultBlockMessage),
		},
		{
			name: "exit 0 does nothing",
			def:  ruleset.Definition{"type": "script", "script": "guard.sh"},
			setupMock: func(m *command.MockRunner) {
				m.EXPECT().Run(gomock.Any(), gomock.Any()).Return(&command.Result{ExitCode: 0}, nil)
			},
			want: nil,
		},
		{
			name: "other exit codes do nothing",
			def:  ruleset.Definition{"type": "script", "script": "guard.sh"},
			setupMock: func(m *command.MockRunner) {
				m.EXPECT().Run(gomock.Any(), gomock.Any()).Return(&command.Result{ExitCode: 1, Stderr: "oops"}, nil)
			},
			want: nil,
		},
		{
			name: "timeout does nothing",
			def:  ruleset.Definition{"type": "script", "script": "guard.sh"},
			setupMock: func(m *command.MockRunner) {
				m.EXPECT().Run(gomock.Any(), gomock.Any()).Return(nil, command.ErrScriptTimeout)
			},
			want: nil,
		},
		{
			name: "async starts without waiting",
			def:  ruleset.Definition{"type": "script", "script": "guard.sh", "async": true, "params": map[string]any{"channel": "ops"}},
			setupMock: func(m *command.MockRunner) {
				m.EXPECT().Start(command.Request{
					Name: scriptPath,
					Env:  []string{"HOOK_CHANNEL=ops"},
				}).Return(nil)
			},
			want: nil,
		},
		{
			name: "async start failure does nothing",
			def:  ruleset.Definition{"type": "script", "script": "guard.sh", "async": true},
			setupMock: func(m *command.MockRunner) {
				m.EXPECT().Start(gomock.Any()).Return(errors.New("fork failed"))
			},
			want: nil,
		},
		{
			name:      "missing script does nothing",
			def:       ruleset.Definition{"type": "script", "script": "missing.sh"},
			setupMock: func(m *command.MockRunner) {},
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			runner := command.NewMockRunner(ctrl)
			tt.setupMock(runner)
			executor := newTestExecutor(t, runner, "")

			cfg := ruleset.NewConfig()
			cfg.ScriptsDir = scriptsDir

			got := executor.ExecuteDefinition(context.Background(), tt.def, event, cfg)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExecutor_Script_RealProcess(t *testing.T) {
	scriptsDir := t.TempDir()
	writeScript(t, scriptsDir, "guard.sh", `echo "blocked for $HOOK_TEAM" >&2; exit 2`)

	executor := NewExecutor(nil, command.NewRunner(), 5*time.Second, "", discardLogger())
	cfg := ruleset.NewConfig()
	cfg.ScriptsDir = scriptsDir

	got := executor.ExecuteDefinition(context.Background(),
		ruleset.Definition{"type": "script", "script": "guard.sh", "params": map[string]any{"team": "infra"}},
		bashEvent("ls"), cfg)

	assert.Equal(t, Block("blocked for infra"), got)
}

func TestExecutor_Log(t *testing.T) {
	dir := t.TempDir()
	defaultLog := filepath.Join(dir, "default.jsonl")
	customLog := filepath.Join(dir, "nested", "custom.jsonl")
	executor := newTestExecutor(t, nil, defaultLog)
	event := fileEvent("Write", "/tmp/out.txt")

	got := executor.ExecuteDefinition(context.Background(), ruleset.Definition{"type": "log"}, event, ruleset.NewConfig())
	assert.Nil(t, got)

	got = executor.ExecuteDefinition(context.Background(), ruleset.Definition{"type": "log", "params": map[string]any{"log_file": customLog}}, event, ruleset.NewConfig())
	assert.Nil(t, got)

	for _, path := range []string{defaultLog, customLog} {
		records, err := logstore.New(path).Tail(10)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "PreToolUse", records[0].EventType)
		assert.Equal(t, "Write", records[0].ToolName)
		assert.Equal(t, "session-1", records[0].SessionID)
		assert.Equal(t, "/tmp/out.txt", records[0].ToolInput["file_path"])
		assert.NotEmpty(t, records[0].ID)
	}
}

func TestExecutor_LogThenDecide(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "hooks.jsonl")
	executor := newTestExecutor(t, nil, logFile)

	got := executor.ExecuteDefinition(context.Background(), ruleset.Definition{"type": "chain", "actions": []any{
		map[string]any{"type": "log"},
		map[string]any{"type": "decision", "decision": "deny", "message": "logged and denied"},
	}}, bashEvent("ls"), ruleset.NewConfig())

	assert.Equal(t, Block("logged and denied"), got)
	records, err := logstore.New(logFile).Tail(10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
