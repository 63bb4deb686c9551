package hooks

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func toolEvent(toolName string, toolInput map[string]any) *Event {
	return NewEvent(map[string]any{
		"hook_event_name": "PreToolUse",
		"tool_name":       toolName,
		"tool_input":      toolInput,
		"session_id":      "session-1",
	}, "")
}

func bashEvent(command string) *Event {
	return toolEvent("Bash", map[string]any{"command": command})
}

func fileEvent(toolName, path string) *Event {
	return toolEvent(toolName, map[string]any{"file_path": path})
}

// writeScript creates an executable shell script in dir.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}
