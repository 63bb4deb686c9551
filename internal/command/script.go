package command

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveScript resolves a script reference to an existing file path.
// Home-relative and absolute references are used as-is; relative references
// are joined to root when one is configured.
func ResolveScript(root, script string) (string, error) {
	if strings.TrimSpace(script) == "" {
		return "", fmt.Errorf("%w: empty script path", ErrScriptNotFound)
	}

	path := ExpandHome(script)
	if !filepath.IsAbs(path) && root != "" {
		path = filepath.Join(root, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrScriptNotFound, path)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrScriptNotFound, path)
	}

	return path, nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
