package hooks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dlclark/regexp2"

	"github.com/michael-freling/claude-hooks-engine/internal/command"
)

// BuiltinFunc is a named predicate. It may return a result together with an
// error describing parts of params that could not be used.
type BuiltinFunc func(ctx context.Context, event *Event, params map[string]any) (bool, error)

// Builtin describes one entry of the builtin catalog.
type Builtin struct {
	Name        string
	Description string
	Func        BuiltinFunc
}

// Builtins is the closed catalog of builtin predicates.
type Builtins struct {
	entries map[string]Builtin
}

var (
	defaultSensitivePatterns = []string{
		"**/.env*",
		"**/*.pem",
		"**/*.key",
		"**/*secret*",
		"**/credentials*",
		"**/.ssh/*",
		"**/.aws/*",
	}

	defaultDangerousPatterns = []string{
		`rm\s+.*-[rf]`,
		`>\s*/`,
		`sudo\s`,
		`chmod\s+777`,
		`curl.*\|\s*bash`,
		`wget.*\|\s*bash`,
	}
)

// NewBuiltins returns the catalog. git resolves the current branch for
// pushes that do not name one; gh resolves the base branch of pull requests.
func NewBuiltins(git command.GitRunner, gh command.GhRunner) *Builtins {
	catalog := []Builtin{
		{
			Name:        "sensitive-file",
			Description: "file_path matches a secret or credential file pattern",
			Func:        sensitiveFile,
		},
		{
			Name:        "dangerous-command",
			Description: "command matches a destructive shell pattern",
			Func:        dangerousCommand,
		},
		{
			Name:        "no-verify",
			Description: "command passes --no-verify to skip git hooks",
			Func:        noVerify,
		},
		{
			Name:        "protected-branch-push",
			Description: "command pushes to or deletes a protected branch",
			Func:        newProtectedBranchPush(git),
		},
		{
			Name:        "protected-pr-merge",
			Description: "command merges a pull request into a protected branch",
			Func:        newProtectedPRMerge(gh),
		},
		{
			Name:        "github-protection-change",
			Description: "command modifies branch protection or rulesets through gh api",
			Func:        githubProtectionChange,
		},
	}

	entries := make(map[string]Builtin, len(catalog))
	for _, builtin := range catalog {
		entries[builtin.Name] = builtin
	}
	return &Builtins{entries: entries}
}

// List returns the catalog sorted by name.
func (b *Builtins) List() []Builtin {
	list := make([]Builtin, 0, len(b.entries))
	for _, builtin := range b.entries {
		list = append(list, builtin)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}

// Has reports whether name is in the catalog.
func (b *Builtins) Has(name string) bool {
	_, ok := b.entries[name]
	return ok
}

// Evaluate runs the named predicate.
func (b *Builtins) Evaluate(ctx context.Context, name string, event *Event, params map[string]any) (bool, error) {
	builtin, ok := b.entries[name]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownBuiltin, name)
	}
	return builtin.Func(ctx, event, params)
}

func sensitiveFile(_ context.Context, event *Event, params map[string]any) (bool, error) {
	path, ok := event.GetStringArg("file_path")
	if !ok || path == "" {
		return false, nil
	}

	path = filepath.ToSlash(path)
	candidates := []string{path}
	if trimmed := strings.TrimLeft(path, "/"); trimmed != path && trimmed != "" {
		candidates = append(candidates, trimmed)
	}

	var errs []error
	for _, pattern := range stringList(params, "patterns", defaultSensitivePatterns) {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrMalformedPattern, pattern))
			continue
		}
		// doublestar keeps * within one segment; the fnmatch form lets it
		// cross "/" so files nested under a matched directory count too.
		crossing, _ := compileGlob(pattern)
		for _, candidate := range candidates {
			if doublestar.MatchUnvalidated(pattern, candidate) {
				return true, errors.Join(errs...)
			}
			if crossing != nil && crossing.Match(candidate) {
				return true, errors.Join(errs...)
			}
		}
	}

	return false, errors.Join(errs...)
}

func dangerousCommand(_ context.Context, event *Event, params map[string]any) (bool, error) {
	cmd, ok := event.GetStringArg("command")
	if !ok || cmd == "" {
		return false, nil
	}

	var errs []error
	for _, pattern := range stringList(params, "patterns", defaultDangerousPatterns) {
		re, err := compileRegex(pattern, regexp2.IgnoreCase)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		matched, err := re.MatchString(cmd)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if matched {
			return true, errors.Join(errs...)
		}
	}

	return false, errors.Join(errs...)
}

// stringList reads a list of strings from params[key], falling back to
// defaults when the key is absent or not a list of strings.
func stringList(params map[string]any, key string, defaults []string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case string:
		return []string{v}
	case []any:
		values := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return defaults
			}
			values = append(values, s)
		}
		return values
	default:
		return defaults
	}
}
