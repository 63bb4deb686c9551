package command

//go:generate mockgen -source=gh.go -destination=mock_gh.go -package=command

import (
	"context"
	"fmt"
	"strings"
)

// GhRunner abstracts gh CLI command execution for testing
type GhRunner interface {
	// GetPRBaseBranch returns the base branch name for a pull request
	GetPRBaseBranch(ctx context.Context, dir string, prNumber string) (string, error)
}

// ghRunner implements GhRunner interface
type ghRunner struct {
	runner Runner
}

// NewGhRunner creates a new gh runner
func NewGhRunner(runner Runner) GhRunner {
	return &ghRunner{
		runner: runner,
	}
}

// GetPRBaseBranch returns the base branch name for the specified PR number
func (g *ghRunner) GetPRBaseBranch(ctx context.Context, dir string, prNumber string) (string, error) {
	result, err := g.runner.Run(ctx, Request{
		Name: "gh",
		Args: []string{"pr", "view", prNumber, "--json", "baseRefName", "--jq", ".baseRefName"},
		Dir:  dir,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get PR base branch: %w", err)
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("failed to get PR base branch: exit status %d (stderr: %s)", result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	return strings.TrimSpace(result.Stdout), nil
}
