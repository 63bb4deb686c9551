package command

//go:generate mockgen -source=git.go -destination=mock_git.go -package=command

import (
	"context"
	"fmt"
	"strings"
)

// GitRunner abstracts git command execution
type GitRunner interface {
	// GetCurrentBranch returns the current git branch name
	GetCurrentBranch(ctx context.Context, dir string) (string, error)
}

type gitRunner struct {
	runner Runner
}

// NewGitRunner creates a new GitRunner instance
func NewGitRunner(runner Runner) GitRunner {
	return &gitRunner{
		runner: runner,
	}
}

// GetCurrentBranch returns the current git branch name
func (g *gitRunner) GetCurrentBranch(ctx context.Context, dir string) (string, error) {
	result, err := g.runner.Run(ctx, Request{
		Name: "git",
		Args: []string{"rev-parse", "--abbrev-ref", "HEAD"},
		Dir:  dir,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("failed to get current branch: exit status %d (stderr: %s)", result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	return strings.TrimSpace(result.Stdout), nil
}
