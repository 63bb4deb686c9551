package hooks

import (
	"context"
	"regexp"
	"strings"

	"github.com/michael-freling/claude-hooks-engine/internal/command"
)

const gitCommandArgsStartIndex = 2 // Skip "git" and subcommand

var (
	defaultProtectedBranches = []string{"main", "master"}

	pushFlagsWithValues = []string{"--repo", "--exec", "--receive-pack", "-o", "--push-option"}

	branchProtectionPattern = regexp.MustCompile(`/repos/[^/]+/[^/]+/branches/.+/protection`)
	repoRulesetPattern      = regexp.MustCompile(`/repos/[^/]+/[^/]+/rulesets`)
	orgRulesetPattern       = regexp.MustCompile(`/orgs/[^/]+/rulesets`)

	prURLPattern    = regexp.MustCompile(`/pull/(\d+)`)
	prNumberPattern = regexp.MustCompile(`^\d+$`)
	apiMergePattern = regexp.MustCompile(`repos/[^/]+/[^/]+/pulls/(\d+)/merge`)
)

// noVerify holds when the command passes --no-verify outside a quoted string.
func noVerify(_ context.Context, event *Event, _ map[string]any) (bool, error) {
	cmd, ok := event.GetStringArg("command")
	if !ok {
		return false, nil
	}
	return containsNoVerifyFlag(cmd), nil
}

// containsNoVerifyFlag checks if a command contains the --no-verify flag.
// It performs basic parsing to avoid false positives in string literals.
func containsNoVerifyFlag(command string) bool {
	tokens := parseCommandTokens(command)
	for _, token := range tokens {
		if token == "--no-verify" {
			return true
		}
	}
	return false
}

// newProtectedBranchPush returns a predicate that holds when any git push in
// the command targets a protected branch. Pushes naming no branch are checked
// against the current branch of the event's working directory; if that
// cannot be determined the push is not considered protected.
func newProtectedBranchPush(git command.GitRunner) BuiltinFunc {
	return func(ctx context.Context, event *Event, params map[string]any) (bool, error) {
		cmd, ok := event.GetStringArg("command")
		if !ok {
			return false, nil
		}

		protected := stringList(params, "branches", defaultProtectedBranches)
		cwd, _ := event.Raw["cwd"].(string)

		for _, subCmd := range splitShellCommands(strings.TrimSpace(cmd)) {
			args := parseTokensStripQuotes(subCmd)
			if len(args) < 2 || args[0] != "git" || args[1] != "push" {
				continue
			}

			target, implicit := pushTarget(args, protected)
			if target {
				return true, nil
			}
			if !implicit {
				continue
			}

			currentBranch, err := git.GetCurrentBranch(ctx, cwd)
			if err != nil {
				return false, err
			}
			if isProtectedBranch(currentBranch, protected) {
				return true, nil
			}
		}

		return false, nil
	}
}

// pushTarget inspects git push arguments. It reports whether a protected
// branch is named, and whether the push relies on the current branch.
func pushTarget(args []string, protected []string) (bool, bool) {
	// --all and --mirror include every branch
	if containsPushAllFlag(args) {
		return true, false
	}

	nonFlagArgs := findNonFlagArgs(args, gitCommandArgsStartIndex, pushFlagsWithValues)

	if containsDeleteFlag(args) {
		for _, arg := range nonFlagArgs {
			if isProtectedBranch(arg, protected) {
				return true, false
			}
		}
	}

	// The first non-flag argument is the remote; the rest are refspecs.
	if len(nonFlagArgs) < 2 {
		return false, true
	}

	implicit := false
	for _, refspec := range nonFlagArgs[1:] {
		target := extractTargetFromRefspec(refspec)
		if target == "HEAD" {
			implicit = true
			continue
		}
		if isProtectedBranch(target, protected) {
			return true, false
		}
	}

	return false, implicit
}

// githubProtectionChange holds for gh api calls that modify branch
// protection or rulesets with DELETE, PUT or PATCH.
func githubProtectionChange(_ context.Context, event *Event, _ map[string]any) (bool, error) {
	cmd, ok := event.GetStringArg("command")
	if !ok {
		return false, nil
	}

	for _, subCmd := range splitShellCommands(cmd) {
		if isModifyingBranchProtection(subCmd) || isModifyingRuleset(subCmd) {
			return true, nil
		}
	}
	return false, nil
}

// isModifyingBranchProtection checks if a command is a gh api call that modifies branch protections.
func isModifyingBranchProtection(command string) bool {
	if !isGhApiCommand(command) || !branchProtectionPattern.MatchString(command) {
		return false
	}
	return isMutatingMethod(extractHTTPMethod(command))
}

// isModifyingRuleset checks if a command is a gh api call that modifies rulesets.
func isModifyingRuleset(command string) bool {
	if !isGhApiCommand(command) {
		return false
	}
	if !repoRulesetPattern.MatchString(command) && !orgRulesetPattern.MatchString(command) {
		return false
	}
	return isMutatingMethod(extractHTTPMethod(command))
}

func isMutatingMethod(method string) bool {
	return method == "DELETE" || method == "PUT" || method == "PATCH"
}

// newProtectedPRMerge returns a predicate that holds when the command merges
// a pull request whose base is a protected branch. The base branch is looked
// up with gh; lookup failures are reported and the merge is not considered
// protected.
func newProtectedPRMerge(gh command.GhRunner) BuiltinFunc {
	return func(ctx context.Context, event *Event, params map[string]any) (bool, error) {
		cmd, ok := event.GetStringArg("command")
		if !ok {
			return false, nil
		}

		protected := stringList(params, "branches", defaultProtectedBranches)
		cwd, _ := event.Raw["cwd"].(string)

		for _, subCmd := range splitShellCommands(cmd) {
			prNumber := extractPRNumber(subCmd)
			if prNumber == "" {
				continue
			}

			baseBranch, err := gh.GetPRBaseBranch(ctx, cwd, prNumber)
			if err != nil {
				return false, err
			}
			if isProtectedBranch(baseBranch, protected) {
				return true, nil
			}
		}

		return false, nil
	}
}

// extractPRNumber extracts the PR number from gh pr merge or gh api merge commands.
// Returns empty string if no PR number is found.
func extractPRNumber(command string) string {
	if prNumber := extractPRNumberFromPRMerge(command); prNumber != "" {
		return prNumber
	}
	return extractPRNumberFromApiMerge(command)
}

// extractPRNumberFromPRMerge extracts PR number from gh pr merge commands.
func extractPRNumberFromPRMerge(command string) string {
	tokens := strings.Fields(command)
	if len(tokens) < 3 {
		return ""
	}

	if tokens[0] != "gh" || tokens[1] != "pr" || tokens[2] != "merge" {
		return ""
	}

	// Only the first non-flag argument names the PR
	for _, token := range tokens[3:] {
		if strings.HasPrefix(token, "-") {
			continue
		}

		if strings.Contains(token, "github.com") {
			if matches := prURLPattern.FindStringSubmatch(token); len(matches) > 1 {
				return matches[1]
			}
			return ""
		}

		if prNumberPattern.MatchString(token) {
			return token
		}
		return ""
	}

	return ""
}

// extractPRNumberFromApiMerge extracts PR number from gh api PUT merge commands.
func extractPRNumberFromApiMerge(command string) string {
	if !isGhApiCommand(command) || extractHTTPMethod(command) != "PUT" {
		return ""
	}

	if matches := apiMergePattern.FindStringSubmatch(command); len(matches) > 1 {
		return matches[1]
	}
	return ""
}
