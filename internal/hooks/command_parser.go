package hooks

import (
	"strings"
)

// isGhApiCommand checks if the command starts with "gh api".
func isGhApiCommand(command string) bool {
	tokens := strings.Fields(command)
	if len(tokens) < 2 {
		return false
	}
	return tokens[0] == "gh" && tokens[1] == "api"
}

// extractHTTPMethod extracts the HTTP method from a gh api command.
// Returns empty string if no method is specified (defaults to GET).
func extractHTTPMethod(command string) string {
	tokens := strings.Fields(command)

	for i := 0; i < len(tokens); i++ {
		switch {
		case tokens[i] == "-X" || tokens[i] == "--method":
			if i+1 < len(tokens) {
				return strings.ToUpper(strings.Trim(tokens[i+1], `"'`))
			}
		case strings.HasPrefix(tokens[i], "--method="):
			return strings.ToUpper(strings.TrimPrefix(tokens[i], "--method="))
		case strings.HasPrefix(tokens[i], "-X") && len(tokens[i]) > 2:
			return strings.ToUpper(tokens[i][2:])
		}
	}

	return ""
}

// isProtectedBranch checks if a branch name is one of the protected branches.
func isProtectedBranch(branch string, protected []string) bool {
	branch = strings.TrimSpace(branch)
	if branch == "" {
		return false
	}
	for _, name := range protected {
		if branch == name {
			return true
		}
	}
	return false
}

// splitShellCommands splits a command line into simple commands on shell
// operators and subshell parentheses outside quotes. Redirections such as
// 2>&1 are kept intact.
func splitShellCommands(command string) []string {
	var commands []string
	var current strings.Builder
	inSingleQuote := false
	inDoubleQuote := false

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			commands = append(commands, s)
		}
		current.Reset()
	}

	for i := 0; i < len(command); i++ {
		ch := command[i]

		switch {
		case ch == '\'' && !inDoubleQuote:
			inSingleQuote = !inSingleQuote
			current.WriteByte(ch)
		case ch == '"' && !inSingleQuote:
			inDoubleQuote = !inDoubleQuote
			current.WriteByte(ch)
		case inSingleQuote || inDoubleQuote:
			current.WriteByte(ch)
		case ch == '&' && i > 0 && (command[i-1] == '>' || command[i-1] == '<'):
			current.WriteByte(ch)
		case ch == ';' || ch == '|' || ch == '&' || ch == '\n' || ch == '(' || ch == ')':
			flush()
		default:
			current.WriteByte(ch)
		}
	}
	flush()

	return commands
}

// containsPushAllFlag checks for --all or --mirror, which push every branch.
func containsPushAllFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--all" || arg == "--mirror" {
			return true
		}
	}
	return false
}

// containsDeleteFlag checks for --delete or -d.
func containsDeleteFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--delete" || arg == "-d" {
			return true
		}
	}
	return false
}

// extractTargetFromRefspec returns the destination branch of a refspec.
// "+src:refs/heads/main" and ":main" both yield "main"; a refspec without
// a colon pushes to the branch of the same name.
func extractTargetFromRefspec(refspec string) string {
	refspec = strings.TrimPrefix(refspec, "+")
	if i := strings.LastIndex(refspec, ":"); i >= 0 {
		refspec = refspec[i+1:]
	}
	return strings.TrimPrefix(refspec, "refs/heads/")
}

// parseCommandTokens parses a command string into tokens, respecting quoted strings.
// Quotes are included in the returned tokens to preserve the original token structure.
func parseCommandTokens(command string) []string {
	return parseTokens(command, true)
}

// parseTokensStripQuotes parses a command string into tokens, stripping quotes.
// Single and double quotes are removed from the returned tokens.
func parseTokensStripQuotes(command string) []string {
	return parseTokens(command, false)
}

// parseTokens parses a command string into tokens, respecting quoted strings.
// If keepQuotes is true, quotes are included in tokens; otherwise they are stripped.
func parseTokens(command string, keepQuotes bool) []string {
	var tokens []string
	var current strings.Builder
	inSingleQuote := false
	inDoubleQuote := false

	for i := 0; i < len(command); i++ {
		ch := command[i]

		switch ch {
		case '\'':
			if !inDoubleQuote {
				inSingleQuote = !inSingleQuote
				if keepQuotes {
					current.WriteByte(ch)
				}
			} else {
				current.WriteByte(ch)
			}
		case '"':
			if !inSingleQuote {
				inDoubleQuote = !inDoubleQuote
				if keepQuotes {
					current.WriteByte(ch)
				}
			} else {
				current.WriteByte(ch)
			}
		case ' ', '\t', '\n', '\r':
			if !inSingleQuote && !inDoubleQuote {
				if current.Len() > 0 {
					tokens = append(tokens, current.String())
					current.Reset()
				}
			} else {
				current.WriteByte(ch)
			}
		default:
			current.WriteByte(ch)
		}
	}

	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens
}

// findNonFlagArgs filters out flags and their values from an argument list.
// It returns only the non-flag arguments starting from startIndex.
// flagsWithValues is a list of flags that take a value (e.g., "--repo", "--exec").
func findNonFlagArgs(args []string, startIndex int, flagsWithValues []string) []string {
	var nonFlagArgs []string
	skipNext := false

	for i := startIndex; i < len(args); i++ {
		arg := args[i]

		if skipNext {
			skipNext = false
			continue
		}

		if strings.HasPrefix(arg, "-") {
			for _, flag := range flagsWithValues {
				if arg == flag {
					skipNext = true
					break
				}
			}
			continue
		}

		nonFlagArgs = append(nonFlagArgs, arg)
	}

	return nonFlagArgs
}
