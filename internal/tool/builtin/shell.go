// Package builtin provides a small set of domain-agnostic example tools
// (shell, http, time) used to exercise the Tool Registry contract in the
// cmd/fsmagent demo. None of these are mandated by the engine itself.
package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pocketomega/fsmagent/internal/tool"
)

const (
	shellTimeout   = 30 * time.Second
	maxOutputChars = 8000
)

// dangerousPatterns are command patterns that are blocked for safety.
// Best-effort blocklist, not a security boundary: prevents accidental
// damage from LLM-generated commands, not a determined attacker.
var dangerousPatterns = []string{
	"rm -rf /",
	"rm -r -f /",
	"rm --recursive",
	"rm -rf ~",
	"rm -rf $home",
	"rm -rf ${home}",
	"rm -rf -- /",
	"rm -r -f -- /",
	"mkfs",
	"dd if=",
	"shutdown",
	"reboot",
	"halt",
	"init 0",
	"init 6",
	"systemctl poweroff",
	"systemctl halt",
	"pkill -9",
	"chmod -r 000 /",
	":(){:|:&};:",
	"format c:",
	"format d:",
	"del /s /q c:\\",
	"del /s /q d:\\",
	"rd /s /q c:\\",
	"rd /s /q d:\\",
	"remove-item -recurse c:",
	"remove-item -recurse d:",
}

// RegisterShell installs "shell_exec" into r. Pass enabled=false to keep the
// tool visible to the LLM but always-refusing, rather than omitting it.
func RegisterShell(r *tool.Registry, workDir string, enabled bool) {
	schema := tool.BuildSchema(
		tool.SchemaParam{Name: "command", Type: "string", Description: "the command to run", Required: true},
	)
	r.Register("shell_exec", "Run a shell command and return its combined output", schema,
		func(ctx context.Context, args json.RawMessage) (string, error) {
			return execShell(ctx, workDir, enabled, args)
		})
}

type shellArgs struct {
	Command string `json:"command"`
}

func execShell(ctx context.Context, workDir string, enabled bool, args json.RawMessage) (string, error) {
	if !enabled {
		return "", fmt.Errorf("shell_exec is disabled")
	}

	var a shellArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("parsing arguments: %w", err)
	}
	if a.Command == "" {
		return "", fmt.Errorf("command must not be empty")
	}

	cmdLower := strings.ToLower(a.Command)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(cmdLower, pattern) {
			return "", fmt.Errorf("blocked: command contains dangerous pattern %q", pattern)
		}
	}

	// "kill -9 1" needs a word-boundary guard: plain substring matching would
	// also reject "kill -9 12345" since "kill -9 1" is a prefix of it. Scan
	// every occurrence since a compound command can hide the real one later.
	const killInitPattern = "kill -9 1"
	for search := cmdLower; ; {
		idx := strings.Index(search, killInitPattern)
		if idx < 0 {
			break
		}
		end := idx + len(killInitPattern)
		if end >= len(search) || !isDigitOrAlpha(search[end]) {
			return "", fmt.Errorf("blocked: command contains dangerous pattern %q", killInitPattern)
		}
		search = search[idx+1:]
	}

	ctx, cancel := context.WithTimeout(ctx, shellTimeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/c", a.Command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", a.Command)
	}
	if workDir != "" {
		cmd.Dir = workDir
	}
	cmd.Env = filterEnv(os.Environ())

	output, err := cmd.CombinedOutput()
	outStr := strings.TrimSpace(safeRuneTruncate(string(output), maxOutputChars))

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("command timed out after %v: %s", shellTimeout, outStr)
		}
		if ctx.Err() == context.Canceled {
			return "", fmt.Errorf("command canceled: %s", outStr)
		}
		return "", fmt.Errorf("command exited with error: %w: %s", err, outStr)
	}
	return outStr, nil
}

// safeRuneTruncate truncates s to maxRunes runes in a single pass, preserving
// valid UTF-8 without extra allocation for strings that fit.
func safeRuneTruncate(s string, maxRunes int) string {
	count := 0
	for i := range s {
		count++
		if count > maxRunes {
			totalRunes := maxRunes + utf8.RuneCountInString(s[i:])
			return s[:i] + fmt.Sprintf("\n... (truncated, %d chars total)", totalRunes)
		}
	}
	return s
}

var sensitiveEnvSuffixes = []string{
	"_KEY", "_SECRET", "_TOKEN", "_PASSWORD", "_PASSWD",
	"_PASSPHRASE", "_CREDENTIALS", "_AUTH", "_DSN",
}

var sensitiveEnvPrefixes = []string{
	"DATABASE_URL", "REDIS_URL", "MONGO_URL",
}

// filterEnv returns a copy of env with sensitive variables removed.
func filterEnv(env []string) []string {
	filtered := make([]string, 0, len(env))
	for _, e := range env {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) < 2 {
			continue
		}
		nameUpper := strings.ToUpper(parts[0])
		sensitive := false
		for _, suffix := range sensitiveEnvSuffixes {
			if strings.HasSuffix(nameUpper, suffix) {
				sensitive = true
				break
			}
		}
		if !sensitive {
			for _, prefix := range sensitiveEnvPrefixes {
				if strings.HasPrefix(nameUpper, prefix) {
					sensitive = true
					break
				}
			}
		}
		if !sensitive {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// isDigitOrAlpha reports whether b is an ASCII digit or lowercase letter.
func isDigitOrAlpha(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z')
}
