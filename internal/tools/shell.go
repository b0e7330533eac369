package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// ExecTool runs a shell command and reports its captured output and exit
// code. The raw exit code is surfaced so the result envelope can classify
// non-zero exits as failures.
type ExecTool struct {
	// Workspace is the default working directory for commands.
	Workspace string
	// Timeout bounds a single command; zero means 60 seconds.
	Timeout time.Duration
}

func (t *ExecTool) Name() string { return "exec" }

func (t *ExecTool) Description() string {
	return "Execute a shell command and return its stdout, stderr, and exit code."
}

func (t *ExecTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The shell command to execute",
			},
			"working_dir": map[string]any{
				"type":        "string",
				"description": "Working directory for the command (defaults to the workspace)",
			},
		},
		"required": []string{"command"},
	}
}

// TargetPath reports the directory the command runs in, so the permission
// layer authorizes shell access per directory.
func (t *ExecTool) TargetPath(params map[string]any) (string, bool) {
	dir := GetString(params, "working_dir", "")
	if dir == "" {
		dir = t.Workspace
	}
	if dir == "" {
		return "", false
	}
	return expandPath(dir), true
}

func (t *ExecTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	command := GetString(params, "command", "")
	if command == "" {
		return nil, fmt.Errorf("command is required")
	}

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if dir := GetString(params, "working_dir", t.Workspace); dir != "" {
		cmd.Dir = expandPath(dir)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("command timed out after %s", timeout)
		} else {
			return nil, fmt.Errorf("execute command: %w", err)
		}
	}

	return map[string]any{
		"stdout":    stdout.String(),
		"stderr":    stderr.String(),
		"exit_code": exitCode,
	}, nil
}
