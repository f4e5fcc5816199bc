package workspace

// tasks.go — running configured or ad-hoc shell commands in the project root.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"time"

	"github.com/hide-org/hide-mcp/internal/config"
)

var (
	ErrTaskArgs     = errors.New("provide either a command or an alias")
	ErrUnknownTask  = errors.New("unknown task alias")
	ErrTaskTimedOut = errors.New("task timed out")
)

// TaskResult is the outcome of a finished command.
type TaskResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (r *TaskResult) String() string {
	return fmt.Sprintf("exit code: %d\nstdout: %s\nstderr: %s", r.ExitCode, r.Stdout, r.Stderr)
}

// Tasks returns the configured tasks.
func (m *Manager) Tasks() []config.Task {
	tasks := make([]config.Task, len(m.cfg.Tasks))
	copy(tasks, m.cfg.Tasks)
	return tasks
}

// RunTask runs command, or the task registered under alias, with sh -c in
// the project root. A non-zero exit is reported in the result, not as an
// error. timeout <= 0 uses the configured task timeout.
func (m *Manager) RunTask(ctx context.Context, command, alias string, timeout time.Duration) (*TaskResult, error) {
	if (command == "") == (alias == "") {
		return nil, ErrTaskArgs
	}
	if alias != "" {
		task, ok := m.cfg.Task(alias)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTask, alias)
		}
		command = task.Command
	}
	if timeout <= 0 {
		timeout = m.cfg.TaskTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = m.root
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Background children may hold the pipes open after sh exits.
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%w after %s: %s", ErrTaskTimedOut, timeout, command)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return nil, fmt.Errorf("run %q: %w", command, err)
	}

	result := &TaskResult{
		ExitCode: exitCode(err),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	log.Printf("task %q exited with %d", command, result.ExitCode)
	return result, nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(interface{ ExitStatus() int }); ok {
			return status.ExitStatus()
		}
	}
	return 1
}
