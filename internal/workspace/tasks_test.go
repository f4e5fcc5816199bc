package workspace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hide-org/hide-mcp/internal/config"
)

func TestRunTask(t *testing.T) {
	m := newManager(t, map[string]string{"hello.txt": "hi\n"})
	m.cfg.Tasks = []config.Task{{Alias: "cat", Command: "cat hello.txt"}}
	ctx := context.Background()

	res, err := m.RunTask(ctx, "", "cat", 0)
	require.NoError(t, err)
	assert.Equal(t, &TaskResult{ExitCode: 0, Stdout: "hi\n"}, res)

	res, err = m.RunTask(ctx, "echo oops >&2; exit 3", "", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "oops\n", res.Stderr)
	assert.Equal(t, "exit code: 3\nstdout: \nstderr: oops\n", res.String())

	assert.Equal(t, []config.Task{{Alias: "cat", Command: "cat hello.txt"}}, m.Tasks())
}

func TestRunTaskErrors(t *testing.T) {
	m := newManager(t, nil)
	ctx := context.Background()

	_, err := m.RunTask(ctx, "", "", 0)
	assert.ErrorIs(t, err, ErrTaskArgs)
	_, err = m.RunTask(ctx, "true", "build", 0)
	assert.ErrorIs(t, err, ErrTaskArgs)
	_, err = m.RunTask(ctx, "", "build", 0)
	assert.ErrorIs(t, err, ErrUnknownTask)

	start := time.Now()
	_, err = m.RunTask(ctx, "sleep 5", "", 100*time.Millisecond)
	assert.ErrorIs(t, err, ErrTaskTimedOut)
	assert.Less(t, time.Since(start), 3*time.Second)
}
