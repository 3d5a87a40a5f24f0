//go:build !windows

package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shellRunCodeTool swaps the interpreter for /bin/sh so the tests do not
// depend on a Python installation.
func shellRunCodeTool(timeout time.Duration) *RunCodeTool {
	tool := NewRunCodeTool(timeout)
	tool.interpreter = "/bin/sh"
	return tool
}

func TestRunCodeCapturesOutput(t *testing.T) {
	tool := shellRunCodeTool(5 * time.Second)

	out, err := tool.Execute(context.Background(), map[string]any{"code": "echo hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestRunCodeNonzeroExitIsObservation(t *testing.T) {
	tool := shellRunCodeTool(5 * time.Second)

	out, err := tool.Execute(context.Background(), map[string]any{"code": "echo oops >&2; exit 3"})
	require.NoError(t, err)
	assert.Contains(t, out, "exited with error")
	assert.Contains(t, out, "oops")
}

func TestRunCodeTimeoutKillsProcessGroup(t *testing.T) {
	tool := shellRunCodeTool(300 * time.Millisecond)

	start := time.Now()
	out, err := tool.Execute(context.Background(), map[string]any{"code": "sleep 30"})
	require.NoError(t, err)
	assert.Contains(t, out, "timed out")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunCodeEmptyCodeRejected(t *testing.T) {
	tool := shellRunCodeTool(time.Second)
	_, err := tool.Execute(context.Background(), map[string]any{"code": "  "})
	assert.ErrorIs(t, err, ErrInvalidArgs)
}
