package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultCodeTimeout is the hard wall clock limit for code execution.
const DefaultCodeTimeout = 10 * time.Second

// RunCodeTool executes Python code in a subprocess. The subprocess runs in
// its own process group and the whole group is SIGKILLed when the wall
// clock expires; a timeout is reported as an observation, not an error.
type RunCodeTool struct {
	interpreter string
	timeout     time.Duration
}

func NewRunCodeTool(timeout time.Duration) *RunCodeTool {
	if timeout <= 0 {
		timeout = DefaultCodeTimeout
	}
	return &RunCodeTool{
		interpreter: "python3",
		timeout:     timeout,
	}
}

func (t *RunCodeTool) Name() string { return "run_code" }

func (t *RunCodeTool) Description() string {
	return fmt.Sprintf("Execute Python code and return its output (%s time limit)", t.timeout)
}

func (t *RunCodeTool) Schema() map[string]any {
	return map[string]any{
		"code": "string, the Python code to execute",
	}
}

type runCodeArgs struct {
	Code string `json:"code"`
}

func (t *RunCodeTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	var a runCodeArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	if strings.TrimSpace(a.Code) == "" {
		return "", fmt.Errorf("%w: code is required", ErrInvalidArgs)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.Command(t.interpreter, "-c", a.Code)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	pg := newProcessGroup(cmd)
	if err := pg.Start(); err != nil {
		return "", fmt.Errorf("start %s: %w", t.interpreter, err)
	}

	waitDone := make(chan error, 1)
	go func() { waitDone <- pg.Wait() }()

	select {
	case <-ctx.Done():
		pg.Kill()
		<-waitDone
		return fmt.Sprintf("execution timed out after %s and was killed", t.timeout), nil
	case err := <-waitDone:
		output := combineOutput(stdout.String(), stderr.String())
		if err != nil {
			// A nonzero exit is an observation for the model, not a
			// dispatch failure.
			return fmt.Sprintf("exited with error: %v\n%s", err, output), nil
		}
		if output == "" {
			return "(no output)", nil
		}
		return output, nil
	}
}

func combineOutput(stdout, stderr string) string {
	stdout = strings.TrimRight(stdout, "\n")
	stderr = strings.TrimRight(stderr, "\n")
	switch {
	case stdout == "":
		return stderr
	case stderr == "":
		return stdout
	default:
		return stdout + "\nstderr:\n" + stderr
	}
}
