//go:build windows
// +build windows

package tools

import (
	"os/exec"
	"sync"
)

// processGroup on Windows kills only the direct child; there is no
// process-group signal to send.
type processGroup struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	killed bool
}

func newProcessGroup(cmd *exec.Cmd) *processGroup {
	return &processGroup{cmd: cmd}
}

func (pg *processGroup) Start() error {
	return pg.cmd.Start()
}

func (pg *processGroup) Kill() error {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	if pg.killed || pg.cmd.Process == nil {
		return nil
	}
	pg.killed = true
	return pg.cmd.Process.Kill()
}

func (pg *processGroup) Wait() error {
	return pg.cmd.Wait()
}
