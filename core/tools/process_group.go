//go:build !windows
// +build !windows

package tools

import (
	"os/exec"
	"sync"
	"syscall"
)

// processGroup runs a command in its own process group so a timeout kill
// reaches the whole subprocess tree, not just the direct child.
type processGroup struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	pgid   int
	killed bool
}

func newProcessGroup(cmd *exec.Cmd) *processGroup {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
	return &processGroup{cmd: cmd}
}

func (pg *processGroup) Start() error {
	if err := pg.cmd.Start(); err != nil {
		return err
	}
	pg.mu.Lock()
	pg.pgid = pg.cmd.Process.Pid
	pg.mu.Unlock()
	return nil
}

func (pg *processGroup) Kill() error {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	if pg.killed || pg.pgid == 0 {
		return nil
	}
	pg.killed = true
	return syscall.Kill(-pg.pgid, syscall.SIGKILL)
}

func (pg *processGroup) Wait() error {
	return pg.cmd.Wait()
}
