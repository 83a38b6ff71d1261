// ABOUTME: Process-group handling for verification commands on Unix systems
// ABOUTME: Cancelling a check kills the shell and every process it started
//go:build unix

package core

import (
	"os/exec"
	"syscall"
)

func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
