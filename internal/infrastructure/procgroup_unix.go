//go:build !windows

package infrastructure

import (
	"errors"
	"os/exec"
	"syscall"
)

// setProcessGroup starts the fetcher as the leader of its own process group
// so that merger/post-processor children can be killed with it.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}
}

// terminateProcessGroup force-kills every process in the group led by pid
func terminateProcessGroup(cmd *exec.Cmd) error {
	pid := cmd.Process.Pid
	err := syscall.Kill(-pid, syscall.SIGKILL)
	if err == nil || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	// group may not exist if setpgid failed, kill the leader alone
	return cmd.Process.Kill()
}
