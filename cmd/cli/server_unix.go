//go:build !windows

package main

import (
	"os/exec"
	"syscall"
)

// detachServer puts the server in its own session, so closing the terminal that
// started it (SIGHUP) or pressing Ctrl-C in the CLI leaves the downloads running
func detachServer(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
