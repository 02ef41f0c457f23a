//go:build windows

package main

import (
	"os/exec"
	"syscall"
)

// not exported by package syscall
const detachedProcess = 0x00000008

// detachServer starts the server without a console and outside the CLI's Ctrl-C group
func detachServer(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | detachedProcess,
		HideWindow:    true,
	}
}
