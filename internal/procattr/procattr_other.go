//go:build !linux

// Package procattr configures spawned CLI subprocesses so they can be
// terminated as a group and never outlive the host.
package procattr

import (
	"os/exec"
	"syscall"
)

// Set places the child in its own process group. Pdeathsig is Linux-only;
// elsewhere the group alone enables kill -<signal> -<pgid> cleanup.
func Set(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
