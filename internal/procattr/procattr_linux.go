//go:build linux

// Package procattr configures spawned CLI subprocesses so they can be
// terminated as a group and never outlive the host.
package procattr

import (
	"os/exec"
	"syscall"
)

// Set places the child in its own process group and arranges for it to
// receive SIGTERM if the host dies first. Grandchildren spawned by the CLI
// (shell commands, MCP servers) land in the same group, so group signals
// reach them too.
func Set(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}
