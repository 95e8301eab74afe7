//go:build !windows

package shellrpc

import (
	"os/exec"
	"syscall"
)

// disableInterruptSignal modifies child process attributes so that Ctrl-C in
// the parent is not propagated to the shell; the parent decides when the
// session ends.
func disableInterruptSignal(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
