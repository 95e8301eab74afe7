//go:build windows

package shellrpc

import "os/exec"

func disableInterruptSignal(c *exec.Cmd) {
}
