//go:build !windows

package sandbox

import (
	"os/exec"
	"syscall"
)

// setProcAttrs puts the child in its own process group so a timeout kills
// grandchildren too.
func setProcAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
