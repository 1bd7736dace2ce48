//go:build unix

package process

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts the child in its own process group so a timeout
// kills grandchildren too (interpreters often fork workers).
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
