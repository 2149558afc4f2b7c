//go:build unix

package plugin

import (
	"os/exec"
	"syscall"
)

// isolate runs cmd in its own process group and kills the whole group on
// cancel, so helpers the plugin spawned do not outlive it.
func isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
