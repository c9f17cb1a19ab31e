//go:build linux

package supervisor

import "syscall"

// sysProcAttr puts the child in its own process group and has the kernel
// SIGKILL it if the spawning thread dies.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
}
