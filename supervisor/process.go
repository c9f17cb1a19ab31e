//go:build !windows

package supervisor

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/dmora/agentprobe"
)

// stopper is the termination surface the run loop drives. The loop owns the
// timing between the two calls.
type stopper interface {
	RequestGracefulStop() error
	ForceKill() error
}

// processHandle is a spawned child running as the leader of its own process
// group. Signals go to the whole group so descendants are stopped with it.
type processHandle struct {
	cmd     *exec.Cmd
	pgid    int
	stopSig syscall.Signal
	waitCh  chan error // buffered(1); receives cmd.Wait's result once
}

var _ stopper = (*processHandle)(nil)

// spawn starts c with stdout and stderr merged into one pipe and returns the
// handle and the pipe's read end. The parent's copy of the write end is
// closed, so the read end reports EOF once every holder of it has exited.
func spawn(c Command, env []string, stopSig syscall.Signal) (*processHandle, io.ReadCloser, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, nil, err
	}

	cmd := exec.Command(c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = env
	cmd.Stdout = pw
	cmd.Stderr = pw
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, nil, err
	}
	_ = pw.Close()

	h := &processHandle{
		cmd:     cmd,
		pgid:    cmd.Process.Pid,
		stopSig: stopSig,
		waitCh:  make(chan error, 1),
	}
	go func() { h.waitCh <- cmd.Wait() }()
	return h, pr, nil
}

// RequestGracefulStop sends the stop signal to the process group.
func (h *processHandle) RequestGracefulStop() error {
	return signalGroup(h.pgid, h.stopSig)
}

// ForceKill sends SIGKILL to the process group.
func (h *processHandle) ForceKill() error {
	return signalGroup(h.pgid, unix.SIGKILL)
}

func (h *processHandle) pid() int { return h.cmd.Process.Pid }

// signalGroup sends sig to every process in group pgid, returning nil if the
// group no longer exists.
func signalGroup(pgid int, sig syscall.Signal) error {
	if pgid <= 0 {
		return nil
	}
	err := unix.Kill(-pgid, sig)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}

// exitStatus extracts the exit code and terminating signal from a Wait
// result. A signal death reports code -1 and the signal name.
func exitStatus(waitErr error, ps *os.ProcessState) (code int, signal string) {
	if ps == nil {
		var ee *exec.ExitError
		if !errors.As(waitErr, &ee) {
			return -1, ""
		}
		ps = ee.ProcessState
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -1, unix.SignalName(ws.Signal())
	}
	return ps.ExitCode(), ""
}

// spawnError classifies a Start failure. A missing or non-executable binary
// also matches agentprobe.ErrUnavailable.
func spawnError(path string, err error) *agentprobe.SpawnError {
	unavailable := errors.Is(err, exec.ErrNotFound) ||
		(isExecError(err) && (errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission)))
	if unavailable {
		err = fmt.Errorf("%w: %w", agentprobe.ErrUnavailable, err)
	}
	return &agentprobe.SpawnError{Command: path, Err: err}
}

func isExecError(err error) bool {
	var ee *exec.Error
	if errors.As(err, &ee) {
		return true
	}
	var pe *fs.PathError
	return errors.As(err, &pe) && pe.Op == "fork/exec"
}
