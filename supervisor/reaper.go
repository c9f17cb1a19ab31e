//go:build !windows

package supervisor

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

var cleanupSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}

// groupReaper tracks the process groups of live runs so they can be killed
// when the caller itself is being terminated.
type groupReaper struct {
	mu     sync.Mutex
	groups map[int]struct{}

	installOnce sync.Once
	logger      *slog.Logger
}

// reaper is shared by every Supervisor in the process.
var reaper = &groupReaper{groups: make(map[int]struct{})}

// track registers pgid and returns a func that removes it.
func (g *groupReaper) track(pgid int) (untrack func()) {
	g.mu.Lock()
	g.groups[pgid] = struct{}{}
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		delete(g.groups, pgid)
		g.mu.Unlock()
	}
}

// install starts the signal watcher on first call.
func (g *groupReaper) install(logger *slog.Logger) {
	g.installOnce.Do(func() {
		g.logger = logger
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, cleanupSignals...)
		go g.watch(sigs)
	})
}

// watch kills every tracked group on the first signal, unregisters its own
// channel and re-raises the signal. A caller with no handler of its own then
// terminates as it would have without the watcher; a caller that called
// signal.Notify keeps its registration and receives the signal again.
func (g *groupReaper) watch(sigs chan os.Signal) {
	sig := <-sigs
	n := g.killAll()
	g.logger.Warn("caller signaled; killed child process groups", "signal", sig.String(), "groups", n)

	signal.Stop(sigs)
	if s, ok := sig.(syscall.Signal); ok {
		_ = unix.Kill(os.Getpid(), s)
	}
}

// killAll sends SIGKILL to every tracked group and returns how many were
// signaled.
func (g *groupReaper) killAll() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for pgid := range g.groups {
		if err := signalGroup(pgid, unix.SIGKILL); err == nil {
			n++
		}
	}
	return n
}

// live returns the number of tracked groups.
func (g *groupReaper) live() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.groups)
}
