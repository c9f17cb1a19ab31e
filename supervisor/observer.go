package supervisor

import (
	"log/slog"
	"time"

	"github.com/dmora/agentprobe"
)

// Progress describes one newly recorded event and the run state at that
// moment.
type Progress struct {
	// RunID identifies the run the event belongs to.
	RunID string

	// Event is the recorded event.
	Event agentprobe.Event

	// Elapsed is the time since the process was spawned.
	Elapsed time.Duration

	// ToolCount and AgentCount are the running totals including Event.
	ToolCount  int
	AgentCount int
}

// Observer is called synchronously from the supervisor loop, once per
// recorded event, in offset order. It must not block for long: output is not
// read while it runs.
type Observer func(Progress)

// LogObserver returns an Observer that writes each event to logger at info
// level.
func LogObserver(logger *slog.Logger) Observer {
	return func(p Progress) {
		logger.Info("agent event",
			"run_id", p.RunID,
			"kind", p.Event.Kind,
			"name", p.Event.Name,
			"offset", p.Event.Offset,
			"elapsed", p.Elapsed.Round(time.Millisecond),
		)
	}
}

// Multi fans an event out to several observers in order. Nil entries are
// skipped.
func Multi(observers ...Observer) Observer {
	return func(p Progress) {
		for _, obs := range observers {
			if obs != nil {
				obs(p)
			}
		}
	}
}
