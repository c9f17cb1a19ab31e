package supervisor

import (
	"bytes"
	"log/slog"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/dmora/agentprobe"
)

func TestResolveOptions_Defaults(t *testing.T) {
	o := resolveOptions()
	if o.GracePeriod != defaultGracePeriod {
		t.Errorf("GracePeriod = %v, want %v", o.GracePeriod, defaultGracePeriod)
	}
	if o.PollInterval != defaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", o.PollInterval, defaultPollInterval)
	}
	if o.DrainTimeout != defaultDrainTimeout {
		t.Errorf("DrainTimeout = %v, want %v", o.DrainTimeout, defaultDrainTimeout)
	}
	if o.ReadSize != defaultReadSize {
		t.Errorf("ReadSize = %d, want %d", o.ReadSize, defaultReadSize)
	}
	if o.StopSignal != syscall.SIGTERM {
		t.Errorf("StopSignal = %v, want SIGTERM", o.StopSignal)
	}
	if o.Logger == nil || !o.SignalCleanup {
		t.Errorf("Logger=%v SignalCleanup=%v", o.Logger, o.SignalCleanup)
	}
}

func TestResolveOptions_IgnoresNonPositive(t *testing.T) {
	o := resolveOptions(
		WithGracePeriod(0),
		WithPollInterval(-time.Second),
		WithDrainTimeout(0),
		WithReadSize(-1),
		WithStopSignal(0),
		WithLogger(nil),
	)
	if o.GracePeriod != defaultGracePeriod || o.PollInterval != defaultPollInterval ||
		o.DrainTimeout != defaultDrainTimeout || o.ReadSize != defaultReadSize ||
		o.StopSignal != syscall.SIGTERM || o.Logger == nil {
		t.Fatalf("non-positive values changed options: %+v", o)
	}
}

func TestResolveOptions_Overrides(t *testing.T) {
	o := resolveOptions(
		nil,
		WithGracePeriod(time.Second),
		WithPollInterval(5*time.Millisecond),
		WithDrainTimeout(3*time.Second),
		WithReadSize(1024),
		WithStopSignal(syscall.SIGINT),
		WithEnv("A=1"),
		WithEnv("B=2"),
		WithoutSignalCleanup(),
	)
	if o.GracePeriod != time.Second || o.PollInterval != 5*time.Millisecond ||
		o.DrainTimeout != 3*time.Second || o.ReadSize != 1024 || o.StopSignal != syscall.SIGINT {
		t.Fatalf("overrides not applied: %+v", o)
	}
	if strings.Join(o.Env, ",") != "A=1,B=2" {
		t.Fatalf("Env = %v", o.Env)
	}
	if o.SignalCleanup {
		t.Fatal("SignalCleanup should be disabled")
	}
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	obs := LogObserver(slog.New(slog.NewTextHandler(&buf, nil)))
	obs(Progress{
		RunID:   "r1",
		Event:   agentprobe.Event{Kind: agentprobe.EventAgentDelegation, Name: "planner", Offset: 7},
		Elapsed: 1500 * time.Millisecond,
	})
	out := buf.String()
	for _, want := range []string{"run_id=r1", "kind=agent_delegation", "name=planner", "offset=7", "elapsed=1.5s"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %q", out, want)
		}
	}
}

func TestMulti(t *testing.T) {
	var order []string
	obs := Multi(
		func(Progress) { order = append(order, "a") },
		nil,
		func(Progress) { order = append(order, "b") },
	)
	obs(Progress{})
	if strings.Join(order, "") != "ab" {
		t.Fatalf("order = %v, want [a b]", order)
	}
}
