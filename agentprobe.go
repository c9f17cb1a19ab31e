// Package agentprobe runs an AI agent CLI as a child process and lets tests
// assert on what it did.
//
// The agent is observed through two channels: the newline-delimited event
// stream it writes to stdout (stream-json), and the files it leaves behind.
// This package defines the shared vocabulary for the first channel; the
// second is covered by the project package.
//
// # Core Types
//
//   - [Event]: a tool call or sub-agent delegation decoded from the stream
//   - [Result]: immutable outcome of one run with its transcript, exit
//     status, elapsed time and order-sensitive queries over the events
//   - [State]: terminal state of a run (completed, timed out, failed)
//   - [SpawnError], [StreamReadError]: failures surfaced by a run
//
// # Packages
//
//   - marker: decodes events from raw output text
//   - transcript: accumulates output fragments and records events
//   - supervisor: owns the child process lifecycle and the deadline
//   - agent/claude: builds the agent CLI invocation and parses its output
//   - artifact: persists transcripts, events and run summaries
//   - config: harness configuration file and environment overrides
//   - project, command, httpcheck: inspect what the agent produced
//   - agenttest: fake agent binaries for tests
//
// # Quick Start
//
//	runner := claude.New(claude.WithAddDir(pluginDir))
//	res, err := runner.Run(ctx, "/sdd-init", projectDir, 2*time.Minute)
//	if err != nil { t.Fatal(err) }
//	if !res.AgentInvokedBefore("spec-writer", "planner") {
//	    t.Errorf("planner ran before spec-writer")
//	}
package agentprobe
