// Package agenttest provides fake agent binaries, stream-json fixtures and
// argument compliance checks for tests that drive an agent CLI through the
// supervisor.
//
// A fake agent is a /bin/sh script that records its argv and prints a
// prepared transcript:
//
//	func TestWorkflow(t *testing.T) {
//	    stream := agenttest.NewStream().Task("spec-writer").Tool("Write", nil).Result("done")
//	    bin := agenttest.Agent(t, stream.String(), 0)
//	    r := claude.New(claude.WithBinary(bin))
//	    res, err := r.Run(ctx, "/sdd-init", dir, 0)
//	    ...
//	    argv := agenttest.RecordedArgs(t, dir)
//	}
//
// [RunArgsTests] checks the invariants every agent argument builder must
// hold.
package agenttest
