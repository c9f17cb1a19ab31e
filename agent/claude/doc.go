// Package claude runs the Claude Code CLI under the supervisor for tests.
//
// A [Runner] builds the non-interactive invocation
//
//	claude -p <prompt> --add-dir <dir>... --permission-mode <mode> --output-format stream-json
//
// runs it in the target project directory, and returns the supervisor's
// [agentprobe.Result]. Runs can optionally be persisted with an
// [artifact.Writer].
//
// # Usage
//
//	r := claude.New(
//	    claude.WithAddDir(marketplaceDir),
//	    claude.WithPermissionMode(claude.PermissionBypass),
//	)
//	res, err := r.Run(ctx, "/sdd-init --name demo", projectDir, 0)
//
// A zero timeout uses [supervisor.DefaultTimeout].
//
// # Structured Parse
//
// [ParseOutput] decodes the stream-json transcript line by line and collects
// tool_use blocks from assistant messages, with Skill and Task invocations
// broken out. It complements the marker-based events on the Result, which
// also work on partial or interleaved output.
package claude
