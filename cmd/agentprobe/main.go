// agentprobe runs one Claude Code prompt against a project directory under
// the supervisor, prints live tool and agent progress, and checks
// expectations against the captured transcript.
//
// Usage:
//
//	agentprobe run --prompt "/sdd-init --name demo" --dir ./project \
//	    --expect-agent spec-writer --expect-order spec-writer,planner
//	agentprobe version
//
// Exit status is 0 when the run completed and every expectation held, the
// agent's own exit status when it failed, 124 when it timed out, 1 on an
// expectation or harness failure, and 2 on a usage error.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Exit codes.
const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

// exitError carries a process exit status through run.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func (e *exitError) ExitCode() int { return e.code }

func usageError(format string, args ...any) error {
	return &exitError{code: exitUsage, err: fmt.Errorf(format, args...)}
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr, os.Getenv))
}

// execute runs the CLI and returns the process exit status.
func execute(args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	err := dispatch(args, stdout, stderr, getenv)
	if err == nil {
		return exitOK
	}
	var coded *exitError
	if errors.As(err, &coded) {
		if coded.err != nil {
			fmt.Fprintf(stderr, "agentprobe: %v\n", coded.err)
		}
		return coded.code
	}
	fmt.Fprintf(stderr, "agentprobe: %v\n", err)
	return exitFail
}

func dispatch(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	if len(args) == 0 {
		printUsage(stderr)
		return &exitError{code: exitUsage}
	}
	switch args[0] {
	case "run":
		return runCommand(args[1:], stdout, stderr, getenv)
	case "version", "--version":
		fmt.Fprintf(stdout, "agentprobe %s\n", version)
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return usageError("unknown command %q", args[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `agentprobe runs an agent CLI prompt under supervision and checks the result.

Usage:
  agentprobe run [flags]    run a prompt (see "agentprobe run --help")
  agentprobe version        print the version
`)
}
