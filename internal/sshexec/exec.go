// Package sshexec implements RemoteExec (spec §4.1), the one
// capability the orchestrator core consumes to reach a node. The
// transport itself is explicitly out of scope for the core's
// correctness contract (spec §1); this package provides a concrete
// SSH-backed implementation so the module is runnable end to end.
package sshexec

import "context"

// Result is the outcome of running a command on a remote host: stdout
// delivered whole, stderr available as its own stream, and the raw
// exit code. A non-zero ExitCode is not itself an error — spec §4.1:
// "a non-zero exit does not itself raise — the caller decides."
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RemoteExec runs a shell command on a named host and returns its
// output. Implementations must execute the command in a shell on host
// so parameter expansion like $(hostname) evaluates remotely (spec
// §4.1). extraArgs carries transport-specific hints (e.g. SSH -v at
// high verbosity) and is implementation-defined.
type RemoteExec interface {
	Run(ctx context.Context, host, command string, extraArgs ...string) (Result, error)
}
