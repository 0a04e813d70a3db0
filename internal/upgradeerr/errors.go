// Package upgradeerr defines the error taxonomy from spec §7 as
// sentinel-comparable types, mirroring how the teacher's
// internal/util/retry.FatalError marks a class of error as
// distinguishable via errors.As rather than string-matching.
package upgradeerr

import (
	"errors"
	"fmt"
)

// ConfigurationError wraps a configuration validation failure (spec
// §7: mutually exclusive flags, missing required argument). The CLI
// layer reports these on stderr with a pointer to --help and aborts
// before any remote contact.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string { return e.Err.Error() }
func (e *ConfigurationError) Unwrap() error { return e.Err }

// Configuration wraps err as a ConfigurationError.
func Configuration(err error) error {
	if err == nil {
		return nil
	}
	return &ConfigurationError{Err: err}
}

// PreconditionError wraps a cluster-wide precondition failure (spec
// §7: unreachable node, non-Proxmox node, cluster not healthy). The
// orchestrator aborts the run before any node enters maintenance.
type PreconditionError struct {
	Err error
}

func (e *PreconditionError) Error() string { return e.Err.Error() }
func (e *PreconditionError) Unwrap() error { return e.Err }

// Precondition wraps err as a PreconditionError.
func Precondition(err error) error {
	if err == nil {
		return nil
	}
	return &PreconditionError{Err: err}
}

// NodeStepError wraps a failure during a single node's upgrade
// sequence (spec §7: "the run terminates; the partially-upgraded node
// may be left in maintenance"). It records which node and which
// logical step failed so the operator can resume manually.
type NodeStepError struct {
	Node string
	Step string
	Err  error
}

func (e *NodeStepError) Error() string {
	return fmt.Sprintf("node %s: step %s failed: %v", e.Node, e.Step, e.Err)
}
func (e *NodeStepError) Unwrap() error { return e.Err }

// NodeStep wraps err as a NodeStepError.
func NodeStep(node, step string, err error) error {
	if err == nil {
		return nil
	}
	return &NodeStepError{Node: node, Step: step, Err: err}
}

// ExitCode maps an error produced by this package's taxonomy to a
// process exit code. Spec §6 leaves the specific nonzero code
// unspecified beyond "non-zero on any precondition failure, unknown
// argument, or node-step failure" — this rewrite picks stable,
// distinct codes so scripts invoking the tool can distinguish failure
// classes, which the shell original could not.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cfgErr *ConfigurationError
	var preErr *PreconditionError
	var stepErr *NodeStepError
	switch {
	case errors.As(err, &cfgErr):
		return 1
	case errors.As(err, &preErr):
		return 2
	case errors.As(err, &stepErr):
		return 3
	default:
		return 1
	}
}
