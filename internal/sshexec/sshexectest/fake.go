// Package sshexectest provides a scripted RemoteExec double used
// throughout the suite to drive the §8 testable-property scenarios
// without a real SSH server — the same role the teacher's hcloud mock
// client and TalosConfigProducer fakes play for provisioner tests.
package sshexectest

import (
	"context"
	"fmt"
	"sync"

	"github.com/thanegill/proxmox-upgrade-cluster/internal/sshexec"
)

// Response is a scripted reply for one command invocation.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// Call records one observed invocation, for assertions about ordering
// (spec §8.5: "the observed sequence of mutating remote commands").
type Call struct {
	Host    string
	Command string
}

// Fake is a RemoteExec double. Handler, when set, is consulted first
// for each call and takes priority over Responses; this lets tests
// express either "canned responses per exact command" or "compute a
// response based on call count / host" without two separate fakes.
type Fake struct {
	mu sync.Mutex

	// Responses maps an exact command string to a scripted Response.
	// The zero Response (success, empty output) is returned for any
	// command not present in the map, unless Handler is set.
	Responses map[string]Response

	// Handler, if non-nil, computes the response for each call instead
	// of consulting Responses.
	Handler func(host, command string) Response

	Calls []Call
}

// NewFake creates an empty Fake.
func NewFake() *Fake {
	return &Fake{Responses: make(map[string]Response)}
}

// Run implements sshexec.RemoteExec.
func (f *Fake) Run(_ context.Context, host, command string, _ ...string) (sshexec.Result, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, Call{Host: host, Command: command})
	f.mu.Unlock()

	var resp Response
	if f.Handler != nil {
		resp = f.Handler(host, command)
	} else if r, ok := f.Responses[command]; ok {
		resp = r
	}

	if resp.Err != nil {
		return sshexec.Result{}, fmt.Errorf("fake transport: %w", resp.Err)
	}
	return sshexec.Result{Stdout: resp.Stdout, Stderr: resp.Stderr, ExitCode: resp.ExitCode}, nil
}

// CommandsFor returns, in call order, every command issued to host.
// Tests use this to assert spec §8.5's mutating-command ordering
// invariant for a single node.
func (f *Fake) CommandsFor(host string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for _, c := range f.Calls {
		if c.Host == host {
			out = append(out, c.Command)
		}
	}
	return out
}
