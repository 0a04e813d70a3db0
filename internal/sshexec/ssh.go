package sshexec

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/thanegill/proxmox-upgrade-cluster/internal/logging"
)

const defaultPort = 22

// Config configures the SSH-backed RemoteExec, mirroring
// internal/platform/ssh.Config in the teacher (parse-key-once, dial
// with a configurable timeout) but generalized to the operator options
// spec §3 names: SSHUser, SSHOptions, SSHKeyAuthOnly.
type Config struct {
	User string
	Port int

	// PrivateKey is the parsed-once private key material. SSHKeyAuthOnly
	// (spec §3) holds unconditionally here: the client never registers a
	// password auth method, so "PasswordAuthentication=no" is true by
	// construction rather than by a transport flag.
	PrivateKey []byte

	// Options is retained for operator visibility only: it is logged at
	// LevelSSHVerbose and not applied to the connection, since most
	// classic ssh_config directives have no equivalent on
	// ssh.ClientConfig when using the Go SSH library directly. See
	// SPEC_FULL.md's domain-stack section for the rationale.
	Options []string

	// HostKeyCallback defaults to ssh.InsecureIgnoreHostKey() the same
	// way the teacher's ephemeral-infrastructure client does; operators
	// upgrading a persistent production cluster should supply a real
	// callback.
	HostKeyCallback ssh.HostKeyCallback

	Log logging.Logger
}

// Client implements RemoteExec over golang.org/x/crypto/ssh.
type Client struct {
	cfg    Config
	signer ssh.Signer
}

// NewClient parses the private key once during construction, the same
// defensive shape as the teacher's ssh.NewClient.
func NewClient(cfg Config) (*Client, error) {
	if cfg.User == "" {
		return nil, fmt.Errorf("sshexec: user must not be empty")
	}
	if len(cfg.PrivateKey) == 0 {
		return nil, fmt.Errorf("sshexec: private key must not be empty")
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.HostKeyCallback == nil {
		cfg.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // operator-controlled inventory, same posture as teacher
	}

	signer, err := ssh.ParsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("sshexec: failed to parse private key: %w", err)
	}

	return &Client{cfg: cfg, signer: signer}, nil
}

// Run dials host, executes command over a single session, and returns
// its combined result. timeout is read from ctx's deadline if set,
// otherwise connections do not time out (spec §5: "All other remote
// commands inherit whatever timeout the SSH transport is configured
// with (none by default)").
func (c *Client) Run(ctx context.Context, host, command string, extraArgs ...string) (Result, error) {
	if c.cfg.Log.Enabled(logging.LevelSSHVerbose) {
		c.cfg.Log.Logf(logging.LevelSSHVerbose, "ssh %s@%s options=%v extra=%v: %s", c.cfg.User, host, c.cfg.Options, extraArgs, command)
	}

	client, err := c.dial(ctx, host)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("sshexec: failed to open session on %s: %w", host, err)
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	runErr := session.Run(command)
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if runErr == nil {
		result.ExitCode = 0
		return result, nil
	}

	var exitErr *ssh.ExitError
	if asExitError(runErr, &exitErr) {
		result.ExitCode = exitErr.ExitStatus()
		return result, nil
	}

	// Connection died mid-command (e.g. the node rebooted): this is a
	// transport failure, not a command-level non-zero exit. Callers
	// issuing `reboot` treat this as expected (spec §7/§9: swallowed
	// errors around reboot) and must not surface it as a failure.
	return result, fmt.Errorf("sshexec: command failed on %s: %w", host, runErr)
}

func asExitError(err error, target **ssh.ExitError) bool {
	ee, ok := err.(*ssh.ExitError)
	if !ok {
		return false
	}
	*target = ee
	return true
}

func (c *Client) dial(ctx context.Context, host string) (*ssh.Client, error) {
	timeout := 0 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	config := &ssh.ClientConfig{
		User:            c.cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(c.signer)},
		HostKeyCallback: c.cfg.HostKeyCallback,
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(host, portString(c.cfg.Port))
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("sshexec: failed to connect to %s: %w", addr, err)
	}
	return client, nil
}

func portString(port int) string {
	return fmt.Sprintf("%d", port)
}
