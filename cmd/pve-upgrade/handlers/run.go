// Package handlers wires CLI flags into the orchestrator: building the
// Logger, SSH-backed RemoteExec, ProxmoxClient, and Orchestrator, then
// running the upgrade and translating any failure into a process exit
// code via internal/upgradeerr.
package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/thanegill/proxmox-upgrade-cluster/internal/logging"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/metrics"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/orchestrator"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/proxmox"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/rconfig"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/sshexec"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/upgradeerr"
)

// RunOptions bundles the raw CLI flag state the run command collects.
type RunOptions struct {
	Flags        *rconfig.Flags
	IdentityFile string
}

// Run resolves opts into a RunConfig, constructs the dependency chain,
// and executes one full rolling-upgrade orchestrator run.
func Run(ctx context.Context, opts RunOptions) error {
	cfg, err := opts.Flags.Resolve()
	if err != nil {
		return upgradeerr.Configuration(err)
	}

	log := logging.New(os.Stdout, cfg.Verbose)
	timeouts := rconfig.LoadTimeouts()

	key, err := loadIdentity(opts.IdentityFile)
	if err != nil {
		return upgradeerr.Configuration(err)
	}

	sshClient, err := sshexec.NewClient(sshexec.Config{
		User:       cfg.SSHUser,
		PrivateKey: key,
		Options:    cfg.SSHOptions,
		Log:        log,
	})
	if err != nil {
		return upgradeerr.Configuration(err)
	}

	client := proxmox.NewClient(sshClient, cfg.DryRun, log)

	var recorder *metrics.Recorder
	if cfg.MetricsAddr != "" {
		recorder = metrics.New()
		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := recorder.Serve(metricsCtx, cfg.MetricsAddr); err != nil {
				log.Warn("metrics server stopped: %v", err)
			}
		}()
	}

	o := &orchestrator.Orchestrator{
		Client:   client,
		Log:      log,
		Cfg:      cfg,
		Timeouts: timeouts,
		Metrics:  recorder,
	}

	return o.Run(ctx)
}

func loadIdentity(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("--ssh-identity is required")
	}
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading --ssh-identity: %w", err)
	}
	return key, nil
}
