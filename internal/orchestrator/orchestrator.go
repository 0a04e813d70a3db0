// Package orchestrator implements the top-level run flow from spec
// §4.5: validate configuration, discover or accept the node list, run
// global preconditions, build the upgrade plan, then drive each node
// through the NodeStateMachine in order.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/thanegill/proxmox-upgrade-cluster/internal/cluster"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/logging"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/metrics"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/node"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/proxmox"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/rconfig"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/upgradeerr"
)

// Orchestrator drives a single rolling-upgrade run to completion.
type Orchestrator struct {
	Client   *proxmox.Client
	Log      logging.Logger
	Cfg      *rconfig.RunConfig
	Timeouts *rconfig.Timeouts
	Metrics  *metrics.Recorder
}

// Run implements spec §4.5's seven-step flow. Cfg is assumed already
// validated by rconfig.Flags.Resolve (step 1 of §4.5 happens at the
// CLI layer, before Orchestrator is constructed).
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.Cfg.DryRun {
		o.Log.Info("DRY RUN: no remote state will be changed")
	}

	inspector := &cluster.Inspector{Client: o.Client, Log: o.Log, Cfg: o.Cfg, Timeouts: o.Timeouts}

	var view cluster.View
	if o.Cfg.SeedMode == rconfig.SeedModeFromClusterNode {
		if err := o.Client.Whoami(ctx, o.Cfg.SeedNode, o.Timeouts.SeedDiscovery); err != nil {
			return upgradeerr.Precondition(fmt.Errorf("seed node %s unreachable: %w", o.Cfg.SeedNode, err))
		}
		ok, err := o.Client.HasPvesh(ctx, o.Cfg.SeedNode)
		if err != nil {
			return upgradeerr.Precondition(fmt.Errorf("seed node %s: %w", o.Cfg.SeedNode, err))
		}
		if !ok {
			return upgradeerr.Precondition(fmt.Errorf("seed node %s is not a proxmox node", o.Cfg.SeedNode))
		}
		view, err = inspector.Discover(ctx, o.Cfg.SeedNode)
		if err != nil {
			return upgradeerr.Precondition(err)
		}
	} else {
		view = cluster.NewExplicitView(o.Cfg.ExplicitNodes)
	}

	if o.Metrics != nil {
		o.Metrics.SetNodesTotal(len(view.Members))
	}

	failures, err := inspector.CheckPreconditions(ctx, view)
	if err != nil {
		return upgradeerr.Precondition(err)
	}
	if len(failures) > 0 {
		for _, f := range failures {
			o.Log.Error("precondition failed on %s: %s", f.Node, f.Reason)
		}
		if o.Metrics != nil {
			o.Metrics.AddFanoutFailures(len(failures))
		}
		return upgradeerr.Precondition(fmt.Errorf("%d node(s) failed preconditions", len(failures)))
	}

	candidates, err := inspector.SelectUpgradeCandidates(ctx, view)
	if err != nil {
		return upgradeerr.Precondition(err)
	}
	plan := cluster.NewPlan(candidates)

	if plan.Empty() && !o.Cfg.ForceUpgrade {
		o.Log.Info("No nodes need updates. Exiting.")
		return nil
	}

	for _, hostname := range plan.Nodes {
		machine := &node.Machine{
			Client:   o.Client,
			Log:      o.Log,
			Timeouts: o.Timeouts,
			Cfg:      o.Cfg,
			SeedHost: view.Seed,
		}
		if o.Metrics != nil {
			o.Metrics.SetCurrentNodeState(hostname, "running")
		}
		if err := machine.Run(ctx, hostname); err != nil {
			if o.Metrics != nil {
				o.Metrics.SetCurrentNodeState(hostname, "failed")
			}
			return upgradeerr.NodeStep(hostname, "upgrade", err)
		}
		if o.Metrics != nil {
			o.Metrics.SetCurrentNodeState(hostname, "done")
			o.Metrics.IncNodesCompleted()
		}
	}

	return nil
}
