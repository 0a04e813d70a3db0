// Package cluster implements discovery and the cluster-wide
// preconditions that gate every upgrade (spec §4.3).
package cluster

import (
	"context"
	"fmt"

	"github.com/thanegill/proxmox-upgrade-cluster/internal/fanout"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/logging"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/proxmox"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/rconfig"
)

// View is the unordered set of discovered or explicitly-listed nodes
// (spec §3's ClusterView). Membership is fixed once Discover or
// NewExplicitView returns.
type View struct {
	Seed    string
	Members []string
}

// Inspector discovers cluster membership and evaluates the global
// preconditions spec §4.3 requires before any node enters maintenance.
type Inspector struct {
	Client   *proxmox.Client
	Log      logging.Logger
	Cfg      *rconfig.RunConfig
	Timeouts *rconfig.Timeouts
}

// Discover fetches cluster/status from seed and projects either .name
// or .ip per cfg.ClusterNodeUseIP, filtering to entries of type "node"
// (spec §4.3/§8.2).
func (i *Inspector) Discover(ctx context.Context, seed string) (View, error) {
	entries, err := i.Client.ClusterStatus(ctx, seed)
	if err != nil {
		return View{}, fmt.Errorf("discover: %w", err)
	}

	var members []string
	for _, e := range entries {
		if e.Type != "node" {
			continue
		}
		if i.Cfg.ClusterNodeUseIP {
			members = append(members, e.IP)
		} else {
			members = append(members, e.Name)
		}
	}
	return View{Seed: seed, Members: members}, nil
}

// NewExplicitView builds a View directly from an operator-supplied
// node list, with the first entry standing in as the seed for HA
// queries (spec §3: "at least one node is the seed used for
// cluster-wide queries").
func NewExplicitView(nodes []string) View {
	seed := ""
	if len(nodes) > 0 {
		seed = nodes[0]
	}
	return View{Seed: seed, Members: nodes}
}

// PreconditionFailure describes one failing precondition check, for
// an aggregated error message naming every offender (spec §4.3 /
// §8.8: fan-out never short-circuits, so every failure is reported).
type PreconditionFailure struct {
	Node   string
	Reason string
}

// CheckPreconditions runs the four global preconditions from spec
// §4.3 and returns every failure found; a nil/empty slice means every
// precondition passed.
func (i *Inspector) CheckPreconditions(ctx context.Context, view View) ([]PreconditionFailure, error) {
	var failures []PreconditionFailure

	reachable := fanout.Run(ctx, i.Log, i.reachabilityTasks(view))
	for _, r := range reachable.Failures() {
		failures = append(failures, PreconditionFailure{Node: r.Name, Reason: fmt.Sprintf("unreachable: %v", r.Err)})
	}

	proxmoxCheck := fanout.Run(ctx, i.Log, i.proxmoxTasks(view))
	for _, r := range proxmoxCheck.Failures() {
		failures = append(failures, PreconditionFailure{Node: r.Name, Reason: fmt.Sprintf("not a proxmox node: %v", r.Err)})
	}

	haStatus, err := i.Client.HAManagerStatus(ctx, view.Seed)
	if err != nil {
		return nil, fmt.Errorf("ha_manager_status on seed %s: %w", view.Seed, err)
	}
	if offline := haStatus.OfflineCount(); offline != 0 {
		failures = append(failures, PreconditionFailure{Node: view.Seed, Reason: fmt.Sprintf("cluster not healthy: %d node(s) offline", offline)})
	}

	if !i.Cfg.AllowRunningTasks {
		tasksCheck := fanout.Run(ctx, i.Log, i.taskIdleTasks(view))
		for _, r := range tasksCheck.Failures() {
			failures = append(failures, PreconditionFailure{Node: r.Name, Reason: fmt.Sprintf("active tasks present: %v", r.Err)})
		}
	}

	return failures, nil
}

func (i *Inspector) reachabilityTasks(view View) []fanout.Task {
	tasks := make([]fanout.Task, len(view.Members))
	for idx, node := range view.Members {
		node := node
		tasks[idx] = fanout.Task{
			Name: node,
			Run: func(ctx context.Context) error {
				return i.Client.Whoami(ctx, node, i.Timeouts.LivenessProbe)
			},
		}
	}
	return tasks
}

func (i *Inspector) proxmoxTasks(view View) []fanout.Task {
	tasks := make([]fanout.Task, len(view.Members))
	for idx, node := range view.Members {
		node := node
		tasks[idx] = fanout.Task{
			Name: node,
			Run: func(ctx context.Context) error {
				ok, err := i.Client.HasPvesh(ctx, node)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("hash pvesh returned nonzero")
				}
				return nil
			},
		}
	}
	return tasks
}

func (i *Inspector) taskIdleTasks(view View) []fanout.Task {
	tasks := make([]fanout.Task, len(view.Members))
	for idx, node := range view.Members {
		node := node
		tasks[idx] = fanout.Task{
			Name: node,
			Run: func(ctx context.Context) error {
				active, err := i.Client.ActiveTasks(ctx, node)
				if err != nil {
					return err
				}
				if len(active) > 0 {
					return fmt.Errorf("%d active task(s)", len(active))
				}
				return nil
			},
		}
	}
	return tasks
}

// SelectUpgradeCandidates runs apt_update on every member (fan-out)
// then includes each node iff cfg.ForceUpgrade or apt_simulate_upgrade
// reports pending updates (spec §4.3/§8.3).
func (i *Inspector) SelectUpgradeCandidates(ctx context.Context, view View) ([]string, error) {
	updateTasks := make([]fanout.Task, len(view.Members))
	for idx, node := range view.Members {
		node := node
		updateTasks[idx] = fanout.Task{
			Name: node,
			Run: func(ctx context.Context) error {
				return i.Client.AptUpdate(ctx, node)
			},
		}
	}
	report := fanout.Run(ctx, i.Log, updateTasks)
	if !report.OK() {
		var failed []string
		for _, f := range report.Failures() {
			failed = append(failed, f.Name)
		}
		return nil, fmt.Errorf("apt_update failed on: %v", failed)
	}

	var candidates []string
	for _, node := range view.Members {
		if i.Cfg.ForceUpgrade {
			candidates = append(candidates, node)
			continue
		}
		hasUpdates, err := i.Client.AptSimulateUpgrade(ctx, node)
		if err != nil {
			return nil, fmt.Errorf("apt_simulate_upgrade on %s: %w", node, err)
		}
		if hasUpdates {
			candidates = append(candidates, node)
		}
	}
	return candidates, nil
}
