// Package rconfig holds the operator-supplied configuration for a
// rolling upgrade run. RunConfig is built once from CLI flags (and, for
// the explicit-list mode, optionally a YAML node-list file) and is
// read-only for the remainder of the process.
package rconfig

import "fmt"

// SeedMode selects how cluster membership is determined.
type SeedMode string

const (
	// SeedModeFromClusterNode discovers membership from a single seed node.
	SeedModeFromClusterNode SeedMode = "from-cluster-node"
	// SeedModeExplicitList uses an operator-supplied node list verbatim.
	SeedModeExplicitList SeedMode = "explicit-list"
)

// RunConfig is the immutable set of options recognised by the
// orchestrator, corresponding to the CLI surface in spec §3/§6.
type RunConfig struct {
	SeedMode SeedMode

	// SeedNode is the cluster member to discover membership from.
	// Only meaningful when SeedMode == SeedModeFromClusterNode.
	SeedNode string

	// ExplicitNodes is the operator-supplied node list.
	// Only meaningful when SeedMode == SeedModeExplicitList.
	ExplicitNodes []string

	SSHUser          string
	SSHOptions       []string
	SSHKeyAuthOnly   bool
	ClusterNodeUseIP bool

	DryRun bool

	PkgsReinstall []string
	ForceUpgrade  bool
	ForceReboot   bool

	UseMaintenanceMode bool
	AllowRunningGuests bool
	AllowRunningTasks  bool

	// JQPath is retained only as a compatibility no-op: this rewrite
	// parses pvesh JSON output in-process (see internal/proxmox) and
	// never shells out to jq.
	JQPath string

	Verbose int

	// MetricsAddr, when non-empty, serves Prometheus metrics for the
	// duration of the run (see internal/metrics). Not part of the
	// original shell script; see SPEC_FULL.md's domain-stack section.
	MetricsAddr string
}

// Flags captures the CLI surface exactly as the user typed it, before
// the two mutually-exclusive seed modes have been resolved into a
// single RunConfig. Keeping ClusterNode and Nodes as separate,
// independently-settable fields (rather than collapsing them into
// RunConfig.SeedNode up front) is what lets Resolve detect "both
// supplied" per spec §8.1 — collapsing early would make that case
// indistinguishable from "only one supplied".
type Flags struct {
	ClusterNode        string
	ClusterNodeSet     bool
	Nodes              []string
	NodesSet           bool
	NodesFile          string
	SSHUser            string
	SSHOptions         []string
	SSHKeyAuthOnly     bool
	ClusterNodeUseIP   bool
	DryRun             bool
	PkgsReinstall      []string
	ForceUpgrade       bool
	ForceReboot        bool
	UseMaintenanceMode bool
	AllowRunningGuests bool
	AllowRunningTasks  bool
	JQPath             string
	Verbose            int
	MetricsAddr        string
}

// Resolve validates the raw flag set and produces an immutable
// RunConfig, implementing spec §8.1 and §4.5 step 1: exactly one of
// {from-cluster-node, explicit-list} is required, and every flag that
// takes a value must have one.
func (f *Flags) Resolve() (*RunConfig, error) {
	if f.ClusterNodeSet && f.NodesSet {
		return nil, fmt.Errorf("configuration error: --cluster-node and --node are mutually exclusive")
	}
	if !f.ClusterNodeSet && !f.NodesSet {
		return nil, fmt.Errorf("configuration error: exactly one of --cluster-node or --node is required")
	}

	cfg := &RunConfig{
		SSHUser:            f.SSHUser,
		SSHOptions:         f.SSHOptions,
		SSHKeyAuthOnly:     f.SSHKeyAuthOnly,
		ClusterNodeUseIP:   f.ClusterNodeUseIP,
		DryRun:             f.DryRun,
		PkgsReinstall:      f.PkgsReinstall,
		ForceUpgrade:       f.ForceUpgrade,
		ForceReboot:        f.ForceReboot,
		UseMaintenanceMode: f.UseMaintenanceMode,
		AllowRunningGuests: f.AllowRunningGuests,
		AllowRunningTasks:  f.AllowRunningTasks,
		JQPath:             f.JQPath,
		Verbose:            f.Verbose,
		MetricsAddr:        f.MetricsAddr,
	}

	if f.ClusterNodeSet {
		if f.ClusterNode == "" {
			return nil, fmt.Errorf("configuration error: --cluster-node requires a host argument")
		}
		cfg.SeedMode = SeedModeFromClusterNode
		cfg.SeedNode = f.ClusterNode
	} else {
		nodes := append([]string(nil), f.Nodes...)
		if f.NodesFile != "" {
			fromFile, err := LoadNodesFile(f.NodesFile)
			if err != nil {
				return nil, fmt.Errorf("configuration error: %w", err)
			}
			nodes = append(nodes, fromFile...)
		}
		if len(nodes) == 0 {
			return nil, fmt.Errorf("configuration error: --node requires at least one host argument")
		}
		cfg.SeedMode = SeedModeExplicitList
		cfg.ExplicitNodes = nodes
	}

	if cfg.SSHUser == "" {
		return nil, fmt.Errorf("configuration error: ssh user must not be empty")
	}
	if cfg.Verbose < 0 || cfg.Verbose > 7 {
		return nil, fmt.Errorf("configuration error: verbosity must be between 0 and 7, got %d", cfg.Verbose)
	}

	return cfg, nil
}
