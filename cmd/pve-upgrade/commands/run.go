package commands

import (
	"github.com/spf13/cobra"

	"github.com/thanegill/proxmox-upgrade-cluster/cmd/pve-upgrade/handlers"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/rconfig"
)

// Run returns the command that performs the rolling upgrade (spec
// §4.5/§6). Two mutually exclusive seed modes are offered:
// --cluster-node|-c <host> or one-or-more --node|-n <host>.
func Run() *cobra.Command {
	var flags rconfig.Flags
	var identityFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Upgrade every node in a Proxmox VE cluster, one at a time",
		Long: `Upgrade a Proxmox VE cluster one node at a time: for each node,
enter HA maintenance mode, drain guests, run apt dist-upgrade, reboot
if the kernel changed, clean up packages, and exit maintenance mode.

Cluster membership is supplied either as a single seed node to
discover the rest of the cluster from, or as an explicit node list.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags.ClusterNodeSet = cmd.Flags().Changed("cluster-node")
			flags.NodesSet = cmd.Flags().Changed("node")
			if !cmd.Flags().Changed("verbose") {
				flags.Verbose = rconfig.DefaultVerbose()
			}
			opts := handlers.RunOptions{
				Flags:        &flags,
				IdentityFile: identityFile,
			}
			return handlers.Run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.ClusterNode, "cluster-node", "c", "", "seed node to discover cluster membership from")
	f.StringArrayVarP(&flags.Nodes, "node", "n", nil, "explicit node to upgrade (repeatable)")
	f.StringVar(&flags.NodesFile, "nodes-file", "", "YAML file listing additional explicit nodes")

	f.StringVar(&flags.SSHUser, "ssh-user", rconfig.DefaultSSHUser(), "SSH user (env PVE_UPGRADE_SSH_USER)")
	f.StringVar(&identityFile, "ssh-identity", "", "path to an SSH private key file")
	f.StringArrayVar(&flags.SSHOptions, "ssh-option", nil, "extra SSH option, logged at -vvvvv; not applied by the built-in SSH client (repeatable)")
	f.BoolVar(&flags.SSHKeyAuthOnly, "ssh-key-auth-only", true, "disable SSH password authentication")
	f.BoolVar(&flags.ClusterNodeUseIP, "cluster-node-use-ip", false, "project discovered members by IP instead of name")

	f.BoolVar(&flags.DryRun, "dry-run", false, "log intended mutating commands instead of executing them")
	f.StringArrayVar(&flags.PkgsReinstall, "pkgs-reinstall", nil, "package to reinstall after upgrading (repeatable)")
	f.BoolVar(&flags.ForceUpgrade, "force-upgrade", false, "upgrade every node regardless of apt-get -s upgrade output")
	f.BoolVar(&flags.ForceReboot, "force-reboot", false, "reboot every upgraded node regardless of kernel match")

	f.BoolVar(&flags.UseMaintenanceMode, "use-maintenance-mode", true, "enter/exit HA maintenance mode around each node's upgrade")
	f.BoolVar(&flags.AllowRunningGuests, "allow-running-guests", false, "skip the wait-for-drained-guests gate")
	f.BoolVar(&flags.AllowRunningTasks, "allow-running-tasks", false, "skip the active-task preconditions and gates")

	f.StringVar(&flags.JQPath, "jq-path", "", "compatibility no-op; JSON is always parsed in-process")
	f.CountVarP(&flags.Verbose, "verbose", "v", "increase log verbosity (repeatable, max 7; default from env PVE_UPGRADE_VERBOSE)")
	f.StringVar(&flags.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address for the run's duration")

	return cmd
}
