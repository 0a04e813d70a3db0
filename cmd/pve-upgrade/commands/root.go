// Package commands defines the CLI command structure and flag
// bindings. Commands parse and validate arguments; execution is
// delegated to handlers.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the pve-upgrade CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pve-upgrade",
		Short: "Roll a Proxmox VE cluster through a one-node-at-a-time package upgrade",
	}

	cmd.AddCommand(Run())
	cmd.AddCommand(Version())

	return cmd
}
