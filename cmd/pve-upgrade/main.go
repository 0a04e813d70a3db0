// Command pve-upgrade rolls a Proxmox VE cluster through a one-node-
// at-a-time package upgrade, keeping the rest of the cluster serving
// guests throughout.
//
// For usage, run:
//
//	pve-upgrade --help
package main

import (
	"fmt"
	"os"

	"github.com/thanegill/proxmox-upgrade-cluster/cmd/pve-upgrade/commands"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/upgradeerr"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(upgradeerr.ExitCode(err))
	}
}
