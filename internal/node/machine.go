package node

import (
	"context"
	"fmt"
	"time"

	"github.com/thanegill/proxmox-upgrade-cluster/internal/logging"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/poll"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/proxmox"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/rconfig"
)

// Machine drives one node through the spec §4.4 transition sequence.
// A fresh Machine is used per node; SeedHost is fixed for the whole run
// since ha-manager state is always queried against the seed (spec §3:
// "for any HA query, the seed used must itself be up and Proxmox").
type Machine struct {
	Client   *proxmox.Client
	Log      logging.Logger
	Timeouts *rconfig.Timeouts
	Cfg      *rconfig.RunConfig
	SeedHost string
}

// Run drives hostname through the full ready -> done sequence,
// returning the first error encountered. Steps are skipped per the
// RunConfig flags exactly as spec §4.4 describes; no step is retried
// beyond what its internal poll.Until already performs.
func (m *Machine) Run(ctx context.Context, hostname string) error {
	log := m.Log.WithPrefix(hostname)

	if err := m.waitOfflineCountZero(ctx, log); err != nil {
		return fmt.Errorf("node %s: pre-maintenance-check: %w", hostname, err)
	}

	if m.Cfg.UseMaintenanceMode {
		if err := m.Client.EnterMaintenance(ctx, hostname); err != nil {
			return fmt.Errorf("node %s: enter-maintenance: %w", hostname, err)
		}
		if !m.Cfg.DryRun {
			if err := m.waitMode(ctx, log, hostname, "maintenance"); err != nil {
				return fmt.Errorf("node %s: wait-mode=maintenance: %w", hostname, err)
			}
		}
	}

	if !m.Cfg.AllowRunningTasks {
		if err := m.waitTasksIdle(ctx, log, hostname); err != nil {
			return fmt.Errorf("node %s: wait-tasks-idle: %w", hostname, err)
		}
	}

	if !m.Cfg.AllowRunningGuests && !m.Cfg.DryRun {
		if err := m.waitGuestsDrained(ctx, log, hostname); err != nil {
			return fmt.Errorf("node %s: wait-guests-drained: %w", hostname, err)
		}
	}

	if err := m.Client.AptDistUpgrade(ctx, hostname); err != nil {
		return fmt.Errorf("node %s: upgrade: %w", hostname, err)
	}

	if err := m.maybeReboot(ctx, log, hostname); err != nil {
		return fmt.Errorf("node %s: maybe-reboot: %w", hostname, err)
	}

	if err := m.postUpgrade(ctx, hostname); err != nil {
		return fmt.Errorf("node %s: post-upgrade: %w", hostname, err)
	}

	if m.Cfg.UseMaintenanceMode {
		if err := m.waitServiceActive(ctx, log, hostname, "pve-ha-lrm"); err != nil {
			return fmt.Errorf("node %s: wait-service pve-ha-lrm: %w", hostname, err)
		}
		if err := m.Client.ExitMaintenance(ctx, hostname); err != nil {
			return fmt.Errorf("node %s: exit-maintenance: %w", hostname, err)
		}
		if !m.Cfg.DryRun {
			if err := m.waitMode(ctx, log, hostname, "online"); err != nil {
				return fmt.Errorf("node %s: wait-mode=online: %w", hostname, err)
			}
		}
	}

	log.Info("node %s upgrade complete", hostname)
	return nil
}

// waitOfflineCountZero polls the seed's ha-manager status until no
// node is reported offline (spec §4.4: "wait until cluster
// offline-count == 0", re-checked immediately before each node's
// maintenance entry, not only once globally).
func (m *Machine) waitOfflineCountZero(ctx context.Context, log logging.Logger) error {
	progress := logging.NewProgress(log)
	defer progress.Done()

	return poll.Until(ctx,
		func(ctx context.Context) (proxmox.HAManagerStatus, error) {
			return m.Client.HAManagerStatus(ctx, m.SeedHost)
		},
		func(status proxmox.HAManagerStatus) bool { return status.OfflineCount() == 0 },
		m.Timeouts.HAModePoll,
		func(status proxmox.HAManagerStatus) {
			progress.Tick(fmt.Sprintf("offline_count=%d", status.OfflineCount()))
		},
	)
}

// waitMode polls the seed's ha-manager status until hostname reports
// the given mode (spec §4.4: "poll HA until observed; skipped on
// dry-run").
func (m *Machine) waitMode(ctx context.Context, log logging.Logger, hostname, wantMode string) error {
	progress := logging.NewProgress(log)
	defer progress.Done()

	return poll.Until(ctx,
		func(ctx context.Context) (proxmox.HAManagerStatus, error) {
			return m.Client.HAManagerStatus(ctx, m.SeedHost)
		},
		func(status proxmox.HAManagerStatus) bool { return status.Mode(hostname) == wantMode },
		m.Timeouts.HAModePoll,
		func(status proxmox.HAManagerStatus) {
			progress.Tick(fmt.Sprintf("mode=%s", status.Mode(hostname)))
		},
	)
}

// waitTasksIdle polls hostname's active task list until empty (spec
// §4.4: "poll this node's active_tasks until 0"; cadence is the
// 5-second drain cadence per §4.4's "5 s for guest-drain and
// task-idle").
func (m *Machine) waitTasksIdle(ctx context.Context, log logging.Logger, hostname string) error {
	progress := logging.NewProgress(log)
	defer progress.Done()

	return poll.Until(ctx,
		func(ctx context.Context) ([]proxmox.Task, error) {
			return m.Client.ActiveTasks(ctx, hostname)
		},
		func(tasks []proxmox.Task) bool { return len(tasks) == 0 },
		m.Timeouts.DrainPoll,
		func(tasks []proxmox.Task) {
			progress.Tick(fmt.Sprintf("active_tasks=%d", len(tasks)))
		},
	)
}

// waitGuestsDrained polls hostname's running LXC+QEMU guest count
// until zero (spec §4.4 and §8.6 "drain idempotence").
func (m *Machine) waitGuestsDrained(ctx context.Context, log logging.Logger, hostname string) error {
	progress := logging.NewProgress(log)
	defer progress.Done()

	return poll.Until(ctx,
		func(ctx context.Context) (int, error) {
			lxc, err := m.Client.RunningLXC(ctx, hostname)
			if err != nil {
				return 0, err
			}
			qemu, err := m.Client.RunningQemu(ctx, hostname)
			if err != nil {
				return 0, err
			}
			return len(lxc) + len(qemu), nil
		},
		func(count int) bool { return count == 0 },
		m.Timeouts.DrainPoll,
		func(count int) {
			progress.Tick(fmt.Sprintf("running_guests=%d", count))
		},
	)
}

// maybeReboot implements spec §4.4's reboot decision and, when
// rebooting for real, the warning/issue/wait-for-liveness sequence.
func (m *Machine) maybeReboot(ctx context.Context, log logging.Logger, hostname string) error {
	needsReboot, expected, booted, err := m.Client.NeedsReboot(ctx, hostname)
	if err != nil {
		return err
	}

	reboot := m.Cfg.ForceReboot || needsReboot
	log.Info("reboot decision for %s: force_reboot=%v expected_kernel=%s booted_kernel=%s -> reboot=%v",
		hostname, m.Cfg.ForceReboot, expected, booted, reboot)

	if !reboot {
		return nil
	}

	if m.Cfg.DryRun {
		log.NoOp("reboot")
		return nil
	}

	log.Warn("rebooting %s in %s — interrupt now to cancel", hostname, m.Timeouts.RebootWarning)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.Timeouts.RebootWarning):
	}

	// Errors here are expected: the connection dies as the remote host
	// goes down. The post-reboot liveness probe below is the
	// authoritative signal, not either of these two swallowed calls.
	_ = m.Client.Reboot(ctx, hostname)
	_ = m.Client.DmesgTail(ctx, hostname)

	return m.waitLive(ctx, log, hostname)
}

// waitLive polls whoami against hostname until it answers, displaying
// progress dots (spec §4.4: "poll whoami against the host until it
// answers, displaying progress dots").
func (m *Machine) waitLive(ctx context.Context, log logging.Logger, hostname string) error {
	progress := logging.NewProgress(log)
	defer progress.Done()

	return poll.Until(ctx,
		func(ctx context.Context) (bool, error) {
			err := m.Client.Whoami(ctx, hostname, m.Timeouts.LivenessProbe)
			return err == nil, nil
		},
		func(up bool) bool { return up },
		m.Timeouts.DrainPoll,
		func(up bool) {
			progress.Tick("waiting for host to come back up")
		},
	)
}

// postUpgrade implements spec §4.4's post-upgrade step: conditional
// reinstall, then autoremove issued twice (preserved literally per
// spec §4.4/§9: "on some dependency graphs a second pass removes
// packages orphaned by the first").
func (m *Machine) postUpgrade(ctx context.Context, hostname string) error {
	if err := m.Client.AptReinstall(ctx, hostname, m.Cfg.PkgsReinstall); err != nil {
		return fmt.Errorf("apt_reinstall: %w", err)
	}
	if err := m.Client.AptAutoremove(ctx, hostname); err != nil {
		return fmt.Errorf("apt_autoremove (first pass): %w", err)
	}
	if err := m.Client.AptAutoremove(ctx, hostname); err != nil {
		return fmt.Errorf("apt_autoremove (second pass): %w", err)
	}
	return nil
}

// waitServiceActive polls systemctl is-active for name on hostname
// before the exit-maintenance transition proceeds.
func (m *Machine) waitServiceActive(ctx context.Context, log logging.Logger, hostname, name string) error {
	progress := logging.NewProgress(log)
	defer progress.Done()

	return poll.Until(ctx,
		func(ctx context.Context) (bool, error) {
			return m.Client.ServiceActive(ctx, hostname, name)
		},
		func(active bool) bool { return active },
		m.Timeouts.HAModePoll,
		func(active bool) {
			progress.Tick(fmt.Sprintf("%s active=%v", name, active))
		},
	)
}
