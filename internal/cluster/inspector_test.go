package cluster

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thanegill/proxmox-upgrade-cluster/internal/logging"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/proxmox"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/rconfig"
	"github.com/thanegill/proxmox-upgrade-cluster/internal/sshexec/sshexectest"
)

func newInspector(fake *sshexectest.Fake, cfg *rconfig.RunConfig) *Inspector {
	log := logging.New(io.Discard, 0)
	return &Inspector{
		Client:   proxmox.NewClient(fake, cfg.DryRun, log),
		Log:      log,
		Cfg:      cfg,
		Timeouts: &rconfig.Timeouts{LivenessProbe: 50 * time.Millisecond},
	}
}

func TestDiscover_ProjectsNameByDefault(t *testing.T) {
	fake := sshexectest.NewFake()
	fake.Responses["pvesh get cluster/status  --output-form=json"] = sshexectest.Response{
		Stdout: `[{"type":"node","name":"pve1","ip":"10.0.0.1"},{"type":"node","name":"pve2","ip":"10.0.0.2"},{"type":"cluster","name":"mycluster","ip":""}]`,
	}
	i := newInspector(fake, &rconfig.RunConfig{})

	view, err := i.Discover(context.Background(), "pve1")
	require.NoError(t, err)
	assert.Equal(t, []string{"pve1", "pve2"}, view.Members)
}

func TestDiscover_ProjectsIPWhenConfigured(t *testing.T) {
	fake := sshexectest.NewFake()
	fake.Responses["pvesh get cluster/status  --output-form=json"] = sshexectest.Response{
		Stdout: `[{"type":"node","name":"pve1","ip":"10.0.0.1"},{"type":"node","name":"pve2","ip":"10.0.0.2"}]`,
	}
	i := newInspector(fake, &rconfig.RunConfig{ClusterNodeUseIP: true})

	view, err := i.Discover(context.Background(), "pve1")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, view.Members)
}

func TestCheckPreconditions_OfflineCountBlocks_ScenarioD(t *testing.T) {
	fake := sshexectest.NewFake()
	fake.Responses["whoami"] = sshexectest.Response{Stdout: "root"}
	fake.Responses["hash pvesh"] = sshexectest.Response{ExitCode: 0}
	fake.Responses["pvesh get nodes/$(hostname)/tasks --source=active --output-form=json"] = sshexectest.Response{Stdout: `[]`}
	fake.Responses["pvesh get cluster/ha/status/manager_status  --output-form=json"] = sshexectest.Response{
		Stdout: `{"manager_status":{"node_status":{"pve1":"online","pve2":"offline"}}}`,
	}
	i := newInspector(fake, &rconfig.RunConfig{})
	view := View{Seed: "pve1", Members: []string{"pve1", "pve2"}}

	failures, err := i.CheckPreconditions(context.Background(), view)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Reason, "offline")
}

func TestCheckPreconditions_AllHealthy(t *testing.T) {
	fake := sshexectest.NewFake()
	fake.Responses["whoami"] = sshexectest.Response{Stdout: "root"}
	fake.Responses["hash pvesh"] = sshexectest.Response{ExitCode: 0}
	fake.Responses["pvesh get nodes/$(hostname)/tasks --source=active --output-form=json"] = sshexectest.Response{Stdout: `[]`}
	fake.Responses["pvesh get cluster/ha/status/manager_status  --output-form=json"] = sshexectest.Response{
		Stdout: `{"manager_status":{"node_status":{"pve1":"online","pve2":"online"}}}`,
	}
	i := newInspector(fake, &rconfig.RunConfig{})
	view := View{Seed: "pve1", Members: []string{"pve1", "pve2"}}

	failures, err := i.CheckPreconditions(context.Background(), view)
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func TestCheckPreconditions_UnreachableNodeDoesNotBlockOthers(t *testing.T) {
	fake := sshexectest.NewFake()
	fake.Handler = func(host, command string) sshexectest.Response {
		if command == "whoami" && host == "pve2" {
			return sshexectest.Response{Err: assert.AnError}
		}
		switch command {
		case "whoami":
			return sshexectest.Response{Stdout: "root"}
		case "hash pvesh":
			return sshexectest.Response{ExitCode: 0}
		case "pvesh get nodes/$(hostname)/tasks --source=active --output-form=json":
			return sshexectest.Response{Stdout: `[]`}
		case "pvesh get cluster/ha/status/manager_status  --output-form=json":
			return sshexectest.Response{Stdout: `{"manager_status":{"node_status":{"pve1":"online","pve2":"online"}}}`}
		}
		return sshexectest.Response{}
	}
	i := newInspector(fake, &rconfig.RunConfig{})
	view := View{Seed: "pve1", Members: []string{"pve1", "pve2"}}

	failures, err := i.CheckPreconditions(context.Background(), view)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "pve2", failures[0].Node)
}

func TestSelectUpgradeCandidates_HasUpdatesSemantics(t *testing.T) {
	fake := sshexectest.NewFake()
	fake.Handler = func(host, command string) sshexectest.Response {
		if command == "DEBIAN_FRONTEND=noninteractive apt-get -qq -s upgrade" {
			if host == "pve1" {
				return sshexectest.Response{Stdout: ""}
			}
			return sshexectest.Response{Stdout: "Inst linux-image-amd64"}
		}
		return sshexectest.Response{}
	}
	i := newInspector(fake, &rconfig.RunConfig{})
	view := View{Seed: "pve1", Members: []string{"pve1", "pve2"}}

	candidates, err := i.SelectUpgradeCandidates(context.Background(), view)
	require.NoError(t, err)
	assert.Equal(t, []string{"pve2"}, candidates)
}

func TestSelectUpgradeCandidates_ForceUpgradeIncludesAll(t *testing.T) {
	fake := sshexectest.NewFake()
	fake.Responses["DEBIAN_FRONTEND=noninteractive apt-get -qq -s upgrade"] = sshexectest.Response{Stdout: ""}
	i := newInspector(fake, &rconfig.RunConfig{ForceUpgrade: true})
	view := View{Seed: "pve1", Members: []string{"pve1", "pve2"}}

	candidates, err := i.SelectUpgradeCandidates(context.Background(), view)
	require.NoError(t, err)
	assert.Equal(t, []string{"pve1", "pve2"}, candidates)
}
