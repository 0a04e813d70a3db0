package fanout

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thanegill/proxmox-upgrade-cluster/internal/logging"
)

func TestRun_AggregatesFailures(t *testing.T) {
	log := logging.New(io.Discard, 0)
	tasks := []Task{
		{Name: "pve1", Run: func(context.Context) error { return nil }},
		{Name: "pve2", Run: func(context.Context) error { return fmt.Errorf("boom") }},
		{Name: "pve3", Run: func(context.Context) error { return fmt.Errorf("boom2") }},
	}

	report := Run(context.Background(), log, tasks)
	assert.False(t, report.OK())
	assert.Len(t, report.Failures(), 2)
}

func TestRun_AllSucceedIsOK(t *testing.T) {
	log := logging.New(io.Discard, 0)
	tasks := []Task{
		{Name: "pve1", Run: func(context.Context) error { return nil }},
		{Name: "pve2", Run: func(context.Context) error { return nil }},
	}

	report := Run(context.Background(), log, tasks)
	assert.True(t, report.OK())
	assert.Empty(t, report.Failures())
}

func TestRun_OneFailureDoesNotStopOthers(t *testing.T) {
	log := logging.New(io.Discard, 0)
	var ran []string
	tasks := []Task{
		{Name: "pve1", Run: func(context.Context) error { ran = append(ran, "pve1"); return fmt.Errorf("fail") }},
		{Name: "pve2", Run: func(context.Context) error { ran = append(ran, "pve2"); return nil }},
		{Name: "pve3", Run: func(context.Context) error { ran = append(ran, "pve3"); return nil }},
	}

	report := Run(context.Background(), log, tasks)
	assert.Len(t, report.Results, 3)
	assert.ElementsMatch(t, []string{"pve1", "pve2", "pve3"}, ran)
}

func TestRun_EachResultHasStableID(t *testing.T) {
	log := logging.New(io.Discard, 0)
	tasks := []Task{
		{Name: "pve1", Run: func(context.Context) error { return nil }},
		{Name: "pve2", Run: func(context.Context) error { return nil }},
	}

	report := Run(context.Background(), log, tasks)
	ids := map[string]bool{}
	for _, r := range report.Results {
		assert.NotEmpty(t, r.ID)
		assert.False(t, ids[r.ID], "task IDs must be unique")
		ids[r.ID] = true
	}
}
