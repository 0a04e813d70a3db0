package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_TracksNodeLifecycle(t *testing.T) {
	r := New()
	r.SetNodesTotal(3)
	r.SetCurrentNodeState("pve2", "running")
	r.IncNodesCompleted()
	r.SetCurrentNodeState("pve2", "done")
	r.AddFanoutFailures(2)

	assert.Equal(t, float64(3), testutil.ToFloat64(r.nodesTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.nodesCompleted))
	assert.Equal(t, float64(2), testutil.ToFloat64(r.fanoutFailuresTotal))
}
