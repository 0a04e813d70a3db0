package cluster

// Plan is an ordered sequence of nodes to upgrade, built once after
// global preconditions pass (spec §3's UpgradePlan). Order mirrors the
// order nodes were discovered or supplied.
type Plan struct {
	Nodes []string
}

// NewPlan builds a Plan from the candidates SelectUpgradeCandidates
// returned, preserving their order.
func NewPlan(candidates []string) Plan {
	return Plan{Nodes: candidates}
}

// Empty reports whether the plan has no nodes to upgrade (spec §4.5
// step 6: "If empty and not forcing, emit 'no nodes need updates' and
// exit 0").
func (p Plan) Empty() bool { return len(p.Nodes) == 0 }
