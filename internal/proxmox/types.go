package proxmox

// ClusterStatusEntry is one element of `pvesh get cluster/status`,
// spec §4.2/§4.3. Non-"node" entries (e.g. the cluster-wide summary
// entry pvesh also returns) are filtered out by the caller.
type ClusterStatusEntry struct {
	Type string `json:"type"`
	Name string `json:"name"`
	IP   string `json:"ip"`
}

// HAManagerStatus is the parsed shape of
// `pvesh get cluster/ha/status/manager_status`. NodeStatus is keyed by
// the raw hostname string exactly as Proxmox returns it — spec §9's
// open question about node_get_mode notes this lookup is fragile for
// hostnames with dots/special characters; this rewrite keeps the
// fragility (a map keyed by the raw string) rather than guessing at a
// more robust scheme the maintainers never specified.
type HAManagerStatus struct {
	ManagerStatus struct {
		NodeStatus map[string]string `json:"node_status"`
	} `json:"manager_status"`
}

// OfflineCount returns the number of nodes whose mode is "offline".
// Proxmox's manager_status reports modes like "online", "maintenance",
// or omits a node entirely while ha-manager hasn't observed it yet;
// spec §4.3 precondition 3 only cares about nodes explicitly reported
// offline.
func (s HAManagerStatus) OfflineCount() int {
	count := 0
	for _, mode := range s.ManagerStatus.NodeStatus {
		if mode == "offline" {
			count++
		}
	}
	return count
}

// NodeStatusMap exposes the raw hostname->mode map.
func (s HAManagerStatus) NodeStatusMap() map[string]string {
	return s.ManagerStatus.NodeStatus
}

// Mode looks up the HA-reported mode for hostname, returning "unknown"
// if ha-manager has not reported anything for it yet (spec §3: the
// current_mode attribute ranges over {online, maintenance, unknown,
// other strings echoed from HA manager}).
func (s HAManagerStatus) Mode(hostname string) string {
	if m, ok := s.ManagerStatus.NodeStatus[hostname]; ok {
		return m
	}
	return "unknown"
}

// Guest is one entry from `nodes/<host>/lxc` or `nodes/<host>/qemu`.
type Guest struct {
	VMID   int    `json:"vmid"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Running reports whether the guest counts toward the running-guest
// gate (spec §4.2: "lists filtered to entries whose status != stopped").
func (g Guest) Running() bool { return g.Status != "stopped" }

// Task is one entry from `nodes/<host>/tasks?source=active`.
type Task struct {
	UPID   string `json:"upid"`
	Type   string `json:"type"`
	Status string `json:"status"`
}
