package rconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// nodesFileDoc is the shape of an optional --nodes-file: a flat list
// of hostnames/IPs, the same values the operator could otherwise pass
// as repeated --node flags.
type nodesFileDoc struct {
	Nodes []string `yaml:"nodes"`
}

// LoadNodesFile reads a YAML node list, giving explicit-list mode a
// second way to supply its hosts for large clusters where typing
// --node repeatedly is impractical. This is additive to spec §3/§6:
// the two required modes are unchanged.
func LoadNodesFile(path string) ([]string, error) {
	// #nosec G304 -- operator-supplied path, same trust boundary as config.LoadFile in the teacher.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read nodes file: %w", err)
	}

	var doc nodesFileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse nodes file: %w", err)
	}

	return doc.Nodes, nil
}
