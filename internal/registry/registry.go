// Package registry holds the node registry: relays publish their public key once at startup and
// circuit builders fetch the full directory. Entries are not authenticated.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/SWAI-Ltd/onionmesh/internal/crypto"
	"github.com/SWAI-Ltd/onionmesh/internal/proto"
)

var registeredNodes = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "onionmesh",
		Subsystem: "registry",
		Name:      "nodes",
		Help:      "Number of relays currently registered",
	},
)

func init() {
	prometheus.MustRegister(registeredNodes)
}

// Registry is an in-memory directory of relay public keys.
type Registry struct {
	mu    sync.RWMutex
	nodes map[int]proto.NodeInfo
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{nodes: make(map[int]proto.NodeInfo)}
}

// Register stores or replaces the entry for n.NodeID.
func (r *Registry) Register(n proto.NodeInfo) error {
	if n.NodeID < 0 {
		return fmt.Errorf("registry: negative node id %d", n.NodeID)
	}
	if _, err := crypto.ImportPublicKey(n.PublicKey); err != nil {
		return fmt.Errorf("registry: node %d: %w", n.NodeID, err)
	}
	r.mu.Lock()
	r.nodes[n.NodeID] = n
	count := len(r.nodes)
	r.mu.Unlock()
	registeredNodes.Set(float64(count))
	return nil
}

// Nodes returns every entry ordered by node id.
func (r *Registry) Nodes() []proto.NodeInfo {
	r.mu.RLock()
	out := make([]proto.NodeInfo, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}
