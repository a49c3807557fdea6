package mesh

import (
	"sync"

	"github.com/SWAI-Ltd/onionmesh/internal/proto"
)

// CircuitHop is the only part of a circuit a relay learns: itself and its successor.
type CircuitHop struct {
	From int
	To   proto.Address
}

// Observation is what a relay recorded for one processed message.
type Observation struct {
	Encrypted   []byte
	Decrypted   []byte
	Destination proto.Address
	Hop         CircuitHop
}

func (o Observation) clone() Observation {
	o.Encrypted = append([]byte(nil), o.Encrypted...)
	o.Decrypted = append([]byte(nil), o.Decrypted...)
	return o
}

// State holds a relay's last observation. Writers replace it whole, last writer wins.
type State struct {
	mu  sync.RWMutex
	obs Observation
	set bool
}

// NewState returns an empty State.
func NewState() *State {
	return &State{}
}

// Record replaces the current observation with a copy of o.
func (s *State) Record(o Observation) {
	o = o.clone()
	s.mu.Lock()
	s.obs = o
	s.set = true
	s.mu.Unlock()
}

// Snapshot returns a copy of the current observation, or false if none was recorded yet.
func (s *State) Snapshot() (Observation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return Observation{}, false
	}
	return s.obs.clone(), true
}
