package mesh

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/SWAI-Ltd/onionmesh/internal/proto"
)

var errUnreachable = errors.New("connection refused")

type delivery struct {
	addr    proto.Address
	payload []byte
}

// memNet is an in-process Sender: it routes by address to registered handlers and records
// every call. Unknown addresses fail like an unreachable port.
type memNet struct {
	mu       sync.Mutex
	handlers map[proto.Address]func(context.Context, []byte) error
	sent     []delivery
}

func newMemNet() *memNet {
	return &memNet{handlers: make(map[proto.Address]func(context.Context, []byte) error)}
}

func (n *memNet) handle(addr proto.Address, h func(context.Context, []byte) error) {
	n.mu.Lock()
	n.handlers[addr] = h
	n.mu.Unlock()
}

func (n *memNet) SendMessage(ctx context.Context, addr proto.Address, raw []byte) error {
	n.mu.Lock()
	n.sent = append(n.sent, delivery{addr: addr, payload: append([]byte(nil), raw...)})
	h, ok := n.handlers[addr]
	n.mu.Unlock()
	if !ok {
		return fmt.Errorf("dial %s: %w", addr, errUnreachable)
	}
	return h(ctx, raw)
}

func (n *memNet) deliveries() []delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]delivery(nil), n.sent...)
}

// sink accepts anything.
func sink(context.Context, []byte) error { return nil }

type staticDirectory []proto.NodeInfo

func (d staticDirectory) Nodes(context.Context) ([]proto.NodeInfo, error) { return d, nil }

type fakeRegistrar struct {
	mu   sync.Mutex
	err  error
	seen map[int]string
}

func (f *fakeRegistrar) Register(_ context.Context, nodeID int, publicKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = make(map[int]string)
	}
	f.seen[nodeID] = publicKey
	return f.err
}
