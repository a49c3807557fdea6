package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/betamos/zeroconf"
)

const (
	ServiceType = "_onionmesh._udp"

	relayPrefix = "relay-"
)

// Peer represents a relay discovered on the local network
type Peer struct {
	Name   string
	NodeID int // -1 when the instance name does not carry one
	Addr   string
	Port   int

	// Removed is set when the relay has left the network; only Name and NodeID are filled in.
	Removed bool
}

// Discovery handles mDNS announcement and browsing of relays
type Discovery struct {
	client *zeroconf.Client
}

// New publishes this relay and browses for others
func New(nodeName string, port int, onPeer func(Peer)) (*Discovery, error) {
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("zeroconf: invalid port %d", port)
	}
	svcType := zeroconf.NewType(ServiceType)
	self := zeroconf.NewService(svcType, nodeName, uint16(port))

	client, err := zeroconf.New().
		Publish(self).
		Browse(func(e zeroconf.Event) {
			if peer, ok := peerEvent(e.Name, int(e.Port), addrStrings(e), e.Op == zeroconf.OpRemoved); ok && onPeer != nil {
				onPeer(peer)
			}
		}, svcType).
		Open()
	if err != nil {
		return nil, fmt.Errorf("zeroconf: %w", err)
	}

	return &Discovery{client: client}, nil
}

func addrStrings(e zeroconf.Event) []string {
	var addrs []string
	for _, a := range e.Addrs {
		if a.IsValid() {
			addrs = append(addrs, a.String())
		}
	}
	return addrs
}

// peerEvent turns a browse event into a Peer. Removals carry no addresses.
func peerEvent(name string, port int, ips []string, removed bool) (Peer, bool) {
	if removed {
		return Peer{Name: name, NodeID: NodeIDFromName(name), Removed: true}, true
	}
	return peerFrom(name, port, ips)
}

// peerFrom builds a Peer, preferring an IPv4 address when the service has several.
func peerFrom(name string, port int, ips []string) (Peer, bool) {
	if len(ips) == 0 {
		return Peer{}, false
	}
	ip := ips[0]
	for _, a := range ips {
		if !strings.Contains(a, ":") {
			ip = a
			break
		}
	}
	return Peer{
		Name:   name,
		NodeID: NodeIDFromName(name),
		Addr:   net.JoinHostPort(ip, strconv.Itoa(port)),
		Port:   port,
	}, true
}

// RelayName is the mDNS instance name a relay announces itself under.
func RelayName(nodeID int) string {
	return relayPrefix + strconv.Itoa(nodeID)
}

// NodeIDFromName reverses RelayName, returning -1 for foreign names.
func NodeIDFromName(name string) int {
	s, ok := strings.CutPrefix(name, relayPrefix)
	if !ok {
		return -1
	}
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return -1
	}
	return id
}

// Close stops discovery
func (d *Discovery) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}

// ParseAddr splits "host:port" into its parts
func ParseAddr(s string) (host string, port int, err error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, err
	}
	port, err = strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}
