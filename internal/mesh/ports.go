package mesh

import (
	"net"
	"strconv"

	"github.com/SWAI-Ltd/onionmesh/internal/proto"
)

// Ports maps node and user ids onto the addresses carried in layers.
type Ports struct {
	Host          string
	RegistryPort  int
	BaseRelayPort int
	BaseUserPort  int
}

// DefaultPorts matches the stock deployment: registry on 8080, relays from 4000, users from 3000.
var DefaultPorts = Ports{
	Host:          "127.0.0.1",
	RegistryPort:  8080,
	BaseRelayPort: 4000,
	BaseUserPort:  3000,
}

// RelayAddress is where relay id listens.
func (p Ports) RelayAddress(id int) proto.Address { return proto.Address(p.BaseRelayPort + id) }

// UserAddress is where user id listens.
func (p Ports) UserAddress(id int) proto.Address { return proto.Address(p.BaseUserPort + id) }

// Listen returns the host:port to bind for addr.
func (p Ports) Listen(addr proto.Address) string {
	return net.JoinHostPort(p.Host, addr.String())
}

// Registry returns the registry's host:port.
func (p Ports) Registry() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.RegistryPort))
}
