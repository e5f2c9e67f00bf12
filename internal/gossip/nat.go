package gossip

import (
	"fmt"
	"net"

	"github.com/huin/goupnp/dcps/internetgateway1"
	"github.com/jackpal/gateway"
	natpmp "github.com/jackpal/go-nat-pmp"
)

// NATManager opens and closes a port mapping on the local gateway so this
// node's UDP gossip socket is reachable from outside its NAT, preferring
// NAT-PMP and falling back to UPnP IGDv1 (adapted from
// core/nat_traversal.go's NewNATManager/Map/Unmap, which does the same for
// a TCP libp2p listener).
type NATManager struct {
	ip         net.IP
	pmp        *natpmp.Client
	upnp       *internetgateway1.WANIPConnection1
	mappedPort int
}

// DiscoverNAT probes the local network's gateway for a usable port-mapping
// protocol and the node's external IP.
func DiscoverNAT() (*NATManager, error) {
	m := &NATManager{}
	if gw, err := gateway.DiscoverGateway(); err == nil {
		m.pmp = natpmp.NewClient(gw)
		if res, err := m.pmp.GetExternalAddress(); err == nil {
			m.ip = net.IPv4(res.ExternalIPAddress[0], res.ExternalIPAddress[1], res.ExternalIPAddress[2], res.ExternalIPAddress[3])
		}
	}
	if m.ip == nil {
		if clients, _, err := internetgateway1.NewWANIPConnection1Clients(); err == nil && len(clients) > 0 {
			m.upnp = clients[0]
			if ipStr, err := m.upnp.GetExternalIPAddress(); err == nil {
				m.ip = net.ParseIP(ipStr)
			}
		}
	}
	if m.ip == nil {
		return nil, fmt.Errorf("gossip: nat gateway not found")
	}
	return m, nil
}

// ExternalIP returns the node's detected public address.
func (m *NATManager) ExternalIP() net.IP { return m.ip }

// MapUDP opens port on the gateway for UDP traffic, the gossip socket's
// transport.
func (m *NATManager) MapUDP(port int) error {
	if m.pmp != nil {
		if _, err := m.pmp.AddPortMapping("udp", port, port, 3600); err == nil {
			m.mappedPort = port
			return nil
		}
	}
	if m.upnp != nil {
		if err := m.upnp.AddPortMapping("", uint16(port), "UDP", uint16(port), m.ip.String(), true, "mikron", 3600); err == nil {
			m.mappedPort = port
			return nil
		}
	}
	return fmt.Errorf("gossip: port mapping failed")
}

// Unmap removes the mapping established by MapUDP, if any.
func (m *NATManager) Unmap() error {
	if m.mappedPort == 0 {
		return nil
	}
	if m.pmp != nil {
		if _, err := m.pmp.AddPortMapping("udp", m.mappedPort, m.mappedPort, 0); err != nil {
			return err
		}
		m.mappedPort = 0
		return nil
	}
	if m.upnp != nil {
		if err := m.upnp.DeletePortMapping("", uint16(m.mappedPort), "UDP"); err != nil {
			return err
		}
		m.mappedPort = 0
	}
	return nil
}
