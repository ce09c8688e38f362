package transport

import (
	"fmt"
	"net"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"github.com/openshade/motiongo/internal/logging"
	"github.com/openshade/motiongo/protocol"
)

// WildcardInterface selects the wildcard interface for multicast traffic.
// On multi-homed machines, pass the host IP address instead.
const WildcardInterface = "any"

// OpenMulticast opens a UDP socket bound to the multicast receive port and
// joins the protocol's multicast group. iface is either WildcardInterface or
// the local IP address of the interface to use. The caller owns the returned
// connection and must close it.
func OpenMulticast(iface string, port int) (*net.UDPConn, error) {
	var ifi *net.Interface
	if iface != WildcardInterface {
		found, err := interfaceByIP(iface)
		if err != nil {
			return nil, err
		}
		ifi = found
	}

	group := net.ParseIP(protocol.MulticastGroup)
	conn, err := net.ListenMulticastUDP("udp4", ifi, &net.UDPAddr{IP: group, Port: port})
	if err != nil {
		return nil, fmt.Errorf("failed to join multicast group %s: %w", protocol.MulticastGroup, err)
	}

	// Outbound multicast (the discovery request) must leave through the
	// same interface the group was joined on.
	pc := ipv4.NewPacketConn(conn)
	if ifi != nil {
		if err := pc.SetMulticastInterface(ifi); err != nil {
			logging.Error("failed to pin multicast interface, falling back to routing table",
				zap.String("interface", iface),
				zap.Error(err),
			)
		}
	}
	if err := pc.SetMulticastLoopback(false); err != nil {
		logging.Debug("failed to disable multicast loopback", zap.Error(err))
	}

	return conn, nil
}

// interfaceByIP finds the network interface carrying the given local IP.
func interfaceByIP(ip string) (*net.Interface, error) {
	want := net.ParseIP(ip)
	if want == nil {
		return nil, fmt.Errorf("invalid interface address %q", ip)
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list network interfaces: %w", err)
	}
	for i := range ifaces {
		addrs, err := ifaces[i].Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if ok && ipNet.IP.Equal(want) {
				return &ifaces[i], nil
			}
		}
	}
	return nil, fmt.Errorf("no network interface has address %s", ip)
}

// isTimeout reports whether err is a socket deadline expiry.
func isTimeout(err error) bool {
	netErr, ok := err.(net.Error)
	return ok && netErr.Timeout()
}

// groupAddr returns the group destination for a send port.
func groupAddr(port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(protocol.MulticastGroup), Port: port}
}
