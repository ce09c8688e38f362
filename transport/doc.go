// Package transport moves Motion protocol documents over UDP.
//
// Three mechanisms are implemented:
//
//   - Unicast: one request datagram to the gateway's request port, one or
//     more reply datagrams back on the same socket. Replies longer than a
//     single datagram arrive as a burst of near-maximum-size fragments
//     terminated by a shorter one. Timeouts with nothing received retry the
//     whole request up to a fixed attempt ceiling.
//
//   - Discovery: an unauthenticated device-list request broadcast on the
//     protocol's multicast group, collecting replies keyed by source IP for
//     a bounded window.
//
//   - Listener: a long-lived receiver joined to the multicast group,
//     dispatching each push to the callback registered for its source IP on
//     a background goroutine.
//
// # Usage Example
//
//	// Find gateways on the local network
//	scanner := transport.NewDiscovery()
//	found, err := scanner.Discover()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for ip := range found {
//	    fmt.Printf("gateway at %s\n", ip)
//	}
//
//	// Receive pushes for one gateway
//	listener := transport.NewListener("any")
//	listener.Register("192.168.1.100", func(msg protocol.Message) {
//	    fmt.Printf("push: %s\n", msg.Type())
//	})
//	if err := listener.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer listener.Stop()
//
// # Network Requirements
//
//   - Requires multicast support on the network interface
//   - Gateways must be on the same local network segment
//   - Firewall must allow UDP ports 32100 (send) and 32101 (receive)
//
// # Thread Safety
//
// A Unicast exchange opens a fresh socket per call and may run concurrently
// with the Listener. Listener callbacks run on the listener's goroutine and
// must not block for long or they stall delivery of subsequent pushes.
package transport
