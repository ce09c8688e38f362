package transport

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/openshade/motiongo/internal/logging"
	"github.com/openshade/motiongo/protocol"
)

// DefaultDiscoveryWindow is the default collection window for discovery.
const DefaultDiscoveryWindow = 10 * time.Second

// Discovery finds Motion gateways by broadcasting an unauthenticated device
// list request on the multicast group and collecting replies for a bounded
// window.
type Discovery struct {
	// Interface is the local IP to bind to, or WildcardInterface.
	Interface string

	// Window is the hard collection deadline. Partial results collected up
	// to that point are still returned.
	Window time.Duration

	// SendPort and ReceivePort override the protocol ports (tests only).
	SendPort    int
	ReceivePort int
}

// NewDiscovery returns a Discovery with default settings.
func NewDiscovery() *Discovery {
	return &Discovery{
		Interface:   WildcardInterface,
		Window:      DefaultDiscoveryWindow,
		SendPort:    protocol.PortSend,
		ReceivePort: protocol.PortReceive,
	}
}

// Discover broadcasts a discovery request and returns every gateway that
// answered within the window, keyed by source IP. The last reply from a
// given IP wins. An empty map with a nil error means nothing answered.
func (d *Discovery) Discover() (map[string]protocol.Message, error) {
	return d.DiscoverWithContext(context.Background())
}

// DiscoverWithContext discovers with a custom context. Cancelling the
// context ends collection early; results gathered so far are returned.
func (d *Discovery) DiscoverWithContext(ctx context.Context) (map[string]protocol.Message, error) {
	conn, err := OpenMulticast(d.Interface, d.ReceivePort)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	// Interrupt a blocked read when the context goes away.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.SetReadDeadline(time.Now())
		case <-watchDone:
		}
	}()

	request := protocol.NewDeviceListRequest()
	payload, err := request.Encode()
	if err != nil {
		return nil, err
	}
	if _, err := conn.WriteToUDP(payload, groupAddr(d.SendPort)); err != nil {
		return nil, protocol.NewTimeoutError("failed to send discovery request", err, protocol.MulticastGroup)
	}

	found := d.collect(conn, time.Now().Add(d.Window))

	if len(found) == 0 {
		logging.Warn("no gateways discovered",
			zap.Duration("window", d.Window),
		)
	}
	return found, nil
}

// collect reads discovery replies until the deadline, keeping the device
// list acknowledgments keyed by source IP. Heartbeats are expected noise;
// anything else is logged and discarded.
func (d *Discovery) collect(conn *net.UDPConn, deadline time.Time) map[string]protocol.Message {
	found := make(map[string]protocol.Message)
	buf := make([]byte, protocol.ReceiveBufferSize)

	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if !isTimeout(err) {
				logging.Error("discovery read failed", zap.Error(err))
			}
			break
		}

		response, err := protocol.Decode(buf[:n])
		if err != nil {
			logging.Debug("dropping undecodable discovery reply",
				zap.String("src", src.IP.String()),
				zap.Error(err),
			)
			continue
		}

		switch response.Type() {
		case protocol.MsgGetDeviceListAck:
		case protocol.MsgHeartbeat:
			continue
		default:
			logging.Error("discovery reply is not a GetDeviceListAck",
				zap.String("src", src.IP.String()),
				zap.String("msgType", response.Type()),
			)
			continue
		}

		if !protocol.IsControllerType(response.DeviceType()) {
			logging.Error("discovery reply from a device type that is not a known controller",
				zap.String("src", src.IP.String()),
				zap.String("deviceType", response.DeviceType()),
			)
			continue
		}

		found[src.IP.String()] = response
	}
	return found
}
