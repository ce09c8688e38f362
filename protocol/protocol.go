package protocol

// Network constants for the Motion gateway protocol.
const (
	// MulticastGroup is the multicast address used for discovery and pushes.
	MulticastGroup = "238.0.0.18"

	// PortSend is the UDP port gateways listen on for requests, and the port
	// multicast discovery requests are sent to.
	PortSend = 32100

	// PortReceive is the UDP port multicast replies and pushes arrive on.
	PortReceive = 32101

	// ReceiveBufferSize is the receive buffer for a single datagram.
	ReceiveBufferSize = 4096

	// MaxResponseLength is the largest reply the gateway sends in one
	// datagram. Longer replies are split across several datagrams.
	MaxResponseLength = 1024

	// FragmentThreshold marks a datagram as a fragment of a larger reply.
	// A datagram of at least 90% of MaxResponseLength is followed by more;
	// the first shorter one terminates the burst.
	FragmentThreshold = MaxResponseLength * 9 / 10
)

// Message type tags.
const (
	MsgGetDeviceList    = "GetDeviceList"
	MsgGetDeviceListAck = "GetDeviceListAck"
	MsgReadDevice       = "ReadDevice"
	MsgReadDeviceAck    = "ReadDeviceAck"
	MsgWriteDevice      = "WriteDevice"
	MsgWriteDeviceAck   = "WriteDeviceAck"
	MsgReport           = "Report"
	MsgHeartbeat        = "Heartbeat"
)

// Wire device-type codes.
const (
	DeviceTypeGateway     = "02000001" // Gateway
	DeviceTypeGateway2    = "02000002" // Gateway (newer hardware)
	DeviceTypeBlind       = "10000000" // Standard blind
	DeviceTypeTDBU        = "10000001" // Top Down Bottom Up
	DeviceTypeDR          = "10000002" // Double Roller
	DeviceTypeWiFiCurtain = "22000000" // Curtain, direct WiFi
	DeviceTypeWiFiBlind   = "22000002" // Standard blind, direct WiFi
)

// ControllerTypes lists every device-type code that answers discovery:
// gateways plus direct-WiFi devices that act as their own controller.
var ControllerTypes = []string{
	DeviceTypeGateway,
	DeviceTypeGateway2,
	DeviceTypeWiFiBlind,
	DeviceTypeWiFiCurtain,
}

// GatewayTypes lists the device-type codes of pure gateways.
var GatewayTypes = []string{
	DeviceTypeGateway,
	DeviceTypeGateway2,
}

// CoverTypes lists the device-type codes of covers a gateway can report in
// its device list.
var CoverTypes = []string{
	DeviceTypeBlind,
	DeviceTypeTDBU,
	DeviceTypeDR,
	DeviceTypeWiFiBlind,
	DeviceTypeWiFiCurtain,
}

// IsControllerType reports whether code identifies a gateway or a direct-WiFi
// device.
func IsControllerType(code string) bool {
	return contains(ControllerTypes, code)
}

// IsGatewayType reports whether code identifies a pure gateway.
func IsGatewayType(code string) bool {
	return contains(GatewayTypes, code)
}

// IsCoverType reports whether code identifies a known cover.
func IsCoverType(code string) bool {
	return contains(CoverTypes, code)
}

func contains(set []string, code string) bool {
	for _, c := range set {
		if c == code {
			return true
		}
	}
	return false
}
