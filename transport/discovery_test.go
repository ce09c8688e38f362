package transport

import (
	"net"
	"testing"
	"time"

	"github.com/openshade/motiongo/protocol"
)

// sendFrom writes one datagram to dst with the given loopback source
// address. Linux routes the whole 127.0.0.0/8 block to loopback, which
// gives tests distinct source IPs without real interfaces.
func sendFrom(t *testing.T, srcIP string, dst *net.UDPAddr, payload []byte) {
	t.Helper()
	src := &net.UDPAddr{IP: net.ParseIP(srcIP)}
	conn, err := net.DialUDP("udp", src, dst)
	if err != nil {
		t.Fatalf("cannot dial from %s: %v", srcIP, err)
	}
	defer conn.Close()
	if _, err := conn.Write(payload); err != nil {
		t.Fatalf("cannot send from %s: %v", srcIP, err)
	}
}

func deviceListAck(t *testing.T, deviceType, token string) []byte {
	t.Helper()
	data, err := protocol.Message{
		"msgType":    protocol.MsgGetDeviceListAck,
		"mac":        "f008d1f1e812",
		"deviceType": deviceType,
		"token":      token,
	}.Encode()
	if err != nil {
		t.Fatalf("cannot encode ack: %v", err)
	}
	return data
}

func TestDiscoveryCollect(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("cannot open receive socket: %v", err)
	}
	defer conn.Close()
	dst := conn.LocalAddr().(*net.UDPAddr)

	heartbeat, err := protocol.Message{"msgType": protocol.MsgHeartbeat, "mac": "f008d1f1e812"}.Encode()
	if err != nil {
		t.Fatalf("cannot encode heartbeat: %v", err)
	}
	report, err := protocol.Message{"msgType": protocol.MsgReport, "mac": "f008d1f1e8120001"}.Encode()
	if err != nil {
		t.Fatalf("cannot encode report: %v", err)
	}

	// Two gateways on distinct IPs, plus every kind of noise discovery has
	// to shrug off. The second ack from 127.0.0.1 must win over the first.
	sendFrom(t, "127.0.0.1", dst, deviceListAck(t, protocol.DeviceTypeGateway, "stale-token-0000"))
	sendFrom(t, "127.0.0.1", dst, heartbeat)
	sendFrom(t, "127.0.0.1", dst, []byte("not json"))
	sendFrom(t, "127.0.0.1", dst, report)
	sendFrom(t, "127.0.0.2", dst, deviceListAck(t, protocol.DeviceTypeBlind, "child-not-ctrl00"))
	sendFrom(t, "127.0.0.2", dst, deviceListAck(t, protocol.DeviceTypeGateway2, "gw2-token-000000"))
	sendFrom(t, "127.0.0.1", dst, deviceListAck(t, protocol.DeviceTypeGateway, "fresh-token-0001"))

	d := NewDiscovery()
	found := d.collect(conn, time.Now().Add(500*time.Millisecond))

	if len(found) != 2 {
		t.Fatalf("len(found) = %d, want 2: %v", len(found), found)
	}
	first, ok := found["127.0.0.1"]
	if !ok {
		t.Fatal("no reply recorded for 127.0.0.1")
	}
	if first.String("token") != "fresh-token-0001" {
		t.Errorf("token = %q, want the last reply from that ip to win", first.String("token"))
	}
	second, ok := found["127.0.0.2"]
	if !ok {
		t.Fatal("no reply recorded for 127.0.0.2")
	}
	if second.DeviceType() != protocol.DeviceTypeGateway2 {
		t.Errorf("deviceType = %q", second.DeviceType())
	}
}

func TestDiscoveryCollectEmpty(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("cannot open receive socket: %v", err)
	}
	defer conn.Close()

	d := NewDiscovery()
	start := time.Now()
	found := d.collect(conn, time.Now().Add(150*time.Millisecond))

	if len(found) != 0 {
		t.Errorf("len(found) = %d, want 0", len(found))
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("collect returned after %v, should hold the full window", elapsed)
	}
}
