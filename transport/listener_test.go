package transport

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/openshade/motiongo/protocol"
)

func reportPayload(t *testing.T, mac string) []byte {
	t.Helper()
	data, err := protocol.Message{
		"msgType": protocol.MsgReport,
		"mac":     mac,
		"data":    map[string]interface{}{"currentPosition": 42},
	}.Encode()
	if err != nil {
		t.Fatalf("cannot encode report: %v", err)
	}
	return data
}

func TestListenerDispatch(t *testing.T) {
	l := NewListener(WildcardInterface)

	got := make(chan protocol.Message, 1)
	l.Register("192.168.1.100", func(msg protocol.Message) { got <- msg })

	l.dispatch("192.168.1.100", reportPayload(t, "f008d1f1e8120001"))

	select {
	case msg := <-got:
		if msg.MAC() != "f008d1f1e8120001" {
			t.Errorf("MAC() = %q", msg.MAC())
		}
	default:
		t.Fatal("callback was not invoked")
	}
}

func TestListenerDispatchDrops(t *testing.T) {
	l := NewListener(WildcardInterface)

	invoked := make(chan struct{}, 4)
	l.Register("192.168.1.100", func(protocol.Message) { invoked <- struct{}{} })

	// Undecodable payload.
	l.dispatch("192.168.1.100", []byte("not json"))
	// Source IP without a registration.
	l.dispatch("192.168.1.200", reportPayload(t, "f008d1f1e8120001"))

	select {
	case <-invoked:
		t.Fatal("callback invoked for a dropped message")
	default:
	}
}

func TestListenerDispatchSurvivesPanic(t *testing.T) {
	l := NewListener(WildcardInterface)
	l.Register("192.168.1.100", func(protocol.Message) { panic("callback bug") })

	// Must not propagate; a broken callback cannot kill the receive loop.
	l.dispatch("192.168.1.100", reportPayload(t, "f008d1f1e8120001"))
}

func TestListenerRegisterOverwrites(t *testing.T) {
	l := NewListener(WildcardInterface)

	first := make(chan struct{}, 1)
	second := make(chan struct{}, 1)
	l.Register("192.168.1.100", func(protocol.Message) { first <- struct{}{} })
	l.Register("192.168.1.100", func(protocol.Message) { second <- struct{}{} })

	l.dispatch("192.168.1.100", reportPayload(t, "f008d1f1e8120001"))

	select {
	case <-first:
		t.Error("overwritten callback was invoked")
	default:
	}
	select {
	case <-second:
	default:
		t.Error("replacement callback was not invoked")
	}
}

func TestListenerUnregister(t *testing.T) {
	l := NewListener(WildcardInterface)

	invoked := make(chan struct{}, 1)
	l.Register("192.168.1.100", func(protocol.Message) { invoked <- struct{}{} })
	l.Unregister("192.168.1.100")

	l.dispatch("192.168.1.100", reportPayload(t, "f008d1f1e8120001"))

	select {
	case <-invoked:
		t.Error("callback invoked after unregister")
	default:
	}
}

func TestListenerStartOnceUnderContention(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("cannot open loopback socket: %v", err)
	}

	l := NewListener(WildcardInterface)
	// Inject a loopback socket so Start skips the multicast join.
	l.conn = conn

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Start()
		}()
	}
	wg.Wait()

	got := make(chan protocol.Message, 1)
	l.Register("127.0.0.1", func(msg protocol.Message) {
		select {
		case got <- msg:
		default:
		}
	})

	sender, err := net.Dial("udp", conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("cannot dial listener: %v", err)
	}
	defer sender.Close()
	if _, err := sender.Write(reportPayload(t, "f008d1f1e8120001")); err != nil {
		t.Fatalf("cannot send: %v", err)
	}

	select {
	case msg := <-got:
		if msg.MAC() != "f008d1f1e8120001" {
			t.Errorf("MAC() = %q", msg.MAC())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("datagram not delivered")
	}

	l.Stop()
	l.mu.Lock()
	released := l.conn == nil
	l.mu.Unlock()
	if !released {
		t.Error("socket not released after Stop")
	}
}

func TestListenerStopWithoutStart(t *testing.T) {
	l := NewListener(WildcardInterface)
	// Must be a harmless no-op.
	l.Stop()
	l.Stop()
}
