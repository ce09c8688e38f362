package transport

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/openshade/motiongo/internal/logging"
	"github.com/openshade/motiongo/internal/metrics"
	"github.com/openshade/motiongo/protocol"
)

// MaxAttempts is the retry ceiling for a unicast exchange that receives
// nothing at all. A timeout after at least one datagram is not retried; the
// collected datagrams are the reply.
const MaxAttempts = 3

// Unicast performs request/response exchanges against a gateway. A fresh
// socket is opened per exchange, so a single Unicast value can serve any
// number of gateways and goroutines.
type Unicast struct {
	// Timeout applies per attempt, not per exchange.
	Timeout time.Duration

	// FragmentTimeout is the shorter deadline between datagrams of a
	// multi-datagram reply.
	FragmentTimeout time.Duration

	// Port is the gateway request port.
	Port int

	// OnActionResult, when set, is invoked for every decoded reply carrying
	// an actionResult field, after the failure has been logged. Gateways
	// rotate session tokens through these replies.
	OnActionResult func(protocol.Message)
}

// NewUnicast returns a Unicast with the protocol default timing.
func NewUnicast() *Unicast {
	return &Unicast{
		Timeout:         3 * time.Second,
		FragmentTimeout: 200 * time.Millisecond,
		Port:            protocol.PortSend,
	}
}

// Exchange sends one request to addr and returns the decoded replies. When
// expectMultiple is false the reply is a single document and only the first
// decoded document is returned (still as a one-element slice). A reply at or
// above the fragment threshold keeps the read loop going until a shorter
// datagram terminates the burst.
func (u *Unicast) Exchange(addr string, msg protocol.Message, expectMultiple bool) ([]protocol.Message, error) {
	payload, err := msg.Encode()
	if err != nil {
		return nil, err
	}

	var raw [][]byte
	for attempt := 1; ; attempt++ {
		raw, err = u.attempt(addr, payload, msg, expectMultiple)
		if err == nil {
			break
		}
		if !isTimeout(err) {
			return nil, err
		}
		if attempt >= MaxAttempts {
			metrics.UnicastTimeouts.Inc()
			logging.Error("unicast exchange timed out on every attempt",
				zap.String("addr", addr),
				zap.Duration("timeout", u.Timeout),
				zap.Int("attempts", attempt),
				logging.Document("request", msg),
			)
			return nil, protocol.NewTimeoutError(
				fmt.Sprintf("no response after %d attempts of %s each", MaxAttempts, u.Timeout), err, addr)
		}
		metrics.UnicastRetries.Inc()
		logging.Debug("unicast attempt timed out, retrying",
			zap.String("addr", addr),
			zap.Int("attempt", attempt),
			logging.Document("request", msg),
		)
	}

	responses := make([]protocol.Message, 0, len(raw))
	for _, datagram := range raw {
		decoded, err := protocol.Decode(datagram)
		if err != nil {
			return nil, err
		}
		responses = append(responses, decoded)
	}

	for _, response := range responses {
		if !response.Has("actionResult") {
			continue
		}
		logging.Error("gateway reported an action failure",
			zap.String("addr", addr),
			zap.String("actionResult", response.String("actionResult")),
			logging.Document("request", msg),
			logging.Document("response", response),
		)
		if u.OnActionResult != nil {
			u.OnActionResult(response)
		}
	}

	if !expectMultiple {
		return responses[:1], nil
	}
	return responses, nil
}

// attempt runs one request/response round. A timeout with nothing collected
// is returned to the caller for retry; a timeout after at least one datagram
// means the burst is over and the collected datagrams are the reply.
func (u *Unicast) attempt(addr string, payload []byte, msg protocol.Message, expectMultiple bool) ([][]byte, error) {
	conn, err := net.Dial("udp", net.JoinHostPort(addr, strconv.Itoa(u.Port)))
	if err != nil {
		return nil, fmt.Errorf("failed to open socket to %s: %w", addr, err)
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(u.Timeout)); err != nil {
		return nil, fmt.Errorf("failed to set socket deadline: %w", err)
	}
	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", addr, err)
	}
	metrics.UnicastRequests.Inc()

	var raw [][]byte
	buf := make([]byte, protocol.ReceiveBufferSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if isTimeout(err) && len(raw) > 0 {
				// The terminal fragment never came; what we have is the
				// whole reply.
				return raw, nil
			}
			if isTimeout(err) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to read response from %s: %w", addr, err)
		}

		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		raw = append(raw, datagram)

		if n < protocol.FragmentThreshold {
			return raw, nil
		}

		metrics.Fragments.Inc()
		if err := conn.SetReadDeadline(time.Now().Add(u.FragmentTimeout)); err != nil {
			return nil, fmt.Errorf("failed to set socket deadline: %w", err)
		}

		if !expectMultiple {
			logging.Error("fragmented reply while expecting a single response",
				zap.String("addr", addr),
				zap.Int("length", n),
				zap.Int("threshold", protocol.FragmentThreshold),
				logging.Document("request", msg),
			)
			return raw, nil
		}
	}
}
