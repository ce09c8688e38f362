package transport

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/openshade/motiongo/internal/logging"
	"github.com/openshade/motiongo/internal/metrics"
	"github.com/openshade/motiongo/protocol"
)

// listenTimeout bounds each blocking read so Stop can interrupt the loop
// within one interval.
const listenTimeout = 2 * time.Second

// Callback receives a decoded multicast message.
type Callback func(protocol.Message)

// Listener is a long-lived multicast receiver. It joins the protocol's
// multicast group once and dispatches every inbound message to the callback
// registered for its source IP.
//
// One Listener serves any number of gateways. Callbacks run on the
// listener's goroutine: they must not block for long or they stall delivery
// of subsequent pushes.
type Listener struct {
	// Interface is the local IP to bind to, or WildcardInterface.
	Interface string

	// ReceivePort overrides the multicast receive port (tests only).
	ReceivePort int

	mu        sync.Mutex
	callbacks map[string]Callback
	conn      *net.UDPConn
	listening atomic.Bool
	wg        sync.WaitGroup
}

// NewListener creates a Listener bound to the given interface.
func NewListener(iface string) *Listener {
	return &Listener{
		Interface:   iface,
		ReceivePort: protocol.PortReceive,
		callbacks:   make(map[string]Callback),
	}
}

// Register installs the callback for messages from ip. Registering twice for
// the same ip overwrites the previous callback with a logged error.
func (l *Listener) Register(ip string, callback Callback) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.callbacks[ip]; exists {
		logging.Error("a callback for this ip was already registered, overwriting previous callback",
			zap.String("ip", ip),
		)
	}
	l.callbacks[ip] = callback
}

// Unregister removes the callback for ip, if any.
func (l *Listener) Unregister(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.callbacks, ip)
}

// Start opens the multicast socket and begins the receive loop on a
// background goroutine. Starting an already running listener is a logged
// no-op.
func (l *Listener) Start() error {
	// Claiming the flag and spawning the loop must be one atomic step, or
	// two racing Start calls would both spawn a loop on the same socket.
	if !l.listening.CompareAndSwap(false, true) {
		logging.Error("multicast listener already started, not starting another one")
		return nil
	}

	l.mu.Lock()
	if l.conn == nil {
		logging.Info("creating multicast socket",
			zap.String("interface", l.Interface),
			zap.Int("port", l.ReceivePort),
		)
		conn, err := OpenMulticast(l.Interface, l.ReceivePort)
		if err != nil {
			l.mu.Unlock()
			l.listening.Store(false)
			return err
		}
		l.conn = conn
	}
	conn := l.conn
	l.mu.Unlock()

	l.wg.Add(1)
	go l.loop(conn)
	return nil
}

// Stop signals the receive loop to exit, waits for it, and releases the
// socket. Stopping a stopped listener is harmless.
func (l *Listener) Stop() {
	if !l.listening.Swap(false) {
		return
	}
	l.wg.Wait()
	logging.Info("multicast listener stopped")

	l.mu.Lock()
	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
	}
	l.mu.Unlock()
}

// loop blocks on receive with a short deadline so Stop can interrupt it
// promptly. Decode and callback failures never terminate the loop.
func (l *Listener) loop(conn *net.UDPConn) {
	defer l.wg.Done()

	buf := make([]byte, protocol.ReceiveBufferSize)
	for l.listening.Load() {
		conn.SetReadDeadline(time.Now().Add(listenTimeout))
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if l.listening.Load() {
				logging.Error("multicast read failed", zap.Error(err))
			}
			continue
		}
		l.dispatch(src.IP.String(), buf[:n])
	}
}

// dispatch decodes one datagram and hands it to the callback registered for
// its source IP.
func (l *Listener) dispatch(ip string, data []byte) {
	message, err := protocol.Decode(data)
	if err != nil {
		metrics.PushesDropped.Inc()
		logging.Error("cannot process multicast message",
			zap.String("ip", ip),
			zap.Int("length", len(data)),
			zap.Error(err),
		)
		return
	}

	l.mu.Lock()
	callback, ok := l.callbacks[ip]
	l.mu.Unlock()

	if !ok {
		metrics.PushesDropped.Inc()
		logging.Info("multicast message from unregistered ip",
			zap.String("ip", ip),
			zap.String("msgType", message.Type()),
		)
		return
	}

	l.invoke(ip, callback, message)
}

// invoke shields the receive loop from a panicking callback.
func (l *Listener) invoke(ip string, callback Callback, message protocol.Message) {
	defer func() {
		if r := recover(); r != nil {
			metrics.PushesDropped.Inc()
			logging.Error("multicast callback panicked",
				zap.String("ip", ip),
				zap.Any("panic", r),
				logging.Document("message", message),
			)
		}
	}()
	callback(message)
	metrics.PushesDispatched.Inc()
}
