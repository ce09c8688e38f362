package gateway

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openshade/motiongo/config"
	"github.com/openshade/motiongo/internal/logging"
	"github.com/openshade/motiongo/protocol"
	"github.com/openshade/motiongo/transport"
)

// DefaultMulticastTimeout bounds each wait for a multicast push after a
// status-query trigger.
const DefaultMulticastTimeout = 5 * time.Second

// Gateway represents one physical Motion controller and owns its covers.
// All state access is serialized through an internal mutex: a foreground
// refresh and a background push can race on the same entity.
type Gateway struct {
	addr string
	key  string

	unicast      *transport.Unicast
	listener     *transport.Listener
	mcastTimeout time.Duration
	iface        string
	receivePort  int

	mu              sync.Mutex
	token           string
	accessToken     string
	mac             string
	deviceType      string
	protocolVersion string
	firmwareVersion string
	status          protocol.GatewayStatus
	deviceCount     int
	rssi            int
	available       bool
	covers          map[string]Cover
	callbacks       map[string]func()
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithSettings applies client settings (timeouts, interface, ports).
func WithSettings(s config.Settings) Option {
	return func(g *Gateway) {
		g.unicast.Timeout = s.Timeout.Std()
		g.unicast.FragmentTimeout = s.FragmentTimeout.Std()
		g.unicast.Port = s.SendPort
		g.mcastTimeout = s.MulticastTimeout.Std()
		g.iface = s.Interface
		g.receivePort = s.ReceivePort
	}
}

// WithListener shares a running multicast listener with this gateway. The
// gateway registers itself for pushes from its own IP.
func WithListener(l *transport.Listener) Option {
	return func(g *Gateway) {
		g.listener = l
	}
}

// New creates a Gateway for the controller at addr, authenticated with the
// pairing key. The gateway starts Unregistered: call GetDeviceList to learn
// its MAC, session token and cover inventory.
func New(addr, key string, opts ...Option) *Gateway {
	g := &Gateway{
		addr:         addr,
		key:          key,
		unicast:      transport.NewUnicast(),
		mcastTimeout: DefaultMulticastTimeout,
		iface:        transport.WildcardInterface,
		receivePort:  protocol.PortReceive,
		status:       protocol.GatewayStatusUnknown,
		covers:       make(map[string]Cover),
		callbacks:    make(map[string]func()),
	}
	g.unicast.OnActionResult = g.handleActionResult

	for _, opt := range opts {
		opt(g)
	}

	if g.listener != nil {
		g.listener.Register(addr, g.MulticastCallback)
	}
	return g
}

// handleActionResult self-heals a server-side token rotation reported
// alongside an action failure. The failure itself was already logged by the
// transport.
func (g *Gateway) handleActionResult(response protocol.Message) {
	token := response.String("token")
	if token == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token != token {
		logging.Warn("gateway token has changed", zap.String("addr", g.addr))
		g.token = token
		g.accessToken = ""
	}
}

// send runs one unicast exchange against this gateway. A final timeout
// marks the gateway unavailable.
func (g *Gateway) send(msg protocol.Message, expectMultiple bool) ([]protocol.Message, error) {
	responses, err := g.unicast.Exchange(g.addr, msg, expectMultiple)
	if err != nil {
		if protocol.IsTimeoutError(err) {
			g.mu.Lock()
			g.available = false
			g.mu.Unlock()
		}
		return nil, err
	}
	return responses, nil
}

// accessTokenLocked returns the derived access token, computing it lazily
// from key and session token. g.mu must be held.
func (g *Gateway) accessTokenLocked() (string, error) {
	if g.accessToken != "" {
		return g.accessToken, nil
	}
	derived, err := protocol.DeriveAccessToken(g.key, g.token)
	if err != nil {
		return "", err
	}
	g.accessToken = derived
	return derived, nil
}

// AccessToken returns the access token derived from the pairing key and the
// session token, deriving it if needed. Fails with a credential error until
// a device-list exchange has supplied the session token.
func (g *Gateway) AccessToken() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.accessTokenLocked()
}

// GetDeviceList runs the unauthenticated device-list exchange: it learns
// the gateway's MAC, session token and protocol version, and creates a
// Cover for every newly observed child MAC. Existing covers are never
// replaced. Returns the cover inventory keyed by MAC.
func (g *Gateway) GetDeviceList() (map[string]Cover, error) {
	responses, err := g.send(protocol.NewDeviceListRequest(), true)
	if err != nil {
		if protocol.IsTimeoutError(err) {
			g.markCoversUnavailable()
		}
		return nil, err
	}

	for _, response := range responses {
		if response.Type() != protocol.MsgGetDeviceListAck {
			logging.Error("response to GetDeviceList is not a GetDeviceListAck",
				zap.String("addr", g.addr),
				zap.String("msgType", response.Type()),
			)
			return g.Covers(), nil
		}
		if err := g.applyDeviceList(response); err != nil {
			return nil, err
		}
	}
	return g.Covers(), nil
}

// applyDeviceList reconciles a GetDeviceListAck into gateway state and the
// cover inventory.
func (g *Gateway) applyDeviceList(response protocol.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	deviceType := response.DeviceType()
	if deviceType == "" {
		deviceType = g.deviceType
	}
	if !protocol.IsControllerType(deviceType) {
		logging.Warn("device list from a device type that is not a known controller",
			zap.String("addr", g.addr),
			zap.String("deviceType", deviceType),
		)
	}

	mac := response.MAC()
	token := response.String("token")
	if mac == "" || token == "" {
		logging.Error("device list response missing mac or token",
			zap.String("addr", g.addr),
			logging.Document("response", response),
		)
		return protocol.NewParseError("device list response missing mac or token", nil)
	}

	if g.token != "" && g.token != token {
		logging.Warn("gateway token has changed", zap.String("addr", g.addr))
		g.accessToken = ""
	}

	g.mac = mac
	g.deviceType = deviceType
	g.protocolVersion = response.String("ProtocolVersion")
	g.firmwareVersion = response.String("fwVersion")
	g.token = token
	g.available = true

	if _, err := g.accessTokenLocked(); err != nil {
		logging.Error("cannot derive access token", zap.String("addr", g.addr), zap.Error(err))
	}

	for _, child := range response.DataList() {
		childType := child.DeviceType()
		childMAC := child.MAC()
		if protocol.IsGatewayType(childType) || childMAC == "" {
			continue
		}
		if _, exists := g.covers[childMAC]; exists {
			// Covers are mutated in place, never recreated; external
			// references stay valid across refreshes.
			continue
		}

		switch childType {
		case protocol.DeviceTypeBlind, protocol.DeviceTypeWiFiBlind, protocol.DeviceTypeWiFiCurtain:
			g.covers[childMAC] = newStandardCover(g, childMAC, childType, defaultMaxAngle)
		case protocol.DeviceTypeDR:
			// Double rollers report angle on a narrower range.
			g.covers[childMAC] = newStandardCover(g, childMAC, childType, 90)
		case protocol.DeviceTypeTDBU:
			g.covers[childMAC] = newDualMotorCover(g, childMAC, childType)
		default:
			logging.Warn("device has a type that is not a gateway or known cover",
				zap.String("mac", childMAC),
				zap.String("deviceType", childType),
			)
		}
	}
	return nil
}

// Update reads the gateway's own status. If the gateway is not yet Ready
// (no MAC, device type or access token), a device-list exchange runs first.
func (g *Gateway) Update() error {
	g.mu.Lock()
	_, tokenErr := g.accessTokenLocked()
	ready := g.mac != "" && g.deviceType != "" && tokenErr == nil
	g.mu.Unlock()

	if !ready {
		logging.Debug("gateway mac or device type not yet retrieved, running GetDeviceList first",
			zap.String("addr", g.addr),
		)
		if _, err := g.GetDeviceList(); err != nil {
			return err
		}
	}

	g.mu.Lock()
	accessToken, err := g.accessTokenLocked()
	mac, deviceType := g.mac, g.deviceType
	g.mu.Unlock()
	if err != nil {
		return err
	}

	responses, err := g.send(protocol.NewReadRequest(mac, deviceType, accessToken), false)
	if err != nil {
		if protocol.IsTimeoutError(err) {
			g.markCoversUnavailable()
		}
		return err
	}

	response := responses[0]
	if response.Type() != protocol.MsgReadDeviceAck {
		logging.Error("response to Update is not a ReadDeviceAck",
			zap.String("addr", g.addr),
			zap.String("msgType", response.Type()),
		)
		return nil
	}
	return g.applyStatus(response)
}

// applyStatus reconciles a gateway-level status document (ReadDeviceAck,
// Report or Heartbeat) into gateway state.
func (g *Gateway) applyStatus(response protocol.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	deviceType := response.DeviceType()
	if deviceType == "" {
		deviceType = g.deviceType
	}
	if !protocol.IsControllerType(deviceType) {
		logging.Warn("status from a device type that is not a known controller",
			zap.String("addr", g.addr),
			zap.String("deviceType", deviceType),
		)
	}

	mac := response.MAC()
	if mac == "" {
		logging.Error("gateway status response carries no mac",
			zap.String("addr", g.addr),
			logging.Document("response", response),
		)
		return protocol.NewParseError("gateway status response carries no mac", nil)
	}

	g.mac = mac
	g.deviceType = deviceType
	g.available = true

	data := response.Data()
	if data == nil {
		return nil
	}

	if raw, ok, err := intField(data, "currentState"); err != nil {
		return g.parseFailureLocked(response, err)
	} else if ok {
		status, known := protocol.GatewayStatusFromWire(raw)
		if !known && g.status != protocol.GatewayStatusUnknown {
			logging.Warn("gateway reported a status that is not yet known",
				zap.String("addr", g.addr),
				zap.Int("currentState", raw),
			)
		}
		g.status = status
	}

	if raw, ok, err := intField(data, "numberOfDevices"); err != nil {
		return g.parseFailureLocked(response, err)
	} else if ok {
		g.deviceCount = raw
	} else {
		g.deviceCount = 0
	}

	if raw, ok, err := intField(data, "RSSI"); err != nil {
		return g.parseFailureLocked(response, err)
	} else if ok {
		g.rssi = raw
	}
	return nil
}

// parseFailureLocked logs a structurally broken response and wraps the
// cause as a parse error. g.mu must be held.
func (g *Gateway) parseFailureLocked(response protocol.Message, cause error) error {
	logging.Error("gateway sent a response with unexpected data",
		zap.String("addr", g.addr),
		zap.Error(cause),
		logging.Document("response", response),
	)
	return protocol.NewParseError("unexpected data in gateway response", cause)
}

// MulticastCallback processes one multicast push for this gateway. It is
// the callback to register on a transport.Listener; WithListener does so
// automatically.
func (g *Gateway) MulticastCallback(message protocol.Message) {
	if message.Has("actionResult") {
		logging.Error("received actionResult on multicast listener",
			zap.String("addr", g.addr),
			zap.String("actionResult", message.String("actionResult")),
			logging.Document("message", message),
		)
		return
	}

	mac := message.MAC()
	g.mu.Lock()
	ownMAC := g.mac
	cover, isCover := g.covers[mac]
	haveCovers := len(g.covers) > 0
	g.mu.Unlock()

	switch message.Type() {
	case protocol.MsgReport:
		if mac == ownMAC {
			g.applyStatus(message)
			g.notify()
			return
		}
		if !isCover {
			if haveCovers {
				logging.Warn("multicast push for a mac that is not in the device list",
					zap.String("mac", mac),
					logging.Document("message", message),
				)
			}
			return
		}
		cover.multicastCallback(message)
	case protocol.MsgHeartbeat:
		if ownMAC != "" && mac != ownMAC {
			logging.Warn("multicast heartbeat mac does not agree with gateway mac",
				zap.String("mac", mac),
				zap.String("gatewayMAC", ownMAC),
			)
			return
		}
		g.applyStatus(message)
		g.notify()
	case protocol.MsgGetDeviceListAck:
		if ownMAC != "" && mac != ownMAC {
			logging.Warn("multicast GetDeviceListAck mac does not agree with gateway mac",
				zap.String("mac", mac),
				zap.String("gatewayMAC", ownMAC),
			)
			return
		}
		g.applyDeviceList(message)
		g.notify()
	default:
		logging.Warn("unknown msgType received from multicast push",
			zap.String("msgType", message.Type()),
			logging.Document("message", message),
		)
	}
}

// CheckMulticast verifies the multicast path end to end: it triggers a
// status query on every cover and reports whether any push arrived within
// the multicast timeout. Requires a shared listener.
func (g *Gateway) CheckMulticast() bool {
	if g.listener == nil {
		logging.Error("CheckMulticast requires a listener supplied via WithListener")
		return false
	}

	got := make(chan struct{}, 1)
	probe := func() {
		select {
		case got <- struct{}{}:
		default:
		}
	}

	id := "multicast-check-" + uuid.NewString()
	g.RegisterCallback(id, probe)
	defer g.UnregisterCallback(id)

	if len(g.Covers()) == 0 {
		logging.Debug("device list not yet retrieved, running GetDeviceList before multicast check")
		if _, err := g.GetDeviceList(); err != nil {
			return false
		}
	}

	covers := g.Covers()
	for _, cover := range covers {
		coverID := "multicast-check-" + uuid.NewString()
		cover.RegisterCallback(coverID, probe)
		defer cover.UnregisterCallback(coverID)
	}

	for _, cover := range covers {
		if err := cover.UpdateTrigger(); err != nil {
			logging.Debug("multicast check trigger failed", zap.Error(err))
		}
	}

	select {
	case <-got:
		return true
	case <-time.After(g.mcastTimeout):
		return false
	}
}

// readDevice runs an authenticated status read for one child device.
func (g *Gateway) readDevice(mac, deviceType string) (protocol.Message, error) {
	accessToken, err := g.AccessToken()
	if err != nil {
		return nil, err
	}
	responses, err := g.send(protocol.NewReadRequest(mac, deviceType, accessToken), false)
	if err != nil {
		return nil, err
	}
	return responses[0], nil
}

// writeDevice runs an authenticated command write for one child device.
func (g *Gateway) writeDevice(mac, deviceType string, data protocol.Message) (protocol.Message, error) {
	accessToken, err := g.AccessToken()
	if err != nil {
		return nil, err
	}
	responses, err := g.send(protocol.NewWriteRequest(mac, deviceType, accessToken, data), false)
	if err != nil {
		return nil, err
	}
	return responses[0], nil
}

func (g *Gateway) markCoversUnavailable() {
	for _, cover := range g.Covers() {
		cover.setAvailable(false)
	}
}

// RegisterCallback installs an update callback invoked, with no arguments,
// whenever fresh gateway state has been parsed from a push. Registering an
// id twice overwrites the previous callback with a logged error.
func (g *Gateway) RegisterCallback(id string, callback func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.callbacks[id]; exists {
		logging.Error("a callback with this id was already registered, overwriting previous callback",
			zap.String("id", id),
		)
	}
	g.callbacks[id] = callback
}

// UnregisterCallback removes a callback by id.
func (g *Gateway) UnregisterCallback(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.callbacks, id)
}

// ClearCallbacks removes every registered callback.
func (g *Gateway) ClearCallbacks() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.callbacks = make(map[string]func())
}

// notify invokes the registered callbacks outside the entity lock.
func (g *Gateway) notify() {
	g.mu.Lock()
	callbacks := make([]func(), 0, len(g.callbacks))
	for _, cb := range g.callbacks {
		callbacks = append(callbacks, cb)
	}
	g.mu.Unlock()
	for _, cb := range callbacks {
		cb()
	}
}

// Addr returns the gateway's network address.
func (g *Gateway) Addr() string {
	return g.addr
}

// MAC returns the gateway's hardware MAC, or "" before the first successful
// device-list exchange.
func (g *Gateway) MAC() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mac
}

// DeviceType returns the gateway's wire device-type code.
func (g *Gateway) DeviceType() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.deviceType
}

// Token returns the current session token.
func (g *Gateway) Token() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token
}

// ProtocolVersion returns the protocol version string.
func (g *Gateway) ProtocolVersion() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.protocolVersion
}

// FirmwareVersion returns the firmware version string.
func (g *Gateway) FirmwareVersion() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.firmwareVersion
}

// Status returns the gateway operating status.
func (g *Gateway) Status() protocol.GatewayStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// DeviceCount returns the number of child devices the gateway reported.
func (g *Gateway) DeviceCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.deviceCount
}

// SignalStrength returns the gateway's WiFi signal strength in dBm.
func (g *Gateway) SignalStrength() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rssi
}

// Available reports whether the last exchange with the gateway succeeded.
func (g *Gateway) Available() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.available
}

// Covers returns the cover inventory keyed by MAC. The map is a copy; the
// Cover values are the live entities.
func (g *Gateway) Covers() map[string]Cover {
	g.mu.Lock()
	defer g.mu.Unlock()
	covers := make(map[string]Cover, len(g.covers))
	for mac, cover := range g.covers {
		covers[mac] = cover
	}
	return covers
}

// Cover returns the cover with the given MAC.
func (g *Gateway) Cover(mac string) (Cover, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cover, ok := g.covers[mac]
	return cover, ok
}

// String returns a debug representation of the gateway.
func (g *Gateway) String() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("<Gateway addr: %s, mac: %s, protocol: %s, firmware: %s, devices: %d, status: %s, RSSI: %d dBm>",
		g.addr, g.mac, g.protocolVersion, g.firmwareVersion, g.deviceCount, g.status, g.rssi)
}
