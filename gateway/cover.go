package gateway

import (
	"fmt"
	"math"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openshade/motiongo/internal/logging"
	"github.com/openshade/motiongo/protocol"
	"github.com/openshade/motiongo/transport"
)

// defaultMaxAngle is the tilt range of a regular blind. Double rollers and
// Shangri-La blinds tilt over 90 degrees instead.
const defaultMaxAngle = 180

// updateAttempts bounds the trigger-and-wait rounds of a push-confirmed
// refresh.
const updateAttempts = 5

// Cover is the read and refresh surface shared by both cover variants.
// Motion commands differ per variant; type-switch on *StandardCover and
// *DualMotorCover to control a cover.
type Cover interface {
	// MAC returns the cover's hardware MAC.
	MAC() string

	// DeviceType returns the cover's wire device-type code.
	DeviceType() string

	// BlindType returns the mechanical model of the cover.
	BlindType() protocol.BlindType

	// WirelessMode returns the radio mode, which governs which status
	// fields the cover can report.
	WirelessMode() protocol.WirelessMode

	// VoltageMode returns the power supply mode.
	VoltageMode() protocol.VoltageMode

	// Available reports whether the cover's gateway answered the last
	// exchange involving this cover.
	Available() bool

	// SignalStrength returns the radio signal strength in dBm.
	SignalStrength() int

	// LastReport returns when the last multicast Report for this cover
	// arrived, or the zero time if none has.
	LastReport() time.Time

	// RegisterCallback installs an update callback invoked whenever fresh
	// state for this cover has been parsed from a push.
	RegisterCallback(id string, callback func())

	// UnregisterCallback removes a callback by id.
	UnregisterCallback(id string)

	// ClearCallbacks removes every registered callback.
	ClearCallbacks()

	// Update triggers a status query and blocks until the authoritative
	// multicast Report lands, bounded and retried. Unidirectional covers
	// cannot report, so Update degrades to UpdateTrigger for them.
	Update() error

	// UpdateTrigger triggers a status query and accepts the gateway's
	// immediate cached reply without waiting for a push.
	UpdateTrigger() error

	// UpdateFromCache refreshes from the gateway cache with an
	// authenticated read, without asking the motor for fresh state.
	UpdateFromCache() error

	fmt.Stringer

	multicastCallback(protocol.Message)
	setAvailable(bool)
}

// variant is the part of a cover that differs between one and two motors.
type variant interface {
	queryPayload() protocol.Message
	applyResponse(protocol.Message) error
}

// coverState is the shared half of both cover variants.
type coverState struct {
	gw      *Gateway
	variant variant

	mu              sync.Mutex
	mac             string
	deviceType      string
	blindType       protocol.BlindType
	blindTypeSet    bool
	wirelessMode    protocol.WirelessMode
	wirelessModeSet bool
	voltageMode     protocol.VoltageMode
	voltageModeSet  bool
	maxAngle        float64
	rssi            int
	charging        bool
	available       bool
	lastReport      time.Time
	reportCh        chan struct{}
	callbacks       map[string]func()
}

func newCoverState(gw *Gateway, mac, deviceType string, maxAngle float64) coverState {
	return coverState{
		gw:         gw,
		mac:        mac,
		deviceType: deviceType,
		blindType:  protocol.BlindTypeUnknown,
		maxAngle:   maxAngle,
		reportCh:   make(chan struct{}, 1),
		callbacks:  make(map[string]func()),
	}
}

// MAC returns the cover's hardware MAC.
func (c *coverState) MAC() string {
	return c.mac
}

// DeviceType returns the cover's wire device-type code.
func (c *coverState) DeviceType() string {
	return c.deviceType
}

// BlindType returns the mechanical model of the cover.
func (c *coverState) BlindType() protocol.BlindType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blindType
}

// WirelessMode returns the radio mode of the cover.
func (c *coverState) WirelessMode() protocol.WirelessMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.wirelessModeSet {
		return protocol.WirelessModeUnknown
	}
	return c.wirelessMode
}

// VoltageMode returns the power supply mode of the cover.
func (c *coverState) VoltageMode() protocol.VoltageMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.voltageModeSet {
		return protocol.VoltageModeUnknown
	}
	return c.voltageMode
}

// Available reports whether the gateway answered the last exchange
// involving this cover.
func (c *coverState) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available
}

// SignalStrength returns the radio signal strength in dBm.
func (c *coverState) SignalStrength() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rssi
}

// Charging reports whether the cover is charging its battery.
func (c *coverState) Charging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.charging
}

// LastReport returns when the last multicast Report for this cover arrived.
func (c *coverState) LastReport() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastReport
}

func (c *coverState) setAvailable(v bool) {
	c.mu.Lock()
	c.available = v
	c.mu.Unlock()
}

// RegisterCallback installs an update callback. Registering an id twice
// overwrites the previous callback with a logged error.
func (c *coverState) RegisterCallback(id string, callback func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.callbacks[id]; exists {
		logging.Error("a callback with this id was already registered, overwriting previous callback",
			zap.String("mac", c.mac),
			zap.String("id", id),
		)
	}
	c.callbacks[id] = callback
}

// UnregisterCallback removes a callback by id.
func (c *coverState) UnregisterCallback(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.callbacks, id)
}

// ClearCallbacks removes every registered callback.
func (c *coverState) ClearCallbacks() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = make(map[string]func())
}

func (c *coverState) notify() {
	c.mu.Lock()
	callbacks := make([]func(), 0, len(c.callbacks))
	for _, cb := range c.callbacks {
		callbacks = append(callbacks, cb)
	}
	c.mu.Unlock()
	for _, cb := range callbacks {
		cb()
	}
}

// multicastCallback applies a pushed status document. Parse failures were
// already logged by the parser; a push never propagates an error.
func (c *coverState) multicastCallback(message protocol.Message) {
	if err := c.variant.applyResponse(message); err != nil {
		return
	}
	if message.Type() == protocol.MsgReport {
		c.mu.Lock()
		c.lastReport = time.Now()
		c.mu.Unlock()
		select {
		case c.reportCh <- struct{}{}:
		default:
		}
	}
	c.notify()
}

// UpdateTrigger sends a status query and applies the gateway's immediate
// cached reply.
func (c *coverState) UpdateTrigger() error {
	response, err := c.gw.writeDevice(c.mac, c.deviceType, c.variant.queryPayload())
	if err != nil {
		if protocol.IsTimeoutError(err) {
			c.setAvailable(false)
		}
		return err
	}
	if response.Type() != protocol.MsgWriteDeviceAck {
		logging.Error("response to status query is not a WriteDeviceAck",
			zap.String("mac", c.mac),
			zap.String("msgType", response.Type()),
		)
		return nil
	}
	return c.variant.applyResponse(response)
}

// UpdateFromCache refreshes from the gateway cache with an authenticated
// read.
func (c *coverState) UpdateFromCache() error {
	response, err := c.gw.readDevice(c.mac, c.deviceType)
	if err != nil {
		if protocol.IsTimeoutError(err) {
			c.setAvailable(false)
		}
		return err
	}
	if response.Type() != protocol.MsgReadDeviceAck {
		logging.Error("response to cached read is not a ReadDeviceAck",
			zap.String("mac", c.mac),
			zap.String("msgType", response.Type()),
		)
		return nil
	}
	return c.variant.applyResponse(response)
}

// Update triggers a status query and waits for the authoritative multicast
// Report, retrying the trigger a bounded number of times. Unidirectional
// covers cannot report and fall back to the cached reply.
func (c *coverState) Update() error {
	if c.WirelessMode() == protocol.WirelessModeUniDirection {
		return c.UpdateTrigger()
	}
	if c.gw.listener != nil {
		return c.updateViaListener()
	}
	return c.updateAdHoc()
}

func (c *coverState) updateViaListener() error {
	for attempt := 1; attempt <= updateAttempts; attempt++ {
		// Drain a stale signal from a push that raced an earlier refresh.
		select {
		case <-c.reportCh:
		default:
		}

		if err := c.UpdateTrigger(); err != nil {
			return err
		}

		select {
		case <-c.reportCh:
			return nil
		case <-time.After(c.gw.mcastTimeout):
			logging.Debug("no multicast report after status query, retrying",
				zap.String("mac", c.mac),
				zap.Int("attempt", attempt),
			)
		}
	}
	return c.updateFailed()
}

// updateAdHoc opens a private multicast socket for the duration of the
// wait. Used when no shared listener was supplied.
func (c *coverState) updateAdHoc() error {
	conn, err := transport.OpenMulticast(c.gw.iface, c.gw.receivePort)
	if err != nil {
		return err
	}
	defer conn.Close()

	for attempt := 1; attempt <= updateAttempts; attempt++ {
		if err := c.UpdateTrigger(); err != nil {
			return err
		}
		if c.waitReport(conn) {
			return nil
		}
		logging.Debug("no multicast report after status query, retrying",
			zap.String("mac", c.mac),
			zap.Int("attempt", attempt),
		)
	}
	return c.updateFailed()
}

// waitReport reads the ad-hoc socket until this cover's Report arrives or
// the multicast timeout expires. Pushes for other devices are ignored, not
// dispatched; only a shared listener routes for the whole inventory.
func (c *coverState) waitReport(conn *net.UDPConn) bool {
	deadline := time.Now().Add(c.gw.mcastTimeout)
	buf := make([]byte, protocol.ReceiveBufferSize)

	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			return false
		}
		if src.IP.String() != c.gw.addr {
			continue
		}
		message, err := protocol.Decode(buf[:n])
		if err != nil {
			continue
		}
		if message.Has("actionResult") || message.Type() != protocol.MsgReport || message.MAC() != c.mac {
			continue
		}
		c.multicastCallback(message)
		return true
	}
	return false
}

func (c *coverState) updateFailed() error {
	logging.Error("no multicast report received after repeated status queries",
		zap.String("mac", c.mac),
		zap.Int("attempts", updateAttempts),
		zap.Duration("timeout", c.gw.mcastTimeout),
	)
	c.setAvailable(false)
	return protocol.NewTimeoutError(
		fmt.Sprintf("no multicast report after %d status queries", updateAttempts), nil, c.gw.addr)
}

// StandardCover is a single-motor cover: one position, one angle, one
// battery.
type StandardCover struct {
	coverState

	status        protocol.BlindStatus
	statusSet     bool
	limitStatus   protocol.LimitStatus
	limitSet      bool
	position      int
	angle         float64
	restoreAngle  float64
	batteryVolt   float64
	batteryVoltOK bool
	batteryLevel  float64
	batteryOK     bool
}

func newStandardCover(gw *Gateway, mac, deviceType string, maxAngle float64) *StandardCover {
	c := &StandardCover{
		coverState: newCoverState(gw, mac, deviceType, maxAngle),
		status:     protocol.BlindStatusUnknown,
	}
	c.variant = c
	return c
}

// Status returns the motion status of the cover.
func (c *StandardCover) Status() protocol.BlindStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.statusSet {
		return protocol.BlindStatusUnknown
	}
	return c.status
}

// LimitStatus returns the limit-detection status of the motor.
func (c *StandardCover) LimitStatus() protocol.LimitStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.limitSet {
		return protocol.LimitStatusUnknown
	}
	return c.limitStatus
}

// Position returns the cover position in percent, 0 fully open to 100 fully
// closed.
func (c *StandardCover) Position() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

// Angle returns the slat angle in degrees, scaled to 0..180 regardless of
// the cover's native range.
func (c *StandardCover) Angle() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.angle
}

// BatteryVoltage returns the battery voltage, or 0 with ok false when the
// cover has not reported one.
func (c *StandardCover) BatteryVoltage() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batteryVolt, c.batteryVoltOK
}

// BatteryLevel returns the estimated charge in percent, or 0 with ok false
// when the cover is mains powered or has not reported.
func (c *StandardCover) BatteryLevel() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batteryLevel, c.batteryOK
}

// Open fully opens the cover.
func (c *StandardCover) Open() error {
	return c.command(protocol.Message{"operation": 1})
}

// Close fully closes the cover.
func (c *StandardCover) Close() error {
	return c.command(protocol.Message{"operation": 0})
}

// Stop halts any motion in progress.
func (c *StandardCover) Stop() error {
	return c.command(protocol.Message{"operation": 2})
}

// JogUp nudges the cover one step open.
func (c *StandardCover) JogUp() error {
	return c.command(protocol.Message{"operation": 7})
}

// JogDown nudges the cover one step closed.
func (c *StandardCover) JogDown() error {
	return c.command(protocol.Message{"operation": 8})
}

// SetPosition moves the cover to a target position in percent, 0 open to
// 100 closed.
func (c *StandardCover) SetPosition(position int) error {
	if position < 0 || position > 100 {
		return fmt.Errorf("position %d out of range 0..100", position)
	}
	return c.command(protocol.Message{"targetPosition": position})
}

// SetAngle tilts the slats to the given angle on the 0..180 scale; it is
// rescaled to the cover's native range.
func (c *StandardCover) SetAngle(angle float64) error {
	if angle < 0 || angle > 180 {
		return fmt.Errorf("angle %.1f out of range 0..180", angle)
	}
	c.mu.Lock()
	maxAngle := c.maxAngle
	c.mu.Unlock()
	target := int(math.Round(angle * maxAngle / 180))
	return c.command(protocol.Message{"targetAngle": target})
}

// SetPositionAndAngle moves and tilts in a single command.
func (c *StandardCover) SetPositionAndAngle(position int, angle float64) error {
	if position < 0 || position > 100 {
		return fmt.Errorf("position %d out of range 0..100", position)
	}
	if angle < 0 || angle > 180 {
		return fmt.Errorf("angle %.1f out of range 0..180", angle)
	}
	c.mu.Lock()
	maxAngle := c.maxAngle
	c.mu.Unlock()
	target := int(math.Round(angle * maxAngle / 180))
	return c.command(protocol.Message{"targetPosition": position, "targetAngle": target})
}

// SetPositionRestoringAngle moves the cover and then restores the last
// nonzero angle it reported. Useful for tilt blinds that lose their slat
// angle when travelling.
func (c *StandardCover) SetPositionRestoringAngle(position int) error {
	c.mu.Lock()
	restore := c.restoreAngle
	c.mu.Unlock()
	return c.SetPositionAndAngle(position, restore)
}

// command writes a control payload and applies the immediate reply.
func (c *StandardCover) command(data protocol.Message) error {
	response, err := c.gw.writeDevice(c.mac, c.deviceType, data)
	if err != nil {
		if protocol.IsTimeoutError(err) {
			c.setAvailable(false)
		}
		return err
	}
	if response.Type() != protocol.MsgWriteDeviceAck {
		logging.Error("response to command is not a WriteDeviceAck",
			zap.String("mac", c.mac),
			zap.String("msgType", response.Type()),
		)
		return nil
	}
	return c.applyResponse(response)
}

// queryPayload is the status-query command for a single motor.
func (c *StandardCover) queryPayload() protocol.Message {
	return protocol.Message{"operation": 5}
}

// String returns a debug representation of the cover.
func (c *StandardCover) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	battery := "-"
	if c.batteryOK {
		battery = fmt.Sprintf("%.0f%%", c.batteryLevel)
	}
	return fmt.Sprintf("<StandardCover mac: %s, type: %s, status: %s, position: %d%%, angle: %.0f, battery: %s, RSSI: %d dBm>",
		c.mac, c.blindType, c.status, c.position, c.angle, battery, c.rssi)
}
