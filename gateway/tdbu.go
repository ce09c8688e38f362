package gateway

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/openshade/motiongo/internal/logging"
	"github.com/openshade/motiongo/protocol"
)

// Motor selects a rail of a dual-motor cover.
type Motor int

const (
	// MotorBottom is the bottom-up rail.
	MotorBottom Motor = iota

	// MotorTop is the top-down rail.
	MotorTop

	// MotorCombined addresses both rails as one cover, keeping the gap
	// between them constant.
	MotorCombined
)

func (m Motor) String() string {
	switch m {
	case MotorBottom:
		return "Bottom"
	case MotorTop:
		return "Top"
	case MotorCombined:
		return "Combined"
	default:
		return fmt.Sprintf("Motor(%d)", int(m))
	}
}

// motorState is the per-rail status of a dual-motor cover.
type motorState struct {
	status        protocol.BlindStatus
	statusSet     bool
	limitStatus   protocol.LimitStatus
	limitSet      bool
	position      int
	batteryVolt   float64
	batteryVoltOK bool
	batteryLevel  float64
	batteryOK     bool
}

// DualMotorCover is a top-down bottom-up cover: two rails that move
// independently on the same track. Positions run 0 at the top of the window
// to 100 at the bottom, so the top rail's position is always at or above
// (numerically at or below) the bottom rail's.
type DualMotorCover struct {
	coverState

	top    motorState
	bottom motorState
}

func newDualMotorCover(gw *Gateway, mac, deviceType string) *DualMotorCover {
	c := &DualMotorCover{
		coverState: newCoverState(gw, mac, deviceType, defaultMaxAngle),
		top:        motorState{status: protocol.BlindStatusUnknown},
		bottom:     motorState{status: protocol.BlindStatusUnknown},
	}
	c.variant = c
	return c
}

func (c *DualMotorCover) rail(motor Motor) *motorState {
	if motor == MotorTop {
		return &c.top
	}
	return &c.bottom
}

// Status returns the motion status of one rail. For MotorCombined the rails
// agree only while idle; the bottom rail's status is reported.
func (c *DualMotorCover) Status(motor Motor) protocol.BlindStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	rail := c.rail(motor)
	if !rail.statusSet {
		return protocol.BlindStatusUnknown
	}
	return rail.status
}

// LimitStatus returns the limit-detection status of one rail.
func (c *DualMotorCover) LimitStatus(motor Motor) protocol.LimitStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	rail := c.rail(motor)
	if !rail.limitSet {
		return protocol.LimitStatusUnknown
	}
	return rail.limitStatus
}

// Position returns a rail position in percent of window height, 0 top to
// 100 bottom. For MotorCombined it is the midpoint between the rails.
func (c *DualMotorCover) Position(motor Motor) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if motor == MotorCombined {
		return (c.top.position + c.bottom.position) / 2
	}
	return c.rail(motor).position
}

// Width returns the covered span between the rails in percent of window
// height.
func (c *DualMotorCover) Width() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bottom.position - c.top.position
}

// BatteryVoltage returns one rail's battery voltage.
func (c *DualMotorCover) BatteryVoltage(motor Motor) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rail := c.rail(motor)
	return rail.batteryVolt, rail.batteryVoltOK
}

// BatteryLevel returns one rail's estimated charge in percent. For
// MotorCombined the lower of the two rails is reported.
func (c *DualMotorCover) BatteryLevel(motor Motor) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if motor == MotorCombined {
		if !c.top.batteryOK || !c.bottom.batteryOK {
			return 0, false
		}
		return math.Min(c.top.batteryLevel, c.bottom.batteryLevel), true
	}
	rail := c.rail(motor)
	return rail.batteryLevel, rail.batteryOK
}

// Open opens one rail, or both for MotorCombined.
func (c *DualMotorCover) Open(motor Motor) error {
	switch motor {
	case MotorTop:
		return c.command(protocol.Message{"operation_T": 1})
	case MotorBottom:
		return c.command(protocol.Message{"operation_B": 1})
	default:
		return c.command(protocol.Message{"operation_T": 1, "operation_B": 1})
	}
}

// Close closes one rail, or both for MotorCombined.
func (c *DualMotorCover) Close(motor Motor) error {
	switch motor {
	case MotorTop:
		return c.command(protocol.Message{"operation_T": 0})
	case MotorBottom:
		return c.command(protocol.Message{"operation_B": 0})
	default:
		// TODO: confirm on hardware that combined close really drives the
		// top rail up and the bottom rail down rather than both to 0.
		return c.command(protocol.Message{"operation_B": 0, "operation_T": 1})
	}
}

// Stop halts one rail, or both for MotorCombined.
func (c *DualMotorCover) Stop(motor Motor) error {
	switch motor {
	case MotorTop:
		return c.command(protocol.Message{"operation_T": 2})
	case MotorBottom:
		return c.command(protocol.Message{"operation_B": 2})
	default:
		return c.command(protocol.Message{"operation_T": 2, "operation_B": 2})
	}
}

// JogUp nudges one rail a step up.
func (c *DualMotorCover) JogUp(motor Motor) error {
	switch motor {
	case MotorTop:
		return c.command(protocol.Message{"operation_T": 7})
	case MotorBottom:
		return c.command(protocol.Message{"operation_B": 7})
	default:
		return c.command(protocol.Message{"operation_T": 7, "operation_B": 7})
	}
}

// JogDown nudges one rail a step down.
func (c *DualMotorCover) JogDown(motor Motor) error {
	switch motor {
	case MotorTop:
		return c.command(protocol.Message{"operation_T": 8})
	case MotorBottom:
		return c.command(protocol.Message{"operation_B": 8})
	default:
		return c.command(protocol.Message{"operation_T": 8, "operation_B": 8})
	}
}

// SetPosition moves one rail to a target position in percent of window
// height. The rails may not cross: the top rail is clamped to the bottom
// rail's last known position and vice versa, and a violating target is
// rejected before anything is sent. For MotorCombined both rails move,
// keeping the current gap, so the target must leave room for the gap on
// both sides.
func (c *DualMotorCover) SetPosition(motor Motor, position int) error {
	if position < 0 || position > 100 {
		return fmt.Errorf("position %d out of range 0..100", position)
	}

	c.mu.Lock()
	top, bottom := c.top.position, c.bottom.position
	c.mu.Unlock()

	switch motor {
	case MotorTop:
		if position > bottom {
			return fmt.Errorf("top rail target %d would cross bottom rail at %d", position, bottom)
		}
		return c.command(protocol.Message{"targetPosition_T": position})
	case MotorBottom:
		if position < top {
			return fmt.Errorf("bottom rail target %d would cross top rail at %d", position, top)
		}
		return c.command(protocol.Message{"targetPosition_B": position})
	default:
		width := bottom - top
		lo, hi := width/2, 100-width/2
		if position < lo || position > hi {
			return fmt.Errorf("combined target %d out of range %d..%d for gap of %d", position, lo, hi, width)
		}
		return c.command(protocol.Message{
			"targetPosition_T": position - width/2,
			"targetPosition_B": position + width/2,
		})
	}
}

// SetScaledPosition moves one rail over its currently reachable span
// instead of the whole window: 0..100 for the top rail maps onto the window
// top down to the bottom rail, for the bottom rail onto the top rail down
// to the window bottom, and for the combined pair onto the midpoint range
// the current gap leaves open.
func (c *DualMotorCover) SetScaledPosition(motor Motor, position int) error {
	if position < 0 || position > 100 {
		return fmt.Errorf("position %d out of range 0..100", position)
	}

	c.mu.Lock()
	top, bottom := c.top.position, c.bottom.position
	c.mu.Unlock()

	switch motor {
	case MotorTop:
		target := int(math.Round(float64(position) * float64(bottom) / 100))
		return c.command(protocol.Message{"targetPosition_T": target})
	case MotorBottom:
		target := top + int(math.Round(float64(position)*float64(100-top)/100))
		return c.command(protocol.Message{"targetPosition_B": target})
	default:
		width := bottom - top
		span := int(math.Round(float64(position) * float64(100-width) / 100))
		return c.command(protocol.Message{
			"targetPosition_T": span,
			"targetPosition_B": span + width,
		})
	}
}

// SetAngle tilts the slats of one rail, or both for MotorCombined, to the
// given angle on the 0..180 scale; it is rescaled to the cover's native
// range.
func (c *DualMotorCover) SetAngle(motor Motor, angle float64) error {
	if angle < 0 || angle > 180 {
		return fmt.Errorf("angle %.1f out of range 0..180", angle)
	}

	c.mu.Lock()
	maxAngle := c.maxAngle
	c.mu.Unlock()
	target := int(math.Round(angle * maxAngle / 180))

	switch motor {
	case MotorTop:
		return c.command(protocol.Message{"targetAngle_T": target})
	case MotorBottom:
		return c.command(protocol.Message{"targetAngle_B": target})
	default:
		return c.command(protocol.Message{"targetAngle_T": target, "targetAngle_B": target})
	}
}

// command writes a control payload and applies the immediate reply.
func (c *DualMotorCover) command(data protocol.Message) error {
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

// queryPayload is the status-query command addressed to both rails.
func (c *DualMotorCover) queryPayload() protocol.Message {
	return protocol.Message{"operation_T": 5, "operation_B": 5}
}

// String returns a debug representation of the cover.
func (c *DualMotorCover) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("<DualMotorCover mac: %s, type: %s, top: %d%% (%s), bottom: %d%% (%s), RSSI: %d dBm>",
		c.mac, c.blindType, c.top.position, c.top.status, c.bottom.position, c.bottom.status, c.rssi)
}
