package gateway

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/openshade/motiongo/internal/logging"
	"github.com/openshade/motiongo/protocol"
)

// intField reads an integer from a data payload. present is false when the
// field is absent; a field that is present but not numeric is an error, not
// an absence, so a malformed document is never half-applied silently.
func intField(data protocol.Message, key string) (value int, present bool, err error) {
	raw, hasField := data[key]
	if !hasField {
		return 0, false, nil
	}
	value, ok := data.Int(key)
	if !ok {
		return 0, true, fmt.Errorf("field %q is %T, not a number", key, raw)
	}
	return value, true, nil
}

// floatField reads a float from a data payload, with the same presence and
// type semantics as intField.
func floatField(data protocol.Message, key string) (value float64, present bool, err error) {
	raw, hasField := data[key]
	if !hasField {
		return 0, false, nil
	}
	value, ok := data.Float(key)
	if !ok {
		return 0, true, fmt.Errorf("field %q is %T, not a number", key, raw)
	}
	return value, true, nil
}

// batteryPercentage maps a battery voltage onto an estimated charge. Motion
// motors ship with 2, 3 or 4 lithium cells; the voltage band picks the cell
// count and the charge is interpolated within that band. ok is false when
// the motor is mains powered (the firmware reports exactly 220 then) and no
// percentage applies.
func batteryPercentage(voltage float64) (level float64, ok bool) {
	switch {
	case voltage == 220:
		return 0, false
	case voltage <= 0:
		return 0, true
	case voltage <= 9.4:
		return (voltage - 6.2) * 100 / 2.2, true
	case voltage <= 13.6:
		return (voltage - 10.4) * 100 / 2.2, true
	case voltage <= 19:
		return (voltage - 14.6) * 100 / 2.2, true
	default:
		// Out of every known band; surfaced as an obviously wrong level
		// rather than hidden.
		return 200, true
	}
}

// parseFailure logs a structurally broken response and wraps the cause as a
// parse error. c.mu must be held.
func (c *coverState) parseFailure(response protocol.Message, cause error) error {
	logging.Error("cover received a response with unexpected data",
		zap.String("mac", c.mac),
		zap.Error(cause),
		logging.Document("response", response),
	)
	return protocol.NewParseError("unexpected data in cover response", cause)
}

// parseCommon applies the fields shared by both cover variants: identity,
// radio mode, power mode, signal and charging state. It returns the data
// payload for the variant to continue with; proceed is false when there is
// nothing further to parse (an action failure, or no data payload at all).
// c.mu must be held.
func (c *coverState) parseCommon(response protocol.Message) (data protocol.Message, proceed bool, err error) {
	if response.Has("actionResult") {
		// The failure was already logged where the message arrived.
		return nil, false, nil
	}

	if deviceType := response.DeviceType(); deviceType != "" && deviceType != c.deviceType {
		logging.Warn("response device type does not agree with the device list",
			zap.String("mac", c.mac),
			zap.String("deviceType", deviceType),
			zap.String("expected", c.deviceType),
		)
	}

	c.available = true

	data = response.Data()
	if data == nil {
		return nil, false, nil
	}

	if raw, present, ferr := intField(data, "type"); ferr != nil {
		return nil, false, c.parseFailure(response, ferr)
	} else if present {
		blindType, known := protocol.BlindTypeFromWire(raw)
		if !known && (!c.blindTypeSet || c.blindType != protocol.BlindTypeUnknown) {
			logging.Error("cover reported a blind type that is not yet known",
				zap.String("mac", c.mac),
				zap.Int("type", raw),
			)
		}
		c.blindType = blindType
		c.blindTypeSet = true
		if blindType == protocol.BlindTypeShangriLaBlind {
			// Shangri-La slats tilt over half the usual range.
			c.maxAngle = 90
		}
	} else if !c.blindTypeSet {
		logging.Info("cover did not report a blind type, assuming a roller blind",
			zap.String("mac", c.mac),
		)
		c.blindType = protocol.BlindTypeRollerBlind
		c.blindTypeSet = true
	}

	if raw, present, ferr := intField(data, "wirelessMode"); ferr != nil {
		return nil, false, c.parseFailure(response, ferr)
	} else if present {
		mode, known := protocol.WirelessModeFromWire(raw)
		if !known && (!c.wirelessModeSet || c.wirelessMode != protocol.WirelessModeUnknown) {
			logging.Error("cover reported a wireless mode that is not yet known",
				zap.String("mac", c.mac),
				zap.Int("wirelessMode", raw),
			)
		}
		c.wirelessMode = mode
		c.wirelessModeSet = true
	}

	if raw, present, ferr := intField(data, "voltageMode"); ferr != nil {
		return nil, false, c.parseFailure(response, ferr)
	} else if present {
		mode, known := protocol.VoltageModeFromWire(raw)
		if !known && (!c.voltageModeSet || c.voltageMode != protocol.VoltageModeUnknown) {
			logging.Error("cover reported a voltage mode that is not yet known",
				zap.String("mac", c.mac),
				zap.Int("voltageMode", raw),
			)
		}
		c.voltageMode = mode
		c.voltageModeSet = true
	}

	// Unidirectional covers cannot measure anything; whatever signal or
	// charging fields the gateway fabricates for them are meaningless.
	if c.wirelessModeSet && c.wirelessMode == protocol.WirelessModeUniDirection {
		return data, true, nil
	}

	if raw, present, ferr := intField(data, "RSSI"); ferr != nil {
		return nil, false, c.parseFailure(response, ferr)
	} else if present {
		c.rssi = raw
	}

	if raw, present, ferr := intField(data, "chargingState"); ferr != nil {
		return nil, false, c.parseFailure(response, ferr)
	} else if present {
		c.charging = raw != 0
	}

	return data, true, nil
}

// applyResponse reconciles a status document into a single-motor cover.
func (c *StandardCover) applyResponse(response protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, proceed, err := c.parseCommon(response)
	if err != nil || !proceed {
		return err
	}

	if raw, present, ferr := intField(data, "operation"); ferr != nil {
		return c.parseFailure(response, ferr)
	} else if present {
		status, known := protocol.BlindStatusFromWire(raw)
		if !known && (!c.statusSet || c.status != protocol.BlindStatusUnknown) {
			logging.Error("cover reported a status that is not yet known",
				zap.String("mac", c.mac),
				zap.Int("operation", raw),
			)
		}
		c.status = status
		c.statusSet = true
	}

	// The motion status is all a unidirectional cover has.
	if c.wirelessModeSet && c.wirelessMode == protocol.WirelessModeUniDirection {
		return nil
	}

	if raw, present, ferr := intField(data, "currentState"); ferr != nil {
		return c.parseFailure(response, ferr)
	} else if present {
		limit, known := protocol.LimitStatusFromWire(raw)
		if !known && (!c.limitSet || c.limitStatus != protocol.LimitStatusUnknown) {
			logging.Error("cover reported a limit status that is not yet known",
				zap.String("mac", c.mac),
				zap.Int("currentState", raw),
			)
		}
		c.limitStatus = limit
		c.limitSet = true
	}

	if raw, present, ferr := floatField(data, "batteryLevel"); ferr != nil {
		return c.parseFailure(response, ferr)
	} else if present {
		voltage := raw / 100
		c.batteryVolt, c.batteryVoltOK = voltage, true
		level, hasLevel := batteryPercentage(voltage)
		if hasLevel && (level <= 0 || level >= 200) {
			logging.Warn("battery voltage outside every known cell band",
				zap.String("mac", c.mac),
				zap.Float64("voltage", voltage),
			)
		}
		c.batteryLevel, c.batteryOK = level, hasLevel
	}

	// BiDirectionLimits covers report limits and battery but their position
	// counter is meaningless.
	if c.wirelessModeSet && c.wirelessMode == protocol.WirelessModeBiDirectionLimits {
		return nil
	}

	// Turn-counted positions are only trustworthy once both travel limits
	// have been programmed.
	if c.wirelessModeSet && c.wirelessMode == protocol.WirelessModeVirtualPercentage &&
		c.limitStatus != protocol.LimitStatusLimits {
		logging.Warn("ignoring position of a turn-counted cover without programmed limits",
			zap.String("mac", c.mac),
			zap.Stringer("limitStatus", c.limitStatus),
		)
		return nil
	}

	if raw, present, ferr := intField(data, "currentPosition"); ferr != nil {
		return c.parseFailure(response, ferr)
	} else if present {
		c.position = raw
	} else {
		// Slightly ajar rather than fully open: an absent position must not
		// make a closed cover look open.
		c.position = 1
	}

	if raw, present, ferr := floatField(data, "currentAngle"); ferr != nil {
		return c.parseFailure(response, ferr)
	} else if present {
		angle := raw * 180 / c.maxAngle
		c.angle = angle
		if angle != 0 {
			c.restoreAngle = angle
		}
	}

	return nil
}

// applyResponse reconciles a status document into a dual-motor cover, rail
// by rail.
func (c *DualMotorCover) applyResponse(response protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, proceed, err := c.parseCommon(response)
	if err != nil || !proceed {
		return err
	}

	if err := c.applyRail(response, data, "_T", &c.top); err != nil {
		return err
	}
	return c.applyRail(response, data, "_B", &c.bottom)
}

// applyRail parses the suffixed fields of one rail.
func (c *DualMotorCover) applyRail(response, data protocol.Message, suffix string, rail *motorState) error {
	if raw, present, ferr := intField(data, "operation"+suffix); ferr != nil {
		return c.parseFailure(response, ferr)
	} else if present {
		status, known := protocol.BlindStatusFromWire(raw)
		if !known && (!rail.statusSet || rail.status != protocol.BlindStatusUnknown) {
			logging.Error("rail reported a status that is not yet known",
				zap.String("mac", c.mac),
				zap.String("rail", suffix),
				zap.Int("operation", raw),
			)
		}
		rail.status = status
		rail.statusSet = true
	}

	if raw, present, ferr := intField(data, "currentState"+suffix); ferr != nil {
		return c.parseFailure(response, ferr)
	} else if present {
		limit, known := protocol.LimitStatusFromWire(raw)
		if !known && (!rail.limitSet || rail.limitStatus != protocol.LimitStatusUnknown) {
			logging.Error("rail reported a limit status that is not yet known",
				zap.String("mac", c.mac),
				zap.String("rail", suffix),
				zap.Int("currentState", raw),
			)
		}
		rail.limitStatus = limit
		rail.limitSet = true
	}

	if raw, present, ferr := floatField(data, "batteryLevel"+suffix); ferr != nil {
		return c.parseFailure(response, ferr)
	} else if present {
		voltage := raw / 100
		rail.batteryVolt, rail.batteryVoltOK = voltage, true
		level, hasLevel := batteryPercentage(voltage)
		if hasLevel && (level <= 0 || level >= 200) {
			logging.Warn("battery voltage outside every known cell band",
				zap.String("mac", c.mac),
				zap.String("rail", suffix),
				zap.Float64("voltage", voltage),
			)
		}
		rail.batteryLevel, rail.batteryOK = level, hasLevel
	}

	if raw, present, ferr := intField(data, "currentPosition"+suffix); ferr != nil {
		return c.parseFailure(response, ferr)
	} else if present {
		rail.position = raw
	} else {
		// Rails cannot be defaulted independently without risking a
		// phantom crossing; keep the last known position instead.
		logging.Error("rail status without a position, keeping previous position",
			zap.String("mac", c.mac),
			zap.String("rail", suffix),
			logging.Document("response", response),
		)
	}

	return nil
}
