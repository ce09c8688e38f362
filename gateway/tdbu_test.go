package gateway

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/openshade/motiongo/protocol"
)

func testDualCover(t *testing.T) *DualMotorCover {
	t.Helper()
	gw := New("203.0.113.1", "abcd1234-56ef-78")
	return newDualMotorCover(gw, "f008d1f1e8120002", protocol.DeviceTypeTDBU)
}

func railReport(data map[string]interface{}) protocol.Message {
	return protocol.Message{
		"msgType":    protocol.MsgReport,
		"mac":        "f008d1f1e8120002",
		"deviceType": protocol.DeviceTypeTDBU,
		"data":       data,
	}
}

func fullRailReport() protocol.Message {
	return railReport(map[string]interface{}{
		"type":              9,
		"wirelessMode":      1,
		"operation_T":       1,
		"operation_B":       0,
		"currentPosition_T": 20,
		"currentPosition_B": 80,
		"currentState_T":    3,
		"currentState_B":    3,
		"batteryLevel_T":    1240,
		"batteryLevel_B":    1180,
		"RSSI":              -62,
	})
}

func TestDualMotorApplyResponse(t *testing.T) {
	c := testDualCover(t)

	if err := c.applyResponse(fullRailReport()); err != nil {
		t.Fatalf("applyResponse() error = %v", err)
	}

	if c.BlindType() != protocol.BlindTypeTopDownBottomUp {
		t.Errorf("BlindType() = %v", c.BlindType())
	}
	if c.Status(MotorTop) != protocol.BlindStatusOpening {
		t.Errorf("Status(Top) = %v", c.Status(MotorTop))
	}
	if c.Status(MotorBottom) != protocol.BlindStatusClosing {
		t.Errorf("Status(Bottom) = %v", c.Status(MotorBottom))
	}
	if c.Position(MotorTop) != 20 {
		t.Errorf("Position(Top) = %d", c.Position(MotorTop))
	}
	if c.Position(MotorBottom) != 80 {
		t.Errorf("Position(Bottom) = %d", c.Position(MotorBottom))
	}
	if c.Position(MotorCombined) != 50 {
		t.Errorf("Position(Combined) = %d, want the midpoint", c.Position(MotorCombined))
	}
	if c.Width() != 60 {
		t.Errorf("Width() = %d", c.Width())
	}
	if c.LimitStatus(MotorTop) != protocol.LimitStatusLimits {
		t.Errorf("LimitStatus(Top) = %v", c.LimitStatus(MotorTop))
	}

	topLevel, ok := c.BatteryLevel(MotorTop)
	if !ok {
		t.Fatal("BatteryLevel(Top) not resolved")
	}
	bottomLevel, ok := c.BatteryLevel(MotorBottom)
	if !ok {
		t.Fatal("BatteryLevel(Bottom) not resolved")
	}
	combined, ok := c.BatteryLevel(MotorCombined)
	if !ok {
		t.Fatal("BatteryLevel(Combined) not resolved")
	}
	if math.Abs(combined-math.Min(topLevel, bottomLevel)) > 1e-9 {
		t.Errorf("BatteryLevel(Combined) = %v, want the weaker rail (%v, %v)",
			combined, topLevel, bottomLevel)
	}
}

func TestDualMotorMissingPositionKeepsPrevious(t *testing.T) {
	c := testDualCover(t)

	if err := c.applyResponse(fullRailReport()); err != nil {
		t.Fatalf("applyResponse() error = %v", err)
	}

	// A status without positions must not invent rail positions that could
	// fake a crossing.
	if err := c.applyResponse(railReport(map[string]interface{}{
		"wirelessMode": 1,
		"operation_T":  2,
		"operation_B":  2,
	})); err != nil {
		t.Fatalf("applyResponse() error = %v", err)
	}

	if c.Position(MotorTop) != 20 || c.Position(MotorBottom) != 80 {
		t.Errorf("positions = %d/%d, want 20/80 kept",
			c.Position(MotorTop), c.Position(MotorBottom))
	}
	if c.Status(MotorTop) != protocol.BlindStatusStopped {
		t.Errorf("Status(Top) = %v, the rest of the report still applies", c.Status(MotorTop))
	}
}

func TestDualMotorSetPositionRejectsCrossing(t *testing.T) {
	c := testDualCover(t)
	if err := c.applyResponse(fullRailReport()); err != nil {
		t.Fatalf("applyResponse() error = %v", err)
	}

	tests := []struct {
		name     string
		motor    Motor
		position int
		wantErr  string
	}{
		{"top below bottom rail", MotorTop, 90, "cross"},
		{"bottom above top rail", MotorBottom, 10, "cross"},
		{"combined too high for gap", MotorCombined, 10, "out of range"},
		{"combined too low for gap", MotorCombined, 95, "out of range"},
		{"position out of range", MotorTop, 150, "out of range"},
		{"negative position", MotorBottom, -5, "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.SetPosition(tt.motor, tt.position)
			if err == nil {
				t.Fatal("SetPosition() succeeded, want rejection")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestDualMotorCommandPayloads(t *testing.T) {
	writes := make(chan protocol.Message, 1)
	port := startFakeGateway(t, func(req protocol.Message) protocol.Message {
		switch req.Type() {
		case protocol.MsgGetDeviceList:
			return deviceListAck("6c5b7d2e48a0b1c3")
		case protocol.MsgWriteDevice:
			writes <- req.Data()
			return protocol.Message{
				"msgType":    protocol.MsgWriteDeviceAck,
				"mac":        req.MAC(),
				"deviceType": req.DeviceType(),
			}
		}
		return nil
	})

	gw := testGateway(t, port)
	covers, err := gw.GetDeviceList()
	if err != nil {
		t.Fatalf("GetDeviceList() error = %v", err)
	}
	c := covers["f008d1f1e8120002"].(*DualMotorCover)
	if err := c.applyResponse(fullRailReport()); err != nil {
		t.Fatalf("applyResponse() error = %v", err)
	}

	sent := func(t *testing.T) protocol.Message {
		t.Helper()
		select {
		case data := <-writes:
			return data
		case <-time.After(time.Second):
			t.Fatal("no command reached the gateway")
			return nil
		}
	}

	t.Run("angle single rail", func(t *testing.T) {
		if err := c.SetAngle(MotorTop, 90); err != nil {
			t.Fatalf("SetAngle() error = %v", err)
		}
		data := sent(t)
		if target, ok := data.Int("targetAngle_T"); !ok || target != 90 {
			t.Errorf("targetAngle_T = %d, %v", target, ok)
		}
		if data.Has("targetAngle_B") {
			t.Error("single-rail tilt must not address the bottom rail")
		}
	})

	t.Run("angle combined", func(t *testing.T) {
		if err := c.SetAngle(MotorCombined, 180); err != nil {
			t.Fatalf("SetAngle() error = %v", err)
		}
		data := sent(t)
		top, okT := data.Int("targetAngle_T")
		bottom, okB := data.Int("targetAngle_B")
		if !okT || !okB || top != 180 || bottom != 180 {
			t.Errorf("targetAngle_T/B = %d/%d", top, bottom)
		}
	})

	t.Run("scaled combined maps onto reachable span", func(t *testing.T) {
		// Rails at 20/80 leave midpoints 30..70; scaled 90 of that span is
		// a midpoint of 66, rails at 36/96.
		if err := c.SetScaledPosition(MotorCombined, 90); err != nil {
			t.Fatalf("SetScaledPosition() error = %v", err)
		}
		data := sent(t)
		top, okT := data.Int("targetPosition_T")
		bottom, okB := data.Int("targetPosition_B")
		if !okT || !okB || top != 36 || bottom != 96 {
			t.Errorf("targetPosition_T/B = %d/%d, want 36/96", top, bottom)
		}
	})
}

func TestDualMotorSetAngleRange(t *testing.T) {
	c := testDualCover(t)
	if err := c.SetAngle(MotorTop, 181); err == nil {
		t.Error("SetAngle(181) succeeded, want rejection")
	}
	if err := c.SetAngle(MotorCombined, -1); err == nil {
		t.Error("SetAngle(-1) succeeded, want rejection")
	}
}

func TestDualMotorScaledPositionRange(t *testing.T) {
	c := testDualCover(t)
	if err := c.SetScaledPosition(MotorTop, 101); err == nil {
		t.Error("SetScaledPosition(101) succeeded, want rejection")
	}
	if err := c.SetScaledPosition(MotorBottom, -1); err == nil {
		t.Error("SetScaledPosition(-1) succeeded, want rejection")
	}
}

func TestMotorString(t *testing.T) {
	if MotorTop.String() != "Top" || MotorBottom.String() != "Bottom" || MotorCombined.String() != "Combined" {
		t.Errorf("Motor strings = %q/%q/%q",
			MotorTop, MotorBottom, MotorCombined)
	}
}
