package protocol

import (
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
		verify  func(t *testing.T, msg Message)
	}{
		{
			name: "device list ack",
			data: []byte(`{"msgType":"GetDeviceListAck","mac":"f008d1f1e812","deviceType":"02000002","token":"6c5bXXXXXXXX2e48","data":[{"mac":"f008d1f1e812","deviceType":"02000002"},{"mac":"f008d1f1e8120001","deviceType":"10000000"}]}`),
			verify: func(t *testing.T, msg Message) {
				if msg.Type() != MsgGetDeviceListAck {
					t.Errorf("Type() = %q, want %q", msg.Type(), MsgGetDeviceListAck)
				}
				if msg.MAC() != "f008d1f1e812" {
					t.Errorf("MAC() = %q", msg.MAC())
				}
				if msg.DeviceType() != "02000002" {
					t.Errorf("DeviceType() = %q", msg.DeviceType())
				}
				if got := len(msg.DataList()); got != 2 {
					t.Errorf("len(DataList()) = %d, want 2", got)
				}
				if msg.Data() != nil {
					t.Error("Data() should be nil for a list payload")
				}
			},
		},
		{
			name: "status report",
			data: []byte(`{"msgType":"Report","mac":"f008d1f1e8120001","deviceType":"10000000","data":{"type":1,"operation":2,"currentPosition":42,"currentState":3,"RSSI":-68}}`),
			verify: func(t *testing.T, msg Message) {
				data := msg.Data()
				if data == nil {
					t.Fatal("Data() = nil")
				}
				if pos, ok := data.Int("currentPosition"); !ok || pos != 42 {
					t.Errorf("currentPosition = %d, %v", pos, ok)
				}
				if rssi, ok := data.Int("RSSI"); !ok || rssi != -68 {
					t.Errorf("RSSI = %d, %v", rssi, ok)
				}
				if msg.DataList() != nil {
					t.Error("DataList() should be nil for an object payload")
				}
			},
		},
		{
			name:    "malformed JSON",
			data:    []byte(`{"msgType":`),
			wantErr: true,
		},
		{
			name:    "empty datagram",
			data:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode(tt.data)

			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !IsDecodeError(err) {
					t.Errorf("error = %v, want a decode error", err)
				}
				return
			}
			if tt.verify != nil {
				tt.verify(t, msg)
			}
		})
	}
}

func TestMessageNumericAccessors(t *testing.T) {
	msg := Message{"count": 3.0, "name": "blind", "ratio": 1.5}

	if v, ok := msg.Int("count"); !ok || v != 3 {
		t.Errorf("Int(count) = %d, %v", v, ok)
	}
	if _, ok := msg.Int("name"); ok {
		t.Error("Int(name) should not resolve a string")
	}
	if _, ok := msg.Int("missing"); ok {
		t.Error("Int(missing) should not resolve")
	}
	if v, ok := msg.Float("ratio"); !ok || v != 1.5 {
		t.Errorf("Float(ratio) = %v, %v", v, ok)
	}
	if msg.String("count") != "" {
		t.Error("String(count) should not resolve a number")
	}
}

func TestRequestBuilders(t *testing.T) {
	listReq := NewDeviceListRequest()
	if listReq.Type() != MsgGetDeviceList {
		t.Errorf("Type() = %q, want %q", listReq.Type(), MsgGetDeviceList)
	}
	if id := listReq.String("msgID"); len(id) != 17 {
		t.Errorf("msgID %q has length %d, want 17 (yyyyMMddHHmmssfff)", id, len(id))
	}

	readReq := NewReadRequest("f008d1f1e8120001", DeviceTypeBlind, "AF17F0A5481E28C0")
	if readReq.Type() != MsgReadDevice {
		t.Errorf("Type() = %q, want %q", readReq.Type(), MsgReadDevice)
	}
	if readReq.MAC() != "f008d1f1e8120001" {
		t.Errorf("MAC() = %q", readReq.MAC())
	}
	if readReq.String("AccessToken") != "AF17F0A5481E28C0" {
		t.Errorf("AccessToken = %q", readReq.String("AccessToken"))
	}

	writeReq := NewWriteRequest("f008d1f1e8120001", DeviceTypeBlind, "AF17F0A5481E28C0",
		Message{"operation": 1})
	if writeReq.Type() != MsgWriteDevice {
		t.Errorf("Type() = %q, want %q", writeReq.Type(), MsgWriteDevice)
	}
	data := writeReq.Data()
	if data == nil {
		t.Fatal("write request has no data payload")
	}
	if op, ok := data.Int("operation"); !ok || op != 1 {
		t.Errorf("operation = %d, %v", op, ok)
	}

	// The payload must survive the wire encoding round trip.
	encoded, err := writeReq.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if decoded.Type() != MsgWriteDevice {
		t.Errorf("round trip Type() = %q", decoded.Type())
	}
}

func TestDeviceTypePredicates(t *testing.T) {
	tests := []struct {
		deviceType string
		gateway    bool
		cover      bool
	}{
		{DeviceTypeGateway, true, false},
		{DeviceTypeGateway2, true, false},
		{DeviceTypeBlind, false, true},
		{DeviceTypeTDBU, false, true},
		{DeviceTypeDR, false, true},
		{DeviceTypeWiFiCurtain, false, true},
		{DeviceTypeWiFiBlind, false, true},
		{"99999999", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		if got := IsGatewayType(tt.deviceType); got != tt.gateway {
			t.Errorf("IsGatewayType(%q) = %v, want %v", tt.deviceType, got, tt.gateway)
		}
		if got := IsCoverType(tt.deviceType); got != tt.cover {
			t.Errorf("IsCoverType(%q) = %v, want %v", tt.deviceType, got, tt.cover)
		}
	}

	if !IsControllerType(DeviceTypeGateway) || !IsControllerType(DeviceTypeWiFiBlind) {
		t.Error("gateways and WiFi motors are controllers")
	}
	if IsControllerType(DeviceTypeBlind) {
		t.Error("a radio blind is not a controller")
	}
}
