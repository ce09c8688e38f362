package protocol

import (
	"strings"
	"testing"
)

func TestRedact(t *testing.T) {
	original := Message{
		"msgType":     "GetDeviceListAck",
		"mac":         "f008d1f1e812",
		"token":       "6c5b-XXXXXXX2e48",
		"AccessToken": "AF17F0A5481E28C0CCF1EF42962899ED",
	}

	redacted := Redact(original)

	if redacted["token"] != "xxxx-xxxxxxxxxxx" {
		t.Errorf("token = %q, want masked with punctuation kept", redacted["token"])
	}
	if redacted["AccessToken"] != strings.Repeat("x", 32) {
		t.Errorf("AccessToken = %q, want fully masked", redacted["AccessToken"])
	}
	if redacted["mac"] != "f008d1f1e812" {
		t.Errorf("mac = %q, non-credential fields must pass through", redacted["mac"])
	}
	if redacted.Type() != MsgGetDeviceListAck {
		t.Errorf("msgType = %q, want untouched", redacted.Type())
	}

	// The input must never be modified.
	if original["token"] != "6c5b-XXXXXXX2e48" {
		t.Errorf("original token modified to %q", original["token"])
	}
}

func TestRedactEdgeCases(t *testing.T) {
	if Redact(nil) != nil {
		t.Error("Redact(nil) should be nil")
	}

	// Non-string credential fields stay as they are rather than panicking.
	msg := Message{"token": 12345}
	if got := Redact(msg)["token"]; got != 12345 {
		t.Errorf("numeric token = %v, want untouched", got)
	}

	// Messages without credentials come back equivalent.
	msg = Message{"msgType": MsgHeartbeat}
	if got := Redact(msg); got.Type() != MsgHeartbeat || len(got) != 1 {
		t.Errorf("Redact() = %v", got)
	}
}
