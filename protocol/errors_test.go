package protocol

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorPredicates(t *testing.T) {
	cause := errors.New("read udp: i/o timeout")

	tests := []struct {
		name       string
		err        error
		credential bool
		timeout    bool
		decode     bool
		parse      bool
		retryable  bool
	}{
		{
			name:       "credential",
			err:        NewCredentialError("key must be 16 characters"),
			credential: true,
		},
		{
			name:      "timeout",
			err:       NewTimeoutError("no response", cause, "192.168.1.100"),
			timeout:   true,
			retryable: true,
		},
		{
			name:   "decode",
			err:    NewDecodeError("malformed JSON datagram", cause),
			decode: true,
		},
		{
			name:  "parse",
			err:   NewParseError("device list response missing mac", nil),
			parse: true,
		},
		{
			name: "plain error",
			err:  errors.New("something else"),
		},
		{
			name: "nil error",
			err:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCredentialError(tt.err); got != tt.credential {
				t.Errorf("IsCredentialError() = %v, want %v", got, tt.credential)
			}
			if got := IsTimeoutError(tt.err); got != tt.timeout {
				t.Errorf("IsTimeoutError() = %v, want %v", got, tt.timeout)
			}
			if got := IsDecodeError(tt.err); got != tt.decode {
				t.Errorf("IsDecodeError() = %v, want %v", got, tt.decode)
			}
			if got := IsParseError(tt.err); got != tt.parse {
				t.Errorf("IsParseError() = %v, want %v", got, tt.parse)
			}
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewTimeoutError("no response", cause, "192.168.1.100")

	if !errors.Is(err, cause) {
		t.Error("errors.Is() should find the wrapped cause")
	}
	wrapped := fmt.Errorf("refresh failed: %w", err)
	var protoErr *Error
	if !errors.As(wrapped, &protoErr) {
		t.Fatal("errors.As() should find the protocol error through a wrap")
	}
	if protoErr.Type != ErrTypeTimeout {
		t.Errorf("Type = %v, want %v", protoErr.Type, ErrTypeTimeout)
	}
	if protoErr.Addr != "192.168.1.100" {
		t.Errorf("Addr = %q", protoErr.Addr)
	}
}

func TestErrorMessage(t *testing.T) {
	err := NewDecodeError("malformed JSON datagram", errors.New("unexpected end of input"))
	want := "Decode Error: malformed JSON datagram (caused by: unexpected end of input)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	bare := NewCredentialError("token not yet received")
	if bare.Error() != "Credential Error: token not yet received" {
		t.Errorf("Error() = %q", bare.Error())
	}
}
