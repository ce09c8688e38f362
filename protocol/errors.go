package protocol

import "fmt"

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeCredential indicates missing or unusable credentials; fatal to
	// any authenticated call until key and token are supplied.
	ErrTypeCredential ErrorType = iota
	// ErrTypeTimeout indicates exhausted unicast retries or an expired
	// multicast push wait.
	ErrTypeTimeout
	// ErrTypeDecode indicates malformed wire bytes (invalid JSON).
	ErrTypeDecode
	// ErrTypeParse indicates a syntactically valid document with an
	// unexpected structure; a protocol or firmware mismatch, not a network
	// fault.
	ErrTypeParse
	// ErrTypeUnknown indicates an unexpected error.
	ErrTypeUnknown
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeCredential:
		return "Credential Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeDecode:
		return "Decode Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error represents a failure while talking to a gateway or interpreting its
// responses.
type Error struct {
	Type      ErrorType // Category of error
	Message   string    // Human-readable error message
	Err       error     // Underlying error (if any)
	Addr      string    // Gateway address (for context)
	Retryable bool      // Whether retrying the whole operation can help
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// NewCredentialError creates a credential error
func NewCredentialError(message string) *Error {
	return &Error{
		Type:      ErrTypeCredential,
		Message:   message,
		Retryable: false,
	}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(message string, err error, addr string) *Error {
	return &Error{
		Type:      ErrTypeTimeout,
		Message:   message,
		Err:       err,
		Addr:      addr,
		Retryable: true,
	}
}

// NewDecodeError creates a decode error
func NewDecodeError(message string, err error) *Error {
	return &Error{
		Type:      ErrTypeDecode,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

// NewParseError creates a parse error
func NewParseError(message string, err error) *Error {
	return &Error{
		Type:      ErrTypeParse,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

// IsCredentialError checks if an error is a credential error
func IsCredentialError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == ErrTypeCredential
	}
	return false
}

// IsTimeoutError checks if an error is a timeout error
func IsTimeoutError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == ErrTypeTimeout
	}
	return false
}

// IsDecodeError checks if an error is a decode error
func IsDecodeError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == ErrTypeDecode
	}
	return false
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == ErrTypeParse
	}
	return false
}

// IsRetryable checks if retrying the whole operation can help
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}
