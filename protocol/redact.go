package protocol

import "regexp"

// sensitiveFields are the document fields that carry credentials.
var sensitiveFields = []string{"token", "AccessToken"}

// redactPattern matches every character that gets masked. Punctuation is
// kept so the field structure stays recognizable in logs.
var redactPattern = regexp.MustCompile("[a-zA-Z0-9]")

// Redact returns a copy of the message with credential fields masked,
// replacing each alphanumeric character with "x" while preserving length.
// The original message is never modified. Safe to call with nil.
func Redact(m Message) Message {
	if m == nil {
		return nil
	}

	copied := make(Message, len(m))
	for k, v := range m {
		copied[k] = v
	}
	for _, field := range sensitiveFields {
		if s, ok := copied[field].(string); ok {
			copied[field] = redactPattern.ReplaceAllString(s, "x")
		}
	}
	return copied
}
