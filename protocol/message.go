package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is a decoded protocol document. The gateway is loose about which
// fields appear in which message, so documents stay generic string-keyed
// maps with typed accessors on top.
type Message map[string]interface{}

// Decode parses a UTF-8 JSON datagram into a Message.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, NewDecodeError("malformed JSON datagram", err)
	}
	return msg, nil
}

// Encode serializes the message for the wire.
func (m Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, NewDecodeError("cannot encode request", err)
	}
	return data, nil
}

// Type returns the msgType tag, or "" when absent.
func (m Message) Type() string {
	return m.String("msgType")
}

// MAC returns the mac field, or "" when absent.
func (m Message) MAC() string {
	return m.String("mac")
}

// DeviceType returns the deviceType field, or "" when absent.
func (m Message) DeviceType() string {
	return m.String("deviceType")
}

// Data returns the nested data payload, or nil when absent or not an object.
func (m Message) Data() Message {
	if v, ok := m["data"].(map[string]interface{}); ok {
		return Message(v)
	}
	return nil
}

// DataList returns the data payload as a list of documents, the shape used
// by GetDeviceListAck.
func (m Message) DataList() []Message {
	raw, ok := m["data"].([]interface{})
	if !ok {
		return nil
	}
	list := make([]Message, 0, len(raw))
	for _, entry := range raw {
		if doc, ok := entry.(map[string]interface{}); ok {
			list = append(list, Message(doc))
		}
	}
	return list
}

// Has reports whether the field is present.
func (m Message) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// String returns the field as a string, or "" when absent or not a string.
func (m Message) String(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Int returns the field as an int. JSON numbers decode as float64, so both
// forms are accepted. ok is false when the field is absent or not numeric.
func (m Message) Int(key string) (int, bool) {
	switch v := m[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// Float returns the field as a float64. ok is false when the field is absent
// or not numeric.
func (m Message) Float(key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// messageID returns the current UTC time formatted to millisecond precision,
// the protocol's way of distinguishing requests.
func messageID() string {
	now := time.Now().UTC()
	return now.Format("20060102150405") + fmt.Sprintf("%03d", now.Nanosecond()/1e6)
}

// NewDeviceListRequest builds the unauthenticated GetDeviceList request used
// for both discovery and the first unicast exchange.
func NewDeviceListRequest() Message {
	return Message{
		"msgType": MsgGetDeviceList,
		"msgID":   messageID(),
	}
}

// NewReadRequest builds an authenticated status read for one device.
func NewReadRequest(mac, deviceType, accessToken string) Message {
	return Message{
		"msgType":     MsgReadDevice,
		"mac":         mac,
		"deviceType":  deviceType,
		"AccessToken": accessToken,
		"msgID":       messageID(),
	}
}

// NewWriteRequest builds an authenticated write carrying a command payload.
func NewWriteRequest(mac, deviceType, accessToken string, data Message) Message {
	return Message{
		"msgType":     MsgWriteDevice,
		"mac":         mac,
		"deviceType":  deviceType,
		"AccessToken": accessToken,
		"msgID":       messageID(),
		"data":        map[string]interface{}(data),
	}
}
