// Package protocol implements the Motion gateway UDP/JSON wire protocol.
//
// Motion gateways and their attached covers speak a proprietary JSON-over-UDP
// protocol. Unicast requests go to port 32100 on the gateway; asynchronous
// push notifications and discovery replies arrive on the multicast group
// 238.0.0.18, receive port 32101.
//
// # Message Format
//
// Every message is a single JSON object. Requests carry:
//   - msgType: message type tag ("GetDeviceList", "ReadDevice", "WriteDevice")
//   - mac: target device MAC (per-device reads/writes)
//   - deviceType: wire device-type code
//   - AccessToken: derived credential (omitted on unauthenticated requests)
//   - msgID: UTC timestamp with millisecond precision
//   - data: command payload (writes only)
//
// Replies use the matching "...Ack" type; the gateway additionally emits
// unsolicited "Report" pushes and periodic "Heartbeat" messages on the
// multicast group.
//
// # Credentials
//
// Authenticated requests require an access token derived from the pairing
// key printed in the vendor app and the rotating session token the gateway
// reports in GetDeviceListAck:
//
//	AccessToken = uppercase hex of AES-ECB-encrypt(token, key)
//
// Both key and token are 16 ASCII characters, exactly one AES block.
//
// # Redaction
//
// Tokens must never reach logs verbatim. Redact replaces every alphanumeric
// character of the sensitive fields with "x", preserving length and structure
// so patterns remain inspectable.
package protocol
