// Package gateway models a Motion gateway and its attached covers.
//
// A Gateway is constructed from an IP address and the 16-character pairing
// key printed in the vendor app. Everything else (the hardware MAC, the
// rotating session token, the protocol version, the cover inventory) is
// learned from the first successful device-list exchange:
//
//	gw := gateway.New("192.168.1.100", "abcd1234-56ef-78")
//	covers, err := gw.GetDeviceList()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for mac, cover := range covers {
//	    fmt.Printf("%s: %s\n", mac, cover)
//	}
//
// # Covers
//
// Covers come in two variants selected once, by wire device-type code, when
// the device list is first parsed: StandardCover (one motor, position and
// angle) and DualMotorCover (independent top and bottom rails). Both satisfy
// the Cover interface for shared state and refreshing; motion commands are
// variant-specific, so type-switch for control:
//
//	switch c := cover.(type) {
//	case *gateway.StandardCover:
//	    err = c.Open()
//	case *gateway.DualMotorCover:
//	    err = c.Open(gateway.MotorCombined)
//	}
//
// Cover values are created exactly once per MAC and then mutated in place by
// refreshes and pushes, so references held by callers stay valid.
//
// # Refresh strategies
//
// Motion commands return before the blind has moved: the gateway replies
// immediately from cache and the authoritative post-motion state arrives
// later as a multicast Report push. Cover.Update triggers a status query and
// blocks until that push lands (bounded, retried); Cover.UpdateTrigger
// accepts the cached reply and returns immediately, which is also all a
// unidirectional cover can do. Share one transport.Listener across gateways
// via WithListener to receive pushes; without one, Update opens a private
// multicast socket just for its wait.
//
// # Callbacks
//
// RegisterCallback on a Gateway or Cover is invoked with no arguments
// whenever fresh state has been parsed from a push; re-read the accessors
// afterwards. Callbacks run on the listener's goroutine and must not block.
package gateway
