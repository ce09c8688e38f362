// Package config holds client settings for the Motion gateway protocol.
//
// Every timing knob of the client (unicast timeout, inter-fragment timeout,
// multicast push timeout, discovery window) plus the network interface and
// port overrides live in a Settings struct. Default() returns the protocol
// defaults; Load overlays a YAML file on top of them:
//
//	settings, err := config.Load("motion.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	gw := gateway.New("192.168.1.100", key, gateway.WithSettings(settings))
//
// A settings file only needs the keys it changes:
//
//	interface: 192.168.1.12
//	timeout: 5s
//	discovery_window: 15s
package config
