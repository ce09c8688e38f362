package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openshade/motiongo/protocol"
)

// Duration wraps time.Duration so settings files can use forms like "200ms"
// or "3s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the setting as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Settings are the tunable parameters of the client.
type Settings struct {
	// Interface is the local IP address to bind multicast traffic to, or
	// "any" for the wildcard interface. The host IP address is recommended
	// on multi-homed machines.
	Interface string `yaml:"interface"`

	// Timeout applies per attempt on unicast exchanges.
	Timeout Duration `yaml:"timeout"`

	// FragmentTimeout is the shorter deadline between datagrams of a
	// multi-datagram reply.
	FragmentTimeout Duration `yaml:"fragment_timeout"`

	// MulticastTimeout bounds each wait for a multicast push after a
	// status-query trigger.
	MulticastTimeout Duration `yaml:"multicast_timeout"`

	// DiscoveryWindow is the hard collection deadline for discovery.
	DiscoveryWindow Duration `yaml:"discovery_window"`

	// SendPort overrides the gateway request port. Leave zero for the
	// protocol default; only tests need this.
	SendPort int `yaml:"send_port"`

	// ReceivePort overrides the multicast receive port.
	ReceivePort int `yaml:"receive_port"`
}

// Default returns the protocol default settings.
func Default() Settings {
	return Settings{
		Interface:        "any",
		Timeout:          Duration(3 * time.Second),
		FragmentTimeout:  Duration(200 * time.Millisecond),
		MulticastTimeout: Duration(5 * time.Second),
		DiscoveryWindow:  Duration(10 * time.Second),
		SendPort:         protocol.PortSend,
		ReceivePort:      protocol.PortReceive,
	}
}

// Load reads a YAML settings file, overlaying it on the defaults. Keys not
// present in the file keep their default values.
func Load(path string) (Settings, error) {
	settings := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("failed to parse settings file: %w", err)
	}

	if settings.SendPort == 0 {
		settings.SendPort = protocol.PortSend
	}
	if settings.ReceivePort == 0 {
		settings.ReceivePort = protocol.PortReceive
	}

	return settings, nil
}
