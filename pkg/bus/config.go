package bus

import (
	"flag"
	"fmt"
	"net/url"
	"os"

	"github.com/robotalks/wirefree.go/pkg/bus/mqtt"
	"github.com/robotalks/wirefree.go/pkg/bus/nats"
	"github.com/robotalks/wirefree.go/pkg/env"
)

// Config provides options of the bus.
type Config struct {
	// URL selects the transport by scheme: mqtt, tcp, ssl, ws, wss or nats.
	// Empty disables forwarding.
	URL       string
	Format    string
	GatewayID string
}

var defaultConfig = Config{
	Format: string(FormatJSON),
}

func init() {
	if val := os.Getenv("WIREFREE_BUS_URL"); val != "" {
		defaultConfig.URL = val
	}
	if val := os.Getenv("WIREFREE_GATEWAY_ID"); val != "" {
		defaultConfig.GatewayID = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.URL, "bus", defaultConfig.URL, "Bus URL, mqtt://host:port/prefix or nats://host:port/prefix.")
	flag.StringVar(&defaultConfig.Format, "bus-format", defaultConfig.Format, "Payload format, json or proto.")
	flag.StringVar(&defaultConfig.GatewayID, "gateway-id", defaultConfig.GatewayID, "Gateway ID in published readings, defaults to machine ID.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Enabled tells whether a bus is configured.
func (c *Config) Enabled() bool {
	return c.URL != ""
}

// NewPublisher connects to the configured bus.
func (c *Config) NewPublisher() (Publisher, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "mqtt", "tcp", "ssl", "ws", "wss":
		q, err := mqtt.NewQueueFromURL(c.URL)
		if err != nil {
			return nil, err
		}
		if token := q.Connect(); token.Wait() && token.Error() != nil {
			return nil, token.Error()
		}
		return q, nil
	case "nats":
		return nats.Connect(c.URL)
	}
	return nil, fmt.Errorf("unsupported bus %q", c.URL)
}

// NewForwarder connects to the bus and creates a Forwarder.
func (c *Config) NewForwarder() (*Forwarder, error) {
	format, err := ParseFormat(c.Format)
	if err != nil {
		return nil, err
	}
	pub, err := c.NewPublisher()
	if err != nil {
		return nil, err
	}
	gateway := c.GatewayID
	if gateway == "" {
		gateway = env.GatewayID()
	}
	return &Forwarder{Publisher: pub, Format: format, GatewayID: gateway}, nil
}
