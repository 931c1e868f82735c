package telemetry

import (
	"flag"
	"os"
	"time"
)

// Config provides options of the telemetry monitor.
type Config struct {
	// MetricsAddr is where Prometheus metrics are served, empty disables.
	MetricsAddr string
	// ByteTimeout abandons a frame when the radio pauses mid-frame.
	ByteTimeout time.Duration
}

var defaultConfig = Config{
	MetricsAddr: ":9324",
	ByteTimeout: 50 * time.Millisecond,
}

func init() {
	if val := os.Getenv("WIREFREE_METRICS_ADDR"); val != "" {
		defaultConfig.MetricsAddr = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.MetricsAddr, "metrics", defaultConfig.MetricsAddr, "Prometheus metrics listen address, empty to disable.")
	flag.DurationVar(&defaultConfig.ByteTimeout, "byte-timeout", defaultConfig.ByteTimeout, "Abandon a frame after this pause between bytes.")
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
