package serial

import (
	"flag"
	"os"
	"time"
)

// Config provides options to open the radio serial port.
type Config struct {
	// Name is the device, e.g. /dev/ttyUSB0 or COM3.
	Name     string
	BaudRate int
	// ReadTimeout bounds a single Read, so readers can notice
	// cancellation and inter-byte timeouts.
	ReadTimeout time.Duration
	// RTS asserts RTS after opening, needed by some USB adapters.
	RTS bool
}

var defaultConfig = Config{
	Name:        "/dev/ttyUSB0",
	BaudRate:    115200,
	ReadTimeout: 100 * time.Millisecond,
}

func init() {
	if val := os.Getenv("WIREFREE_SERIAL"); val != "" {
		defaultConfig.Name = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Name, "serial", defaultConfig.Name, "Serial device of the RM024 radio.")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Serial baud rate.")
	flag.DurationVar(&defaultConfig.ReadTimeout, "serial-read-timeout", defaultConfig.ReadTimeout, "Serial read timeout.")
	flag.BoolVar(&defaultConfig.RTS, "serial-rts", defaultConfig.RTS, "Assert RTS after opening.")
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
