// Package serial opens the radio serial port and shares it between the
// telemetry reader and command mode sessions.
package serial

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
	bugserial "go.bug.st/serial"
)

// ErrPortBusy indicates the port is claimed by another user.
var ErrPortBusy = errors.New("serial port busy")

// device is the part of go.bug.st/serial.Port in use.
type device interface {
	io.ReadWriteCloser
	SetReadTimeout(time.Duration) error
	ResetInputBuffer() error
}

// Port is an opened serial port. It's used directly by a claimant, and
// through Telemetry by the unclaimed background reader.
type Port struct {
	name        string
	readTimeout time.Duration
	dev         device

	lock    sync.Mutex
	claimed bool
}

// Ports lists serial ports available.
func Ports() ([]string, error) {
	return bugserial.GetPortsList()
}

// Open opens the port.
func (c *Config) Open() (*Port, error) {
	if c.Name == "" {
		return nil, errors.New("serial port is empty")
	}
	if c.BaudRate <= 0 {
		return nil, fmt.Errorf("invalid serial baud rate: %d", c.BaudRate)
	}
	dev, err := bugserial.Open(c.Name, &bugserial.Mode{
		BaudRate: c.BaudRate,
		DataBits: 8,
		Parity:   bugserial.NoParity,
		StopBits: bugserial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", c.Name, err)
	}
	if c.RTS {
		if err := dev.SetRTS(true); err != nil {
			dev.Close()
			return nil, fmt.Errorf("set RTS: %w", err)
		}
	}
	p, err := newPort(c.Name, dev, c.ReadTimeout)
	if err != nil {
		dev.Close()
		return nil, err
	}
	glog.Infof("serial: opened %s at %d baud", c.Name, c.BaudRate)
	return p, nil
}

func newPort(name string, dev device, readTimeout time.Duration) (*Port, error) {
	if readTimeout <= 0 {
		readTimeout = defaultConfig.ReadTimeout
	}
	if err := dev.SetReadTimeout(readTimeout); err != nil {
		return nil, fmt.Errorf("set serial read timeout: %w", err)
	}
	return &Port{name: name, dev: dev, readTimeout: readTimeout}, nil
}

// Name returns the device name.
func (p *Port) Name() string {
	return p.name
}

// Read implements io.Reader.
func (p *Port) Read(b []byte) (int, error) {
	return p.dev.Read(b)
}

// Write implements io.Writer.
func (p *Port) Write(b []byte) (int, error) {
	return p.dev.Write(b)
}

// SetReadTimeout sets the timeout of a single Read.
func (p *Port) SetReadTimeout(d time.Duration) error {
	return p.dev.SetReadTimeout(d)
}

// ResetInputBuffer discards received bytes not read yet.
func (p *Port) ResetInputBuffer() error {
	return p.dev.ResetInputBuffer()
}

// Close closes the port.
func (p *Port) Close() error {
	return p.dev.Close()
}

// Claim takes the port away from the telemetry reader until release is
// called. A reader in the middle of a Read is waited for.
func (p *Port) Claim() (release func(), err error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.claimed {
		return nil, ErrPortBusy
	}
	p.claimed = true
	glog.V(2).Infof("serial: %s claimed", p.name)
	var once sync.Once
	return func() {
		once.Do(p.release)
	}, nil
}

func (p *Port) release() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.claimed = false
	if err := p.dev.SetReadTimeout(p.readTimeout); err != nil {
		glog.Warningf("serial: restore read timeout: %v", err)
	}
	glog.V(2).Infof("serial: %s released", p.name)
}

// Claimed tells whether the port is claimed.
func (p *Port) Claimed() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.claimed
}

// Telemetry returns a reader which yields nothing while the port is
// claimed. Reads time out after the configured read timeout.
func (p *Port) Telemetry() io.Reader {
	return telemetryReader{p}
}

type telemetryReader struct {
	p *Port
}

func (r telemetryReader) Read(b []byte) (int, error) {
	r.p.lock.Lock()
	if r.p.claimed {
		r.p.lock.Unlock()
		time.Sleep(r.p.readTimeout)
		return 0, nil
	}
	defer r.p.lock.Unlock()
	return r.p.dev.Read(b)
}
