package rm024

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/wirefree.go/pkg/link"
)

// Port is the serial transport to the radio.
type Port interface {
	io.ReadWriter
	SetReadTimeout(time.Duration) error
	ResetInputBuffer() error
}

// Claimer is optionally implemented by a Port shared with a telemetry
// reader. The claim is held while a session is open.
type Claimer interface {
	Claim() (release func(), err error)
}

// State is the state of the command channel.
type State int32

// States.
const (
	Transparent State = iota
	EnteringCommand
	InCommand
	EEPROMAccess
	LiveParameter
	FirmwareUpgrade
	ExitingCommand
)

var stateNames = []string{
	"transparent", "entering-command", "in-command", "eeprom-access",
	"live-parameter", "firmware-upgrade", "exiting-command",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Timeouts bounds the wait for each kind of response.
type Timeouts struct {
	Entry       time.Duration
	Exit        time.Duration
	Command     time.Duration
	EEPROM      time.Duration
	Flash       time.Duration
	ResetSettle time.Duration
}

// DefaultTimeouts returns the timeouts used by NewLink.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Entry:       2 * time.Second,
		Exit:        time.Second,
		Command:     time.Second,
		EEPROM:      2 * time.Second,
		Flash:       2 * time.Second,
		ResetSettle: 3 * time.Second,
	}
}

// Option configures a Link.
type Option func(*Link)

// WithTimeouts overrides the default timeouts.
func WithTimeouts(t Timeouts) Option {
	return func(l *Link) {
		l.timeouts = t
	}
}

// Link is the command channel over a serial port. It hands out at most one
// Session at a time.
type Link struct {
	port     Port
	timeouts Timeouts
	state    atomic.Int32

	lock        sync.Mutex
	session     *Session
	release     func()
	settleUntil time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// NewLink creates a Link.
func NewLink(port Port, opts ...Option) *Link {
	l := &Link{
		port:     port,
		timeouts: DefaultTimeouts(),
		now:      time.Now,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State gets the current state.
func (l *Link) State() State {
	return State(l.state.Load())
}

// Timeouts returns the effective timeouts.
func (l *Link) Timeouts() Timeouts {
	return l.timeouts
}

func (l *Link) setState(s State) {
	if old := State(l.state.Swap(int32(s))); old != s {
		glog.V(2).Infof("rm024: %v -> %v", old, s)
	}
}

// Enter switches the radio into command mode. After a soft reset it
// first waits for the radio to settle.
func (l *Link) Enter() (*Session, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.session != nil {
		return nil, ErrSessionActive
	}
	if d := l.settleUntil.Sub(l.now()); d > 0 {
		glog.V(2).Infof("rm024: waiting %v for radio to settle", d)
		l.sleep(d)
	}

	if c, ok := l.port.(Claimer); ok {
		release, err := c.Claim()
		if err != nil {
			return nil, &ControlError{Op: "enter", Kind: ErrEntryFailed, Err: err}
		}
		l.release = release
	}

	l.setState(EnteringCommand)
	err := l.port.ResetInputBuffer()
	if err == nil {
		err = l.send(enterRequest)
	}
	if err == nil {
		err = l.awaitAck("enter", enterAck, l.timeouts.Entry)
	}
	if err != nil {
		l.endLocked()
		return nil, &ControlError{Op: "enter", Kind: ErrEntryFailed, Err: err}
	}

	l.session = &Session{link: l}
	l.setState(InCommand)
	glog.Info("rm024: entered command mode")
	return l.session, nil
}

// end returns the link to Transparent and drops the session.
func (l *Link) end(s *Session) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.session == s {
		l.endLocked()
	}
}

func (l *Link) endLocked() {
	l.session = nil
	if l.release != nil {
		l.release()
		l.release = nil
	}
	l.setState(Transparent)
}

func (l *Link) settleAfterReset() {
	l.lock.Lock()
	l.settleUntil = l.now().Add(l.timeouts.ResetSettle)
	l.lock.Unlock()
}

// send writes a request in exactly one call.
func (l *Link) send(req []byte) error {
	glog.V(2).Infof("rm024: send % x", req)
	n, err := l.port.Write(req)
	if err != nil {
		return err
	}
	if n != len(req) {
		return fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(req))
	}
	return nil
}

// readFull reads n bytes within timeout. On timeout the bytes received so
// far are returned with ErrTimeout.
func (l *Link) readFull(n int, timeout time.Duration) ([]byte, error) {
	deadline := l.now().Add(timeout)
	buf := make([]byte, 0, n)
	chunk := make([]byte, n)
	for len(buf) < n {
		remain := deadline.Sub(l.now())
		if remain <= 0 {
			return buf, ErrTimeout
		}
		if err := l.port.SetReadTimeout(remain); err != nil {
			return buf, err
		}
		k, err := l.port.Read(chunk[:n-len(buf)])
		if err != nil && !os.IsTimeout(err) {
			return buf, err
		}
		buf = append(buf, chunk[:k]...)
	}
	glog.V(2).Infof("rm024: recv % x", buf)
	return buf, nil
}

// awaitAck waits for a command mode acknowledgement. Telemetry still in
// flight before the radio switches mode is skipped by sliding over the
// stream until the ack shows up or the deadline passes.
func (l *Link) awaitAck(op string, ack []byte, timeout time.Duration) error {
	deadline := l.now().Add(timeout)
	var (
		window, last []byte
		skipped      int
	)
	b := make([]byte, 1)
	for {
		remain := deadline.Sub(l.now())
		if remain <= 0 {
			if last != nil {
				return &ControlError{Op: op, Kind: ErrUnexpectedResponse, Expected: ack, Actual: last}
			}
			return &ControlError{Op: op, Kind: ErrTimeout, Expected: ack, Actual: window}
		}
		if err := l.port.SetReadTimeout(remain); err != nil {
			return err
		}
		k, err := l.port.Read(b)
		if err != nil && !os.IsTimeout(err) {
			return err
		}
		if k == 0 {
			continue
		}
		if len(window) == 0 && b[0] != link.CommandPrefix {
			skipped++
			continue
		}
		window = append(window, b[0])
		if len(window) < len(ack) {
			continue
		}
		if bytes.Equal(window, ack) {
			if skipped > 0 {
				glog.V(2).Infof("rm024: skipped %d bytes before %s ack", skipped, op)
			}
			return nil
		}
		last = append(last[:0], window...)
		// slide to the next prefix in the window.
		next := bytes.IndexByte(window[1:], link.CommandPrefix)
		if next < 0 {
			skipped += len(window)
			window = window[:0]
		} else {
			skipped += next + 1
			window = append(window[:0], window[next+1:]...)
		}
	}
}
