package rm024

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Session is an open command mode session. It's obtained from Link.Enter
// and ends with Exit, Reset or a firmware upgrade.
type Session struct {
	link *Link

	lock   sync.Mutex
	closed bool
	// set when a response was incomplete, stale bytes are flushed before
	// the next request.
	dirty bool
}

// Closed tells whether the session has ended.
func (s *Session) Closed() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.closed
}

// Link returns the link the session belongs to.
func (s *Session) Link() *Link {
	return s.link
}

// acquire locks the session for one operation.
func (s *Session) acquire() error {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return ErrSessionClosed
	}
	return nil
}

func (s *Session) exchange(op string, state State, req []byte, n int, timeout time.Duration) ([]byte, error) {
	l := s.link
	if prev := l.State(); state != prev {
		l.setState(state)
		defer l.setState(prev)
	}
	if s.dirty {
		if err := l.port.ResetInputBuffer(); err != nil {
			return nil, err
		}
		s.dirty = false
	}
	if err := l.send(req); err != nil {
		return nil, err
	}
	resp, err := l.readFull(n, timeout)
	if err != nil {
		s.dirty = true
		if errors.Is(err, ErrTimeout) {
			return resp, &ControlError{Op: op, Kind: ErrTimeout, Actual: resp}
		}
		return resp, err
	}
	return resp, nil
}

func (s *Session) unexpected(op string, expected, actual []byte) error {
	s.dirty = true
	return &ControlError{Op: op, Kind: ErrUnexpectedResponse, Expected: expected, Actual: actual}
}

// Status requests firmware version and link status.
func (s *Session) Status() (Status, error) {
	if err := s.acquire(); err != nil {
		return Status{}, err
	}
	defer s.lock.Unlock()
	return s.status("status", statusInfo)
}

// VerifyImage asks the radio whether all pages of a new firmware image
// were loaded.
func (s *Session) VerifyImage() (Status, error) {
	if err := s.acquire(); err != nil {
		return Status{}, err
	}
	defer s.lock.Unlock()
	return s.status("verify", statusVerify)
}

func (s *Session) status(op string, sub byte) (Status, error) {
	resp, err := s.exchange(op, InCommand, []byte{prefix, opStatus, sub}, 3, s.link.timeouts.Command)
	if err != nil {
		return Status{}, err
	}
	st := Status{Firmware: resp[1], Link: LinkStatus(resp[2])}
	if resp[0] != prefix || !st.Link.IsValid() {
		return Status{}, s.unexpected(op, nil, resp)
	}
	return st, nil
}

// SetLiveParameter changes a parameter until the next reset.
func (s *Session) SetLiveParameter(kind ParamKind, value byte) error {
	if _, ok := paramNames[kind]; !ok {
		return ErrInvalidArgument
	}
	if kind == ParamChannel && value > MaxChannel {
		return ErrInvalidArgument
	}
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.lock.Unlock()
	expected := []byte{prefix, value}
	resp, err := s.exchange("param", LiveParameter, []byte{prefix, byte(kind), value}, len(expected), s.link.timeouts.Command)
	if err != nil {
		return err
	}
	if !bytes.Equal(resp, expected) {
		return s.unexpected("param", expected, resp)
	}
	glog.Infof("rm024: %v set to %d", kind, value)
	return nil
}

// Reset soft resets the radio. The session ends and the link refuses to
// enter command mode until the radio settles.
func (s *Session) Reset() error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.lock.Unlock()
	return s.reset()
}

func (s *Session) reset() error {
	err := s.link.send([]byte{prefix, opReset})
	s.closed = true
	s.link.settleAfterReset()
	s.link.end(s)
	glog.Info("rm024: radio reset")
	return err
}

// Exit leaves command mode. The link always returns to Transparent; a
// missing or wrong acknowledgement is reported as a warning.
func (s *Session) Exit() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	l := s.link
	s.closed = true
	defer l.end(s)

	l.setState(ExitingCommand)
	if s.dirty {
		if err := l.port.ResetInputBuffer(); err != nil {
			glog.Warningf("rm024: flush input: %v", err)
		}
	}
	if err := l.send(exitRequest); err != nil {
		return err
	}
	if err := l.awaitAck("exit", exitAck, l.timeouts.Exit); err != nil {
		var ce *ControlError
		if errors.As(err, &ce) {
			ce.Warning = true
		}
		glog.Warningf("rm024: %v", err)
		return err
	}
	glog.Info("rm024: left command mode")
	return nil
}
