package telemetry

import (
	"context"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/wirefree.go/pkg/link"
)

// Monitor reads frames from the radio and feeds readings to Sink.
// Bad frames are logged and counted, never fatal.
type Monitor struct {
	Reader *link.Reader
	Sink   Sink
	Stats  *Stats
}

// NewMonitor creates a Monitor reading r. The reader is expected to
// return from Read after a timeout without data, like a serial port.
func NewMonitor(r io.Reader, sink Sink, byteTimeout time.Duration) *Monitor {
	m := &Monitor{Sink: sink}
	m.Reader = link.NewReader(r, link.HandleFrameFunc(m.HandleFrame))
	m.Reader.ReadTimeout = true
	if byteTimeout > 0 {
		m.Reader.Timeout = byteTimeout
	}
	m.Reader.OnDiscard = m.discarded
	m.Reader.Validate = m.validate
	return m
}

// Name implements framework.Named.
func (m *Monitor) Name() string {
	return "monitor"
}

// Run implements framework.Runnable.
func (m *Monitor) Run(ctx context.Context) error {
	glog.Info("monitor: started")
	defer glog.Info("monitor: stopped")
	return m.Reader.Run(ctx)
}

// HandleFrame implements link.FrameHandler.
func (m *Monitor) HandleFrame(ctx context.Context, frame link.RawFrame) {
	r, err := Decode(frame)
	if err != nil {
		glog.Warningf("monitor: drop frame [% x]: %v", frame.Data, err)
		if m.Stats != nil {
			m.Stats.DecodeFailed(err)
		}
		return
	}
	if !r.Trustworthy() {
		glog.Warningf("monitor: %v", r)
	} else {
		glog.V(1).Infof("monitor: %v", r)
	}
	if m.Stats != nil {
		m.Stats.HandleReading(ctx, r)
	}
	if m.Sink != nil {
		m.Sink.HandleReading(ctx, r)
	}
}

// validate refuses frames which cannot be decoded, so the reader looks for
// a frame starting inside them.
func (m *Monitor) validate(data []byte) error {
	_, err := Decode(link.RawFrame{Data: data})
	if err != nil {
		glog.Warningf("monitor: drop frame [% x]: %v", data, err)
		if m.Stats != nil {
			m.Stats.DecodeFailed(err)
		}
	}
	return err
}

func (m *Monitor) discarded(n int) {
	if m.Stats != nil {
		m.Stats.Discarded(n)
	}
}
