// Package telemetry turns frames received from the radio into readings
// and hands them to sinks.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/robotalks/wirefree.go/pkg/gen2"
	"github.com/robotalks/wirefree.go/pkg/link"
)

// Reading is a decoded telemetry frame.
type Reading struct {
	Received time.Time
	Envelope link.Envelope
	Packet   *gen2.Packet
}

// Decode splits and decodes a raw frame.
func Decode(raw link.RawFrame) (*Reading, error) {
	env, payload, err := link.Split(raw)
	if err != nil {
		return nil, err
	}
	pkt, err := gen2.Decode(payload)
	if err != nil {
		return nil, err
	}
	return &Reading{Received: raw.Received, Envelope: env, Packet: pkt}, nil
}

// Trustworthy tells whether the reading passed its checksum. Readings
// which didn't must only be used for diagnostics.
func (r *Reading) Trustworthy() bool {
	return r.Packet.ChecksumValid
}

// Address returns the transmitter address of the sensor.
func (r *Reading) Address() uint16 {
	return r.Packet.TransmitterAddress()
}

// String implements fmt.Stringer.
func (r *Reading) String() string {
	s := fmt.Sprintf("%v #%d %v=%g rssi=%d", r.Packet.Variant(), r.Address(), r.Envelope.Category, r.Packet.SensorReading(), r.Envelope.RSSI)
	if !r.Trustworthy() {
		s += " (bad checksum)"
	}
	return s
}

// Sink receives readings.
type Sink interface {
	HandleReading(context.Context, *Reading)
}

// SinkFunc is func type of Sink.
type SinkFunc func(context.Context, *Reading)

// HandleReading implements Sink.
func (f SinkFunc) HandleReading(ctx context.Context, r *Reading) {
	f(ctx, r)
}

// Sinks fans a reading out to all sinks in order.
type Sinks []Sink

// HandleReading implements Sink.
func (s Sinks) HandleReading(ctx context.Context, r *Reading) {
	for _, sink := range s {
		sink.HandleReading(ctx, r)
	}
}
