// Package bus forwards readings to a message bus.
//
// Trustworthy readings are published to sensors/<address>, readings which
// failed the checksum go to diagnostics/<address>. Transports add their own
// topic prefix.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/golang/glog"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/robotalks/wirefree.go/pkg/telemetry"
)

// Publisher sends a payload to a topic.
type Publisher interface {
	io.Closer
	Publish(topic string, payload []byte) error
}

// Format is the payload encoding.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatProto Format = "proto"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatProto:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Encode serializes a message. The proto form is a google.protobuf.Struct.
func (f Format) Encode(m *Message) ([]byte, error) {
	switch f {
	case FormatJSON, "":
		return json.Marshal(m)
	case FormatProto:
		s, err := structpb.NewStruct(m.Fields())
		if err != nil {
			return nil, err
		}
		return proto.Marshal(s)
	}
	return nil, fmt.Errorf("unknown format %q", string(f))
}

// SensorTopic is the topic of trustworthy readings.
func SensorTopic(addr uint16) string {
	return "sensors/" + strconv.Itoa(int(addr))
}

// DiagnosticsTopic is the topic of readings which failed the checksum.
func DiagnosticsTopic(addr uint16) string {
	return "diagnostics/" + strconv.Itoa(int(addr))
}

// Forwarder is a telemetry.Sink publishing every reading.
type Forwarder struct {
	Publisher Publisher
	Format    Format
	GatewayID string
}

// HandleReading implements telemetry.Sink.
func (f *Forwarder) HandleReading(ctx context.Context, r *telemetry.Reading) {
	topic := SensorTopic(r.Address())
	if !r.Trustworthy() {
		topic = DiagnosticsTopic(r.Address())
	}
	payload, err := f.Format.Encode(NewMessage(f.GatewayID, r))
	if err != nil {
		glog.Errorf("bus: encode %v: %v", r, err)
		return
	}
	if err := f.Publisher.Publish(topic, payload); err != nil {
		glog.Warningf("bus: publish %s: %v", topic, err)
	}
}
