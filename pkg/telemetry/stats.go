package telemetry

import (
	"context"
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/robotalks/wirefree.go/pkg/gen2"
	"github.com/robotalks/wirefree.go/pkg/link"
)

// Stats exposes link quality and corruption counters.
type Stats struct {
	frames    *prometheus.CounterVec
	readings  *prometheus.CounterVec
	errs      *prometheus.CounterVec
	discarded prometheus.Counter
	value     *prometheus.GaugeVec
	rssi      *prometheus.GaugeVec
}

// NewStats registers the metrics with reg.
func NewStats(reg prometheus.Registerer) *Stats {
	f := promauto.With(reg)
	return &Stats{
		frames: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wirefree_frame_count",
			Help: "The number of frames received (per category).",
		}, []string{"category"}),
		readings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wirefree_reading_count",
			Help: "The number of decoded readings (per variant and checksum result).",
		}, []string{"variant", "checksum"}),
		errs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wirefree_error_count",
			Help: "The number of frames which failed to decode (per reason).",
		}, []string{"reason"}),
		discarded: f.NewCounter(prometheus.CounterOpts{
			Name: "wirefree_discarded_bytes",
			Help: "The number of bytes dropped outside of complete frames.",
		}),
		value: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "wirefree_sensor_reading",
			Help: "The latest trustworthy reading (per transmitter address).",
		}, []string{"address"}),
		rssi: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "wirefree_sensor_rssi",
			Help: "The signal strength of the latest frame (per transmitter address).",
		}, []string{"address"}),
	}
}

// HandleReading implements Sink.
func (s *Stats) HandleReading(ctx context.Context, r *Reading) {
	s.frames.With(prometheus.Labels{"category": r.Envelope.Category.String()}).Inc()
	checksum := "valid"
	if !r.Trustworthy() {
		checksum = "invalid"
	}
	s.readings.With(prometheus.Labels{"variant": r.Packet.Variant().String(), "checksum": checksum}).Inc()
	addr := strconv.Itoa(int(r.Address()))
	s.rssi.With(prometheus.Labels{"address": addr}).Set(float64(r.Envelope.RSSI))
	if r.Trustworthy() {
		s.value.With(prometheus.Labels{"address": addr}).Set(float64(r.Packet.SensorReading()))
	}
}

// DecodeFailed counts a frame which failed to decode.
func (s *Stats) DecodeFailed(err error) {
	s.errs.With(prometheus.Labels{"reason": errorReason(err)}).Inc()
}

// Discarded counts bytes dropped by the stream parser.
func (s *Stats) Discarded(n int) {
	s.discarded.Add(float64(n))
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, link.ErrUnrecognizedMarker):
		return "unrecognized_marker"
	case errors.Is(err, link.ErrTruncated):
		return "truncated"
	case errors.Is(err, gen2.ErrUnknownVariant):
		return "unknown_variant"
	case errors.Is(err, gen2.ErrMalformed):
		return "malformed"
	}
	return "other"
}
