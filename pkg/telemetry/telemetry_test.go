package telemetry

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/wirefree.go/pkg/gen2"
	"github.com/robotalks/wirefree.go/pkg/link"
)

func capturedFrame(t *testing.T) []byte {
	b, err := hex.DecodeString("81110016e0882b000f81000000000824060042e087e92377")
	require.NoError(t, err)
	return b
}

func frameOf(p gen2.Payload, corrupt bool) []byte {
	pkt := gen2.Encode(p)
	if corrupt {
		pkt[len(pkt)-1]++
	}
	return link.Join(link.Envelope{RSSI: 0x30, Transmitter: [3]byte{1, 2, 3}}, pkt)
}

func TestDecode(t *testing.T) {
	received := time.Now()
	r, err := Decode(link.RawFrame{Data: capturedFrame(t), Received: received})
	require.NoError(t, err)
	require.True(t, r.Trustworthy())
	require.Equal(t, received, r.Received)
	require.Equal(t, uint16(15), r.Address())
	require.Equal(t, link.Relayed, r.Envelope.Category)
	require.Equal(t, gen2.VariantFullReading, r.Packet.Variant())

	bad := capturedFrame(t)
	bad[18]++
	r, err = Decode(link.RawFrame{Data: bad})
	require.NoError(t, err)
	require.False(t, r.Trustworthy())
	require.Contains(t, r.String(), "bad checksum")

	_, err = Decode(link.RawFrame{Data: bad[:10]})
	require.True(t, errors.Is(err, link.ErrTruncated))

	_, err = Decode(link.RawFrame{Data: link.Join(link.Envelope{}, []byte{0, 1, 5, 0, 0, 0, 0, 0})})
	require.True(t, errors.Is(err, gen2.ErrUnknownVariant))
}

func TestLatestKeepsTrustworthyOnly(t *testing.T) {
	l := NewLatest()
	now := time.Now()
	good, err := Decode(link.RawFrame{Data: frameOf(&gen2.QuickAlert{Address: 9, Reading: 1}, false), Received: now})
	require.NoError(t, err)
	bad, err := Decode(link.RawFrame{Data: frameOf(&gen2.QuickAlert{Address: 9, Reading: 2}, true), Received: now.Add(time.Second)})
	require.NoError(t, err)
	older, err := Decode(link.RawFrame{Data: frameOf(&gen2.QuickAlert{Address: 9, Reading: 3}, false), Received: now.Add(-time.Second)})
	require.NoError(t, err)
	other, err := Decode(link.RawFrame{Data: frameOf(&gen2.QuickAlert{Address: 2, Reading: 4}, false), Received: now})
	require.NoError(t, err)

	sinks := Sinks{l}
	for _, r := range []*Reading{good, bad, older, other} {
		sinks.HandleReading(context.Background(), r)
	}
	r, ok := l.Get(9)
	require.True(t, ok)
	require.Equal(t, float32(1), r.Packet.SensorReading())
	_, ok = l.Get(3)
	require.False(t, ok)
	all := l.All()
	require.Len(t, all, 2)
	require.Equal(t, uint16(2), all[0].Address())
}

func TestStats(t *testing.T) {
	s := NewStats(prometheus.NewRegistry())
	good, err := Decode(link.RawFrame{Data: capturedFrame(t)})
	require.NoError(t, err)
	s.HandleReading(context.Background(), good)
	bad, err := Decode(link.RawFrame{Data: frameOf(gen2.NewFullReading(15, 5, 3.6), true)})
	require.NoError(t, err)
	s.HandleReading(context.Background(), bad)
	s.DecodeFailed(&link.FrameError{Reason: link.ErrTruncated})
	s.DecodeFailed(errors.New("x"))
	s.Discarded(3)

	require.Equal(t, float64(1), testutil.ToFloat64(s.frames.With(prometheus.Labels{"category": "relayed"})))
	require.Equal(t, float64(1), testutil.ToFloat64(s.frames.With(prometheus.Labels{"category": "direct"})))
	require.Equal(t, float64(1), testutil.ToFloat64(s.readings.With(prometheus.Labels{"variant": "FullReading", "checksum": "invalid"})))
	require.Equal(t, float64(1), testutil.ToFloat64(s.errs.With(prometheus.Labels{"reason": "truncated"})))
	require.Equal(t, float64(1), testutil.ToFloat64(s.errs.With(prometheus.Labels{"reason": "other"})))
	require.Equal(t, float64(3), testutil.ToFloat64(s.discarded))
	// the corrupted reading doesn't replace the value.
	require.Equal(t, float64(0), testutil.ToFloat64(s.value.With(prometheus.Labels{"address": "15"})))
	require.Equal(t, float64(0x30), testutil.ToFloat64(s.rssi.With(prometheus.Labels{"address": "15"})))
}

type pollReader struct {
	lock   sync.Mutex
	chunks [][]byte
}

func (r *pollReader) push(b []byte) {
	r.lock.Lock()
	r.chunks = append(r.chunks, b)
	r.lock.Unlock()
}

func (r *pollReader) Read(p []byte) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if len(r.chunks) == 0 {
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func TestMonitor(t *testing.T) {
	src := &pollReader{}
	readingCh := make(chan *Reading, 8)
	m := NewMonitor(src, SinkFunc(func(ctx context.Context, r *Reading) {
		readingCh <- r
	}), 0)
	m.Stats = NewStats(prometheus.NewRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(ctx) }()

	src.push([]byte{0x00, 0x01})
	src.push(link.Join(link.Envelope{}, []byte{0, 1, 5, 0, 0, 0, 0, 0}))
	src.push(frameOf(&gen2.QuickAlert{Address: 7, Reading: 2}, true))
	// a frame cut short and followed directly by a complete one.
	frame := capturedFrame(t)
	src.push(append(append([]byte(nil), frame[:4]...), frame...))

	for _, expect := range []struct {
		addr    uint16
		trusted bool
	}{{7, false}, {15, true}} {
		select {
		case r := <-readingCh:
			require.Equal(t, expect.addr, r.Address())
			require.Equal(t, expect.trusted, r.Trustworthy())
		case <-time.After(time.Second):
			t.Fatal("reading not received")
		}
	}
	cancel()
	require.Equal(t, context.Canceled, <-errCh)
	require.Equal(t, float64(2+15+4), testutil.ToFloat64(m.Stats.discarded))
	require.Equal(t, float64(2), testutil.ToFloat64(m.Stats.errs.With(prometheus.Labels{"reason": "unknown_variant"})))
}
