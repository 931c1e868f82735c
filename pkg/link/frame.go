package link

import (
	"time"

	"github.com/robotalks/wirefree.go/pkg/gen2"
)

// Frame layout constants.
const (
	// Marker starts every telemetry frame.
	Marker byte = 0x81
	// CommandPrefix starts every command mode response; it never starts a
	// telemetry frame.
	CommandPrefix byte = 0xcc
	// HeaderSize is the size of the frame header before the Gen2 packet.
	HeaderSize = 7
	// RelayTrailerSize is the size of the bytes a repeater appends.
	RelayTrailerSize = 5
	// MaxPayload bounds the declared length to resync quickly on noise.
	MaxPayload = 64

	offLength      = 1
	offRSSI        = 3
	offTransmitter = 4
	offProtocol    = HeaderSize + 2
	relayBit       = 0x80
	minPayload     = 3
)

// Category tells how a frame reached the receiver.
type Category int

// Categories.
const (
	Direct Category = iota
	Relayed
)

// String implements fmt.Stringer.
func (c Category) String() string {
	if c == Relayed {
		return "relayed"
	}
	return "direct"
}

// RawFrame is a frame as received from the serial port.
type RawFrame struct {
	Data     []byte
	Received time.Time
}

// Envelope is the link metadata of a frame.
type Envelope struct {
	Category    Category
	RSSI        byte
	Transmitter [3]byte

	// Only for Relayed frames.
	HopRSSI   byte
	RelayID   [3]byte
	RelayTail byte
}

// FrameSize returns the total frame size for a variant.
func FrameSize(v gen2.Variant, cat Category) (int, bool) {
	size, ok := gen2.Size(v)
	if !ok {
		return 0, false
	}
	size += HeaderSize
	if cat == Relayed {
		size += RelayTrailerSize
	}
	return size, true
}

// Split separates the envelope and the Gen2 packet of a frame.
// The returned packet is a copy with the relay bit of the protocol byte
// cleared. The checksum is not verified here.
func Split(raw RawFrame) (env Envelope, payload []byte, err error) {
	data := raw.Data
	if len(data) == 0 {
		return env, nil, &FrameError{Reason: ErrTruncated, Expected: HeaderSize + minPayload}
	}
	if data[0] != Marker {
		return env, nil, &FrameError{Reason: ErrUnrecognizedMarker, Marker: data[0]}
	}
	if len(data) < HeaderSize+minPayload {
		return env, nil, &FrameError{Reason: ErrTruncated, Offset: len(data), Expected: HeaderSize + minPayload, Actual: len(data)}
	}
	declared := int(data[offLength])
	if declared < minPayload {
		return env, nil, &FrameError{Reason: ErrTruncated, Offset: offLength, Expected: HeaderSize + minPayload, Actual: HeaderSize + declared}
	}
	total := HeaderSize + declared
	if len(data) < total {
		return env, nil, &FrameError{Reason: ErrTruncated, Offset: len(data), Expected: total, Actual: len(data)}
	}

	proto := data[offProtocol]
	if proto&relayBit != 0 {
		env.Category = Relayed
	}
	packetLen := declared
	if env.Category == Relayed {
		packetLen -= RelayTrailerSize
		if packetLen < minPayload {
			return env, nil, &FrameError{Reason: ErrTruncated, Offset: offLength, Expected: HeaderSize + minPayload + RelayTrailerSize, Actual: total}
		}
	}
	if want, ok := FrameSize(gen2.Variant(proto&^relayBit), env.Category); ok && want != total {
		return env, nil, &FrameError{Reason: ErrTruncated, Offset: offLength, Expected: want, Actual: total}
	}

	env.RSSI = data[offRSSI]
	copy(env.Transmitter[:], data[offTransmitter:offTransmitter+3])
	if env.Category == Relayed {
		trailer := data[HeaderSize+packetLen : total]
		env.HopRSSI = trailer[0]
		copy(env.RelayID[:], trailer[1:4])
		env.RelayTail = trailer[4]
	}

	payload = make([]byte, packetLen)
	copy(payload, data[HeaderSize:HeaderSize+packetLen])
	payload[2] &^= relayBit
	return env, payload, nil
}

// Join builds a frame around a Gen2 packet; the inverse of Split.
// For Relayed envelopes the relay bit is set and the trailer appended.
func Join(env Envelope, packet []byte) []byte {
	n := len(packet)
	if env.Category == Relayed {
		n += RelayTrailerSize
	}
	b := make([]byte, 0, HeaderSize+n)
	b = append(b, Marker, byte(n), 0, env.RSSI)
	b = append(b, env.Transmitter[:]...)
	b = append(b, packet...)
	if env.Category == Relayed {
		if len(packet) > 2 {
			b[offProtocol] |= relayBit
		}
		b = append(b, env.HopRSSI)
		b = append(b, env.RelayID[:]...)
		b = append(b, env.RelayTail)
	}
	return b
}
