package gen2

import (
	"encoding/binary"
	"math"
)

// Checksum computes the packet checksum over data (everything but the
// checksum byte itself): the plain sum of all bytes modulo 256.
// Captured frames confirm this convention; the alternative seen in some
// documents is 0xff minus this value.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// Decode parses a complete Gen2 packet. The protocol byte must have the
// relay bit cleared already.
func Decode(b []byte) (*Packet, error) {
	if len(b) < headerSize+1 {
		var proto byte
		if len(b) > offProtocol {
			proto = b[offProtocol]
		}
		return nil, &DecodeError{Reason: ErrMalformed, Protocol: proto, Offset: len(b), Expected: headerSize + 1, Actual: len(b)}
	}
	v := Variant(b[offProtocol])
	size, ok := Size(v)
	if !ok {
		return nil, &DecodeError{Reason: ErrUnknownVariant, Protocol: b[offProtocol], Offset: offProtocol}
	}
	if len(b) != size {
		offset := size
		if len(b) < size {
			offset = len(b)
		}
		return nil, &DecodeError{Reason: ErrMalformed, Protocol: byte(v), Offset: offset, Expected: size, Actual: len(b)}
	}

	pkt := &Packet{Checksum: b[size-1]}
	pkt.ChecksumValid = Checksum(b[:size-1]) == pkt.Checksum

	addr := binary.BigEndian.Uint16(b[0:2])
	reading := math.Float32frombits(binary.BigEndian.Uint32(b[offReading : offReading+4]))
	fields := b[headerSize : size-1]

	switch v {
	case VariantFullReading:
		r := &FullReading{Address: addr, Reading: reading, BatteryRaw: fields[1]}
		r.Mode, r.Type = modeType(fields[0])
		r.Gas, r.BatteryScale = gasScale(fields[2])
		r.BatteryVolts = BatteryVolts(r.BatteryRaw, r.BatteryScale)
		r.Fault, r.Precision = faultPrecision(fields[3])
		pkt.Payload = r
	case VariantQuickAlert:
		pkt.Payload = &QuickAlert{Address: addr, Reading: reading}
	case VariantMaintenanceTiming:
		m := &MaintenanceTiming{
			Address:       addr,
			Reading:       reading,
			DaysSinceNull: binary.BigEndian.Uint16(fields[0:2]),
			DaysSinceCal:  binary.BigEndian.Uint16(fields[2:4]),
		}
		m.Mode, m.Type = modeType(fields[4])
		pkt.Payload = m
	}
	return pkt, nil
}

// Encode serializes a payload and appends a valid checksum.
func Encode(p Payload) []byte {
	size, _ := Size(p.Variant())
	b := make([]byte, headerSize, size)
	binary.BigEndian.PutUint16(b[0:2], p.TransmitterAddress())
	b[offProtocol] = byte(p.Variant())
	binary.BigEndian.PutUint32(b[offReading:], math.Float32bits(p.SensorReading()))
	b = p.appendFields(b)
	return append(b, Checksum(b))
}

// Bytes encodes the packet keeping the received checksum byte, so a
// corrupted packet re-encodes to the same bytes.
func (p *Packet) Bytes() []byte {
	b := Encode(p.Payload)
	b[len(b)-1] = p.Checksum
	return b
}

func (r *FullReading) appendFields(b []byte) []byte {
	return append(b,
		packModeType(r.Mode, r.Type),
		r.BatteryRaw,
		packGasScale(r.Gas, r.BatteryScale),
		packFaultPrecision(r.Fault, r.Precision))
}

func (a *QuickAlert) appendFields(b []byte) []byte {
	return b
}

func (m *MaintenanceTiming) appendFields(b []byte) []byte {
	b = append(b, byte(m.DaysSinceNull>>8), byte(m.DaysSinceNull))
	b = append(b, byte(m.DaysSinceCal>>8), byte(m.DaysSinceCal))
	return append(b, packModeType(m.Mode, m.Type))
}

// NewFullReading builds a protocol 1 payload deriving the battery byte from volts.
func NewFullReading(addr uint16, reading float32, volts float32) *FullReading {
	r := &FullReading{Address: addr, Reading: reading}
	r.BatteryRaw, r.BatteryScale = BatteryByte(volts)
	r.BatteryVolts = BatteryVolts(r.BatteryRaw, r.BatteryScale)
	return r
}
