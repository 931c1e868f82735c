package gen2

import (
	"math"
	"strconv"
)

// Variant is the protocol id of a Gen2 packet.
type Variant byte

// Known variants.
const (
	VariantFullReading       Variant = 1
	VariantQuickAlert        Variant = 2
	VariantMaintenanceTiming Variant = 7
)

// Fixed part of every packet: addr(2) proto(1) reading(4).
const (
	headerSize  = 7
	offProtocol = 2
	offReading  = 3
)

var variantSizes = map[Variant]int{
	VariantFullReading:       12,
	VariantQuickAlert:        8,
	VariantMaintenanceTiming: 13,
}

// Size returns the encoded size of a variant including the checksum byte.
func Size(v Variant) (int, bool) {
	n, ok := variantSizes[v]
	return n, ok
}

// String implements fmt.Stringer.
func (v Variant) String() string {
	switch v {
	case VariantFullReading:
		return "FullReading"
	case VariantQuickAlert:
		return "QuickAlert"
	case VariantMaintenanceTiming:
		return "MaintenanceTiming"
	}
	return "Variant(" + strconv.Itoa(int(v)) + ")"
}

// Payload is the decoded content of one of the variants.
// It is implemented by *FullReading, *QuickAlert and *MaintenanceTiming only.
type Payload interface {
	Variant() Variant
	TransmitterAddress() uint16
	SensorReading() float32

	appendFields(b []byte) []byte
}

// Packet is a decoded Gen2 packet.
type Packet struct {
	Payload
	Checksum      byte
	ChecksumValid bool
}

// FullReading is the protocol 1 payload.
type FullReading struct {
	Address      uint16
	Reading      float32
	Mode         SensorMode
	Type         SensorType
	BatteryRaw   byte
	BatteryScale byte
	BatteryVolts float32
	Gas          GasType
	Fault        FaultCode
	Precision    byte
}

// QuickAlert is the protocol 2 payload, sent every few seconds while gas is detected.
type QuickAlert struct {
	Address uint16
	Reading float32
}

// MaintenanceTiming is the protocol 7 payload.
type MaintenanceTiming struct {
	Address       uint16
	Reading       float32
	DaysSinceNull uint16
	DaysSinceCal  uint16
	Mode          SensorMode
	Type          SensorType
}

// Variant implements Payload.
func (r *FullReading) Variant() Variant { return VariantFullReading }

// TransmitterAddress implements Payload.
func (r *FullReading) TransmitterAddress() uint16 { return r.Address }

// SensorReading implements Payload.
func (r *FullReading) SensorReading() float32 { return r.Reading }

// FormatReading renders the reading with the number of decimals the sensor reports.
func (r *FullReading) FormatReading() string {
	return strconv.FormatFloat(float64(r.Reading), 'f', int(r.Precision), 32)
}

// Variant implements Payload.
func (a *QuickAlert) Variant() Variant { return VariantQuickAlert }

// TransmitterAddress implements Payload.
func (a *QuickAlert) TransmitterAddress() uint16 { return a.Address }

// SensorReading implements Payload.
func (a *QuickAlert) SensorReading() float32 { return a.Reading }

// Variant implements Payload.
func (m *MaintenanceTiming) Variant() Variant { return VariantMaintenanceTiming }

// TransmitterAddress implements Payload.
func (m *MaintenanceTiming) TransmitterAddress() uint16 { return m.Address }

// SensorReading implements Payload.
func (m *MaintenanceTiming) SensorReading() float32 { return m.Reading }

// Bit fields.

func modeType(b byte) (SensorMode, SensorType) {
	return SensorMode(b & 0x07), SensorType((b >> 3) & 0x1f)
}

func packModeType(m SensorMode, t SensorType) byte {
	return byte(m)&0x07 | (byte(t)&0x1f)<<3
}

func gasScale(b byte) (GasType, byte) {
	return GasType(b & 0x7f), (b >> 7) & 1
}

func packGasScale(g GasType, scale byte) byte {
	return byte(g)&0x7f | (scale&1)<<7
}

func faultPrecision(b byte) (FaultCode, byte) {
	return FaultCode(b & 0x0f), (b >> 4) & 0x07
}

func packFaultPrecision(f FaultCode, precision byte) byte {
	return byte(f)&0x0f | (precision&0x07)<<4
}

// BatteryVolts converts the raw battery byte using the scale flag.
// Scale 0 is tenths of a volt, scale 1 is whole volts.
func BatteryVolts(raw, scale byte) float32 {
	if scale == 0 {
		return float32(raw) / 10
	}
	return float32(raw)
}

// BatteryByte picks the raw byte and scale flag for a voltage.
func BatteryByte(volts float32) (raw, scale byte) {
	if volts <= 25.5 {
		return byte(math.Round(float64(volts) * 10)), 0
	}
	if volts >= 255 {
		return 255, 1
	}
	return byte(math.Round(float64(volts))), 1
}
