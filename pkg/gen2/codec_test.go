package gen2

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// Gen2 packets taken from captured relayed frames, relay bit cleared.
var (
	capturedFullReading = []byte{0x00, 0x0f, 0x01, 0x00, 0x00, 0x00, 0x00, 0x08, 0x24, 0x06, 0x00, 0x42}
	capturedMaintenance = []byte{0x00, 0x04, 0x07, 0x00, 0x00, 0x00, 0x00, 0x00, 0x18, 0xfd, 0xe8, 0x00, 0x08}
)

func withChecksum(b ...byte) []byte {
	return append(b, Checksum(b))
}

func TestChecksum(t *testing.T) {
	require.Equal(t, byte(0), Checksum(nil))
	require.Equal(t, byte(0x42), Checksum(capturedFullReading[:11]))
	require.Equal(t, byte(0x08), Checksum(capturedMaintenance[:12]))
	require.Equal(t, byte(0xfe), Checksum([]byte{0xff, 0xff}))
}

func TestDecodeCapturedFullReading(t *testing.T) {
	pkt, err := Decode(capturedFullReading)
	require.NoError(t, err)
	require.True(t, pkt.ChecksumValid)
	require.Equal(t, byte(0x42), pkt.Checksum)
	require.Equal(t, VariantFullReading, pkt.Variant())
	r, ok := pkt.Payload.(*FullReading)
	require.True(t, ok)
	require.Equal(t, &FullReading{
		Address:      15,
		Reading:      0,
		Mode:         ModeNormal,
		Type:         1,
		BatteryRaw:   0x24,
		BatteryScale: 0,
		BatteryVolts: 3.6,
		Gas:          6,
		Fault:        FaultNone,
		Precision:    0,
	}, r)
	require.Equal(t, "IR", r.Type.String())
	require.Equal(t, "LEL", r.Gas.String())
}

func TestDecodeCapturedMaintenance(t *testing.T) {
	pkt, err := Decode(capturedMaintenance)
	require.NoError(t, err)
	require.True(t, pkt.ChecksumValid)
	require.Equal(t, &MaintenanceTiming{
		Address:       4,
		DaysSinceNull: 24,
		DaysSinceCal:  65000,
	}, pkt.Payload)
}

func TestDecodeQuickAlert(t *testing.T) {
	// 20.5 = 0x41a40000
	pkt, err := Decode(withChecksum(0x01, 0x02, 0x02, 0x41, 0xa4, 0x00, 0x00))
	require.NoError(t, err)
	require.True(t, pkt.ChecksumValid)
	require.Equal(t, &QuickAlert{Address: 0x0102, Reading: 20.5}, pkt.Payload)
	require.Equal(t, uint16(0x0102), pkt.TransmitterAddress())
	require.Equal(t, float32(20.5), pkt.SensorReading())
}

func TestDecodeChecksumMismatchIsFlagged(t *testing.T) {
	for i := 0; i < len(capturedFullReading)-1; i++ {
		corrupted := append([]byte(nil), capturedFullReading...)
		corrupted[i] ^= 0x10
		if i == offProtocol {
			continue
		}
		pkt, err := Decode(corrupted)
		require.NoErrorf(t, err, "byte %d", i)
		require.Falsef(t, pkt.ChecksumValid, "byte %d", i)
	}

	corrupted := append([]byte(nil), capturedFullReading...)
	corrupted[11]++
	pkt, err := Decode(corrupted)
	require.NoError(t, err)
	require.False(t, pkt.ChecksumValid)
	require.Equal(t, corrupted, pkt.Bytes())
}

func TestDecodeBitFields(t *testing.T) {
	testCases := []struct {
		name     string
		modeType byte
		battery  byte
		gasScale byte
		faultPre byte
		expect   FullReading
	}{
		{
			name:     "all set",
			modeType: 0xff, battery: 0xff, gasScale: 0xff, faultPre: 0xff,
			expect: FullReading{Mode: 7, Type: 31, BatteryRaw: 0xff, BatteryScale: 1, BatteryVolts: 255, Gas: 0x7f, Fault: 15, Precision: 7},
		},
		{
			name:     "gas scale byte 0x82",
			modeType: 0x00, battery: 0x17, gasScale: 0x82, faultPre: 0x00,
			expect: FullReading{BatteryRaw: 0x17, BatteryScale: 1, BatteryVolts: 23, Gas: 2},
		},
		{
			name:     "battery tenths",
			modeType: 0x00, battery: 0x17, gasScale: 0x02, faultPre: 0x00,
			expect: FullReading{BatteryRaw: 0x17, BatteryScale: 0, BatteryVolts: 2.3, Gas: 2},
		},
		{
			name:     "mode and type",
			modeType: 0x2a, battery: 0x00, gasScale: 0x00, faultPre: 0x00,
			expect: FullReading{Mode: 2, Type: 5},
		},
		{
			name:     "fault and precision",
			modeType: 0x00, battery: 0x00, gasScale: 0x00, faultPre: 0x29,
			expect: FullReading{Fault: 9, Precision: 2},
		},
		{
			name:     "precision ignores bit 7",
			modeType: 0x00, battery: 0x00, gasScale: 0x00, faultPre: 0xb0,
			expect: FullReading{Precision: 3},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pkt, err := Decode(withChecksum(0x00, 0x21, 0x01, 0x00, 0x00, 0x00, 0x00,
				tc.modeType, tc.battery, tc.gasScale, tc.faultPre))
			require.NoError(t, err)
			require.True(t, pkt.ChecksumValid)
			tc.expect.Address = 0x21
			require.Equal(t, &tc.expect, pkt.Payload)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	testCases := []struct {
		name     string
		in       []byte
		reason   error
		expected int
		actual   int
	}{
		{"empty", nil, ErrMalformed, 8, 0},
		{"too short", []byte{0x00, 0x01, 0x01}, ErrMalformed, 8, 3},
		{"unknown variant", []byte{0x00, 0x01, 0x05, 0, 0, 0, 0, 0}, ErrUnknownVariant, 0, 0},
		{"relay bit not cleared", []byte{0x00, 0x01, 0x81, 0, 0, 0, 0, 0, 0, 0, 0, 0}, ErrUnknownVariant, 0, 0},
		{"full reading short", capturedFullReading[:11], ErrMalformed, 12, 11},
		{"full reading long", append(append([]byte(nil), capturedFullReading...), 0), ErrMalformed, 12, 13},
		{"quick alert long", withChecksum(0x00, 0x01, 0x02, 0, 0, 0, 0, 0), ErrMalformed, 8, 9},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pkt, err := Decode(tc.in)
			require.Nil(t, pkt)
			require.True(t, errors.Is(err, tc.reason), "got %v", err)
			var de *DecodeError
			require.True(t, errors.As(err, &de))
			require.Equal(t, tc.expected, de.Expected)
			require.Equal(t, tc.actual, de.Actual)
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payloads := []Payload{
		&FullReading{
			Address: 0x1234, Reading: 20.9, Mode: ModeCalibration, Type: 4,
			BatteryRaw: 36, BatteryScale: 0, BatteryVolts: 3.6,
			Gas: 3, Fault: FaultBadReading, Precision: 1,
		},
		NewFullReading(7, 100, 48),
		&QuickAlert{Address: 0xfffe, Reading: -1.25},
		&MaintenanceTiming{Address: 9, Reading: 0.5, DaysSinceNull: 3, DaysSinceCal: 400, Mode: ModeNull, Type: 30},
	}
	for _, p := range payloads {
		t.Run(p.Variant().String(), func(t *testing.T) {
			b := Encode(p)
			size, ok := Size(p.Variant())
			require.True(t, ok)
			require.Len(t, b, size)
			pkt, err := Decode(b)
			require.NoError(t, err)
			require.True(t, pkt.ChecksumValid)
			require.Equal(t, p, pkt.Payload)
			require.Equal(t, b, pkt.Bytes())
		})
	}
}

func TestEncodeCapturedPacket(t *testing.T) {
	pkt, err := Decode(capturedMaintenance)
	require.NoError(t, err)
	require.Equal(t, capturedMaintenance, Encode(pkt.Payload))
}
