package gen2

import "fmt"

// SensorMode is the 3-bit operating mode of a sensor.
type SensorMode byte

// SensorType is the 5-bit sensing technology of a sensor.
type SensorType byte

// GasType is the 7-bit gas the sensor measures.
type GasType byte

// FaultCode is the 4-bit fault reported by a sensor.
type FaultCode byte

// Sensor modes.
const (
	ModeNormal SensorMode = iota
	ModeNull
	ModeCalibration
	ModeRelay
	ModeRadioAddress
	ModeDiagnostic
	ModeAdvancedMenu
	ModeAdminMenu
)

// Fault codes.
const (
	FaultNone               FaultCode = 0
	FaultSensorBoardTimeout FaultCode = 1
	FaultBadReading         FaultCode = 2
	FaultCurrentDraw        FaultCode = 3
	FaultADC                FaultCode = 4
	FaultNull               FaultCode = 5
	FaultChecksum           FaultCode = 7
	FaultDuplicateAddress   FaultCode = 8
	FaultRadioTimeout       FaultCode = 9
	FaultWiredDisconnected  FaultCode = 10
	FaultMonitor            FaultCode = 15
)

var (
	modeNames = map[SensorMode]string{
		ModeNormal:       "Normal",
		ModeNull:         "Null",
		ModeCalibration:  "Calibration",
		ModeRelay:        "Relay",
		ModeRadioAddress: "Radio Address",
		ModeDiagnostic:   "Diagnostic",
		ModeAdvancedMenu: "Advanced Menu",
		ModeAdminMenu:    "Administration Menu",
	}

	sensorTypeNames = map[SensorType]string{
		0:  "EC",
		1:  "IR",
		2:  "CB",
		3:  "MOS",
		4:  "PID",
		5:  "Tank Level",
		6:  "4-20mA",
		7:  "Switch",
		30: "OI-WF190",
		31: "None",
	}

	gasNames = map[GasType]string{
		0:  "H2S",
		1:  "SO2",
		2:  "O2",
		3:  "CO",
		4:  "CL2",
		5:  "CO2",
		6:  "LEL",
		7:  "VOC",
		8:  "Tank Level",
		9:  "HCl",
		10: "NH3",
	}

	faultNames = map[FaultCode]string{
		FaultNone:               "None",
		FaultSensorBoardTimeout: "Sensor Board Timeout",
		FaultBadReading:         "Bad Reading",
		FaultCurrentDraw:        "Current Draw Too High",
		FaultADC:                "ADC Not Responding",
		FaultNull:               "Error During Null",
		6:                       "Future Error",
		FaultChecksum:           "Checksum Error",
		FaultDuplicateAddress:   "Duplicate Otis Address",
		FaultRadioTimeout:       "Sensor Radio Timeout",
		FaultWiredDisconnected:  "Wired Sensor Not Connected",
		FaultMonitor:            "Monitor Error",
	}
)

// String implements fmt.Stringer.
func (m SensorMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", byte(m))
}

// String implements fmt.Stringer.
func (t SensorType) String() string {
	if name, ok := sensorTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", byte(t))
}

// String implements fmt.Stringer.
func (g GasType) String() string {
	if name, ok := gasNames[g]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", byte(g))
}

// String implements fmt.Stringer.
func (f FaultCode) String() string {
	if name, ok := faultNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", byte(f))
}

// IsFault tells whether the sensor reports a fault.
func (f FaultCode) IsFault() bool {
	return f != FaultNone
}
