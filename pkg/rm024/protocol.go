package rm024

import (
	"fmt"
	"time"
)

// InterfaceTimeout is the maximum gap between bytes of one request.
const InterfaceTimeout = 600 * time.Microsecond

const (
	prefix byte = 0xcc

	opStatus       byte = 0x00
	opReadEEPROM   byte = 0xc0
	opWriteEEPROM  byte = 0xc1
	opWriteFlash   byte = 0xc4
	opDecrypt      byte = 0xc5
	opEraseFlash   byte = 0xc6
	opReadFlash    byte = 0xc9
	opReset        byte = 0xff
	statusInfo     byte = 0x00
	statusVerify   byte = 0x02
	eepromSize          = 0x100
	maxFlashLength      = 0xffff
)

var (
	enterRequest = []byte("AT+++\r")
	enterAck     = []byte{prefix, 'C', 'O', 'M'}
	exitRequest  = []byte{prefix, 'A', 'T', 'O', '\r'}
	exitAck      = []byte{prefix, 'D', 'A', 'T'}
)

// LinkStatus is the RF link state reported by the status request.
type LinkStatus byte

// Link states.
const (
	ClientOutOfRange LinkStatus = 1
	Server           LinkStatus = 2
	ClientInRange    LinkStatus = 3
)

// IsValid tells whether the status is a known value.
func (s LinkStatus) IsValid() bool {
	return s >= ClientOutOfRange && s <= ClientInRange
}

// String implements fmt.Stringer.
func (s LinkStatus) String() string {
	switch s {
	case ClientOutOfRange:
		return "client (out of range)"
	case Server:
		return "server"
	case ClientInRange:
		return "client (in range)"
	}
	return fmt.Sprintf("LinkStatus(%d)", byte(s))
}

// Status is the response of a status or verify request.
type Status struct {
	Firmware byte
	Link     LinkStatus
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return fmt.Sprintf("firmware 0x%02x, %v", s.Firmware, s.Link)
}

// ParamKind selects a live parameter, changed without touching EEPROM.
type ParamKind byte

// Live parameters.
const (
	ParamChannel      ParamKind = 0x02
	ParamServerClient ParamKind = 0x03
	ParamPower        ParamKind = 0x25
)

// MaxChannel is the highest RF channel.
const MaxChannel = 0x4d

var paramNames = map[ParamKind]string{
	ParamChannel:      "channel",
	ParamServerClient: "server-client",
	ParamPower:        "power",
}

// String implements fmt.Stringer.
func (k ParamKind) String() string {
	if name, ok := paramNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ParamKind(0x%02x)", byte(k))
}

// ParseParamKind looks up a live parameter by name.
func ParseParamKind(name string) (ParamKind, bool) {
	for k, n := range paramNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// WriteResult is the result code of a flash write.
type WriteResult byte

// Flash write results.
const (
	WriteNoError        WriteResult = 0
	WriteTimeout        WriteResult = 3
	WriteImageExists    WriteResult = 4
	WriteBoundsExceeded WriteResult = 6
)

// String implements fmt.Stringer.
func (r WriteResult) String() string {
	switch r {
	case WriteNoError:
		return "no error"
	case WriteTimeout:
		return "timeout"
	case WriteImageExists:
		return "image already exists"
	case WriteBoundsExceeded:
		return "bounds exceeded"
	}
	return fmt.Sprintf("WriteResult(%d)", byte(r))
}

// ReadResult is the result code of a flash read.
type ReadResult byte

// Flash read results.
const (
	ReadNoError          ReadResult = 0
	ReadOutOfMemory      ReadResult = 2
	ReadTimeout          ReadResult = 3
	ReadAlreadyDecrypted ReadResult = 4
	ReadBoundsExceeded   ReadResult = 6
)

// String implements fmt.Stringer.
func (r ReadResult) String() string {
	switch r {
	case ReadNoError:
		return "no error"
	case ReadOutOfMemory:
		return "out of memory"
	case ReadTimeout:
		return "timeout"
	case ReadAlreadyDecrypted:
		return "already decrypted"
	case ReadBoundsExceeded:
		return "bounds exceeded"
	}
	return fmt.Sprintf("ReadResult(%d)", byte(r))
}

// DecryptResult is the result code of image decryption.
type DecryptResult byte

// Decrypt results.
const (
	DecryptNoError          DecryptResult = 0
	DecryptIntegrityError   DecryptResult = 1
	DecryptOutOfMemory      DecryptResult = 2
	DecryptAlreadyDecrypted DecryptResult = 4
)

// String implements fmt.Stringer.
func (r DecryptResult) String() string {
	switch r {
	case DecryptNoError:
		return "no error"
	case DecryptIntegrityError:
		return "integrity error"
	case DecryptOutOfMemory:
		return "out of memory"
	case DecryptAlreadyDecrypted:
		return "already decrypted"
	}
	return fmt.Sprintf("DecryptResult(%d)", byte(r))
}
