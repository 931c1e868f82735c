package rm024

import (
	"bytes"
	"fmt"
	"sort"
)

// Field is a range of the radio EEPROM. Value is nil in a read request.
type Field struct {
	Address byte
	Length  byte
	Value   []byte
}

// Known EEPROM fields.
var (
	FieldChannel      = Field{Address: 0x40, Length: 1}
	FieldServerClient = Field{Address: 0x41, Length: 1}
	FieldBaudRate     = Field{Address: 0x42, Length: 1}
	FieldControl1     = Field{Address: 0x56, Length: 1}
	FieldRFPacketSize = Field{Address: 0x5a, Length: 1}
	FieldSystemID     = Field{Address: 0x76, Length: 1}
)

// NamedFields maps names to known EEPROM fields.
var NamedFields = map[string]Field{
	"channel":        FieldChannel,
	"server-client":  FieldServerClient,
	"baud":           FieldBaudRate,
	"control1":       FieldControl1,
	"rf-packet-size": FieldRFPacketSize,
	"system-id":      FieldSystemID,
}

// FieldNames returns the sorted names of known fields.
func FieldNames() []string {
	names := make([]string, 0, len(NamedFields))
	for name := range NamedFields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// With returns a copy of the field carrying value.
func (f Field) With(value ...byte) Field {
	f.Value = append([]byte(nil), value...)
	f.Length = byte(len(value))
	return f
}

// String implements fmt.Stringer.
func (f Field) String() string {
	if f.Value == nil {
		return fmt.Sprintf("0x%02x+%d", f.Address, f.Length)
	}
	return fmt.Sprintf("0x%02x+%d [% x]", f.Address, f.Length, f.Value)
}

func (f Field) validate() error {
	if f.Length == 0 || int(f.Address)+int(f.Length) > eepromSize {
		return fmt.Errorf("%w: eeprom field %v", ErrInvalidArgument, f)
	}
	if f.Value != nil && len(f.Value) != int(f.Length) {
		return fmt.Errorf("%w: eeprom field %v has %d bytes", ErrInvalidArgument, f, len(f.Value))
	}
	return nil
}

// ReadEEPROM reads a field.
func (s *Session) ReadEEPROM(f Field) (Field, error) {
	f.Value = nil
	if err := f.validate(); err != nil {
		return f, err
	}
	if err := s.acquire(); err != nil {
		return f, err
	}
	defer s.lock.Unlock()

	req := []byte{prefix, opReadEEPROM, f.Address, f.Length}
	resp, err := s.exchange("eeprom read", EEPROMAccess, req, 3+int(f.Length), s.link.timeouts.EEPROM)
	if err != nil {
		return f, err
	}
	head := []byte{prefix, f.Address, f.Length}
	if !bytes.Equal(resp[:3], head) {
		return f, s.unexpected("eeprom read", head, resp)
	}
	f.Value = resp[3:]
	return f, nil
}

// WriteEEPROM writes a field. The radio acknowledges with the address,
// length and last byte written, and only an exact echo counts as success.
func (s *Session) WriteEEPROM(f Field) error {
	if f.Value == nil {
		return fmt.Errorf("%w: eeprom field %v has no value", ErrInvalidArgument, f)
	}
	if err := f.validate(); err != nil {
		return err
	}
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.lock.Unlock()

	req := append([]byte{prefix, opWriteEEPROM, f.Address, f.Length}, f.Value...)
	expected := []byte{f.Address, f.Length, f.Value[len(f.Value)-1]}
	resp, err := s.exchange("eeprom write", EEPROMAccess, req, len(expected), s.link.timeouts.EEPROM)
	if err != nil {
		return err
	}
	if !bytes.Equal(resp, expected) {
		return s.unexpected("eeprom write", expected, resp)
	}
	return nil
}
