package bus

import (
	"encoding/hex"
	"time"

	"github.com/robotalks/wirefree.go/pkg/gen2"
	"github.com/robotalks/wirefree.go/pkg/link"
	"github.com/robotalks/wirefree.go/pkg/telemetry"
)

// Message is a reading as published on the bus.
type Message struct {
	Gateway       string    `json:"gateway,omitempty"`
	Address       uint16    `json:"address"`
	Variant       string    `json:"variant"`
	Reading       float32   `json:"reading"`
	ChecksumValid bool      `json:"checksum_valid"`
	Received      time.Time `json:"received"`

	Category    string `json:"category"`
	RSSI        int    `json:"rssi"`
	Transmitter string `json:"transmitter"`
	HopRSSI     int    `json:"hop_rssi,omitempty"`
	RelayID     string `json:"relay_id,omitempty"`

	Mode          string  `json:"mode,omitempty"`
	Type          string  `json:"type,omitempty"`
	BatteryVolts  float32 `json:"battery_volts,omitempty"`
	Gas           string  `json:"gas,omitempty"`
	Fault         string  `json:"fault,omitempty"`
	Precision     *int    `json:"precision,omitempty"`
	DaysSinceNull *uint16 `json:"days_since_null,omitempty"`
	DaysSinceCal  *uint16 `json:"days_since_cal,omitempty"`
}

// NewMessage converts a reading.
func NewMessage(gateway string, r *telemetry.Reading) *Message {
	m := &Message{
		Gateway:       gateway,
		Address:       r.Address(),
		Variant:       r.Packet.Variant().String(),
		Reading:       r.Packet.SensorReading(),
		ChecksumValid: r.Trustworthy(),
		Received:      r.Received,
		Category:      r.Envelope.Category.String(),
		RSSI:          int(r.Envelope.RSSI),
		Transmitter:   hex.EncodeToString(r.Envelope.Transmitter[:]),
	}
	if r.Envelope.Category == link.Relayed {
		m.HopRSSI = int(r.Envelope.HopRSSI)
		m.RelayID = hex.EncodeToString(r.Envelope.RelayID[:])
	}
	switch p := r.Packet.Payload.(type) {
	case *gen2.FullReading:
		m.Mode, m.Type = p.Mode.String(), p.Type.String()
		m.BatteryVolts = p.BatteryVolts
		m.Gas = p.Gas.String()
		if p.Fault.IsFault() {
			m.Fault = p.Fault.String()
		}
		precision := int(p.Precision)
		m.Precision = &precision
	case *gen2.MaintenanceTiming:
		m.Mode, m.Type = p.Mode.String(), p.Type.String()
		null, cal := p.DaysSinceNull, p.DaysSinceCal
		m.DaysSinceNull, m.DaysSinceCal = &null, &cal
	}
	return m
}

// Fields renders the message as a generic map, keyed like the JSON form.
func (m *Message) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"address":        int(m.Address),
		"variant":        m.Variant,
		"reading":        float64(m.Reading),
		"checksum_valid": m.ChecksumValid,
		"received":       m.Received.Format(time.RFC3339Nano),
		"category":       m.Category,
		"rssi":           m.RSSI,
		"transmitter":    m.Transmitter,
	}
	set := func(key, val string) {
		if val != "" {
			fields[key] = val
		}
	}
	set("gateway", m.Gateway)
	set("relay_id", m.RelayID)
	set("mode", m.Mode)
	set("type", m.Type)
	set("gas", m.Gas)
	set("fault", m.Fault)
	if m.HopRSSI != 0 {
		fields["hop_rssi"] = m.HopRSSI
	}
	if m.BatteryVolts != 0 {
		fields["battery_volts"] = float64(m.BatteryVolts)
	}
	if m.Precision != nil {
		fields["precision"] = *m.Precision
	}
	if m.DaysSinceNull != nil {
		fields["days_since_null"] = int(*m.DaysSinceNull)
	}
	if m.DaysSinceCal != nil {
		fields["days_since_cal"] = int(*m.DaysSinceCal)
	}
	return fields
}
