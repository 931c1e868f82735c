// Package link strips RM024 API receive framing from telemetry frames.
package link

// A telemetry frame as delivered by the radio in API mode:
//
//	0x81 len reserved rssi tx(3) | Gen2 packet | [rssi2 relay(3) tail]
//
// len counts the bytes after the 7-byte header. Bit 7 of the Gen2
// protocol byte tells whether a repeater relayed the frame, in which case
// the repeater appends its own signal strength and identity.
//
// Split works on a single frame; Parser and Reader find frames in a byte
// stream coming from the serial port.
