// Package gen2 decodes OI WireFree Generation II sensor packets.
package gen2

// A Gen2 packet is the payload a wireless gas sensor broadcasts. It always
// starts with the 16-bit transmitter address and a protocol id, followed by
// a big-endian IEEE-754 reading and variant specific bit fields, and ends
// with a one byte checksum.
//
// Three variants exist:
//
//	1 FullReading        addr(2) proto(1) reading(4) mode_type(1) battery(1) gas_scale(1) fault_prec(1) sum(1)
//	2 QuickAlert         addr(2) proto(1) reading(4) sum(1)
//	7 MaintenanceTiming  addr(2) proto(1) reading(4) null_days(2) cal_days(2) mode_type(1) sum(1)
//
// Decoding never drops a packet because of a bad checksum. The packet is
// returned with ChecksumValid unset and callers decide what to do with it.
