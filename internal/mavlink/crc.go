package mavlink

import "encoding/binary"

const crcInit uint16 = 0xFFFF

// crcAccumulate folds one byte into a CRC-16/MCRF4XX (X.25) checksum.
func crcAccumulate(b byte, crc uint16) uint16 {
	tmp := b ^ byte(crc&0xFF)
	tmp ^= tmp << 4
	return (crc >> 8) ^ (uint16(tmp) << 8) ^ (uint16(tmp) << 3) ^ (uint16(tmp) >> 4)
}

// Checksum computes the frame checksum over span followed by the CRC_EXTRA seed.
func Checksum(span []byte, crcExtra byte) uint16 {
	crc := crcInit
	for _, b := range span {
		crc = crcAccumulate(b, crc)
	}
	return crcAccumulate(crcExtra, crc)
}

// ValidChecksum recomputes the checksum of f and compares it with the trailer.
func ValidChecksum(f RawFrame, crcExtra byte) bool {
	if len(f.Checksum) != ChecksumLen || len(f.raw) == 0 {
		return false
	}
	return Checksum(f.checksumSpan(), crcExtra) == binary.LittleEndian.Uint16(f.Checksum)
}

// Validate checks a candidate frame against the schema table.
// Frames whose message id has no schema entry cannot be checked and are
// reported as unsupported.
func Validate(f RawFrame) error {
	spec, ok := Lookup(f.Header.MsgID)
	if !ok {
		return frameErr(f, ErrUnsupportedMessageType, "no schema for message id %d", f.Header.MsgID)
	}
	if !ValidChecksum(f, spec.CRCExtra) {
		return frameErr(f, ErrChecksumMismatch, "%s: trailer % x", spec.Name, f.Checksum)
	}
	return nil
}
