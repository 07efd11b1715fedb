/*
Package mavlink decodes MAVLink v1/v2 frames from telemetry logs (.tlog).

Wire layout:

	v1: 0xFE | len | seq | sysid | compid | msgid            | payload | crc_lo crc_hi
	v2: 0xFD | len | incompat | compat | seq | sysid | compid | msgid (u24 LE) | payload | crc_lo crc_hi [| signature(13)]

The checksum covers every byte after the start marker up to the end of the payload,
followed by the message's CRC_EXTRA seed. Multi-byte fields are little-endian.

Everything here operates on an immutable byte slice and holds no shared state, so
independent files can be decoded concurrently.
*/
package mavlink

const (
	MagicV1 byte = 0xFE
	MagicV2 byte = 0xFD

	HeaderLenV1  = 6  // includes start marker
	HeaderLenV2  = 10 // includes start marker
	ChecksumLen  = 2
	SignatureLen = 13

	// IncompatFlagSigned marks a v2 frame carrying a trailing signature.
	IncompatFlagSigned byte = 0x01
)

// Version identifies the frame header shape.
type Version uint8

const (
	V1 Version = 1
	V2 Version = 2
)

func (v Version) String() string {
	switch v {
	case V1:
		return "v1"
	case V2:
		return "v2"
	default:
		return "unknown"
	}
}

// Header holds the fixed header fields of a frame.
type Header struct {
	Magic         byte
	PayloadLen    uint8
	IncompatFlags uint8 // v2 only
	CompatFlags   uint8 // v2 only
	Seq           uint8
	SysID         uint8
	CompID        uint8
	MsgID         uint32 // 8 bits in v1, 24 bits in v2
}

// Version returns the header shape implied by the start marker.
func (h Header) Version() Version {
	if h.Magic == MagicV2 {
		return V2
	}
	return V1
}

// Len returns the header length including the start marker.
func (h Header) Len() int {
	if h.Magic == MagicV2 {
		return HeaderLenV2
	}
	return HeaderLenV1
}

// Signed reports whether a v2 signature follows the checksum.
func (h Header) Signed() bool {
	return h.Magic == MagicV2 && h.IncompatFlags&IncompatFlagSigned != 0
}

// RawFrame is one candidate frame carved from the input buffer.
// Payload, Checksum and Signature alias the scanned buffer.
type RawFrame struct {
	Offset    int
	Header    Header
	Payload   []byte
	Checksum  []byte
	Signature []byte

	raw []byte
}

// Len returns the total frame length in bytes.
func (f RawFrame) Len() int {
	return len(f.raw)
}

// Bytes returns the complete frame as it appeared on the wire.
func (f RawFrame) Bytes() []byte {
	return f.raw
}

// End returns the buffer offset just past the frame.
func (f RawFrame) End() int {
	return f.Offset + len(f.raw)
}

// checksumSpan returns the bytes covered by the CRC (marker excluded).
func (f RawFrame) checksumSpan() []byte {
	return f.raw[1 : f.Header.Len()+len(f.Payload)]
}

// frameLen returns the on-wire size implied by a header.
func frameLen(h Header) int {
	n := h.Len() + int(h.PayloadLen) + ChecksumLen
	if h.Signed() {
		n += SignatureLen
	}
	return n
}

func isMagic(b byte) bool {
	return b == MagicV1 || b == MagicV2
}

// parseHeader reads a header at buf[0]; the caller guarantees enough bytes.
func parseHeader(buf []byte) Header {
	if buf[0] == MagicV2 {
		return Header{
			Magic:         buf[0],
			PayloadLen:    buf[1],
			IncompatFlags: buf[2],
			CompatFlags:   buf[3],
			Seq:           buf[4],
			SysID:         buf[5],
			CompID:        buf[6],
			MsgID:         uint32(buf[7]) | uint32(buf[8])<<8 | uint32(buf[9])<<16,
		}
	}
	return Header{
		Magic:      buf[0],
		PayloadLen: buf[1],
		Seq:        buf[2],
		SysID:      buf[3],
		CompID:     buf[4],
		MsgID:      uint32(buf[5]),
	}
}
