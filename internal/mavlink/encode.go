package mavlink

import (
	"encoding/binary"
	"fmt"
)

// Encode builds a wire frame for h and payload, sealing it with the
// schema's CRC_EXTRA. PayloadLen is taken from the payload.
func Encode(h Header, payload []byte) ([]byte, error) {
	spec, ok := Lookup(h.MsgID)
	if !ok {
		return nil, fmt.Errorf("encode: %w: message id %d", ErrUnsupportedMessageType, h.MsgID)
	}
	return EncodeWithExtra(h, payload, spec.CRCExtra)
}

// EncodeWithExtra builds a wire frame using an explicit CRC_EXTRA seed.
// Signed v2 headers get a zeroed signature block.
func EncodeWithExtra(h Header, payload []byte, crcExtra byte) ([]byte, error) {
	if len(payload) > 255 {
		return nil, fmt.Errorf("encode: payload is %d bytes, max 255", len(payload))
	}
	if h.Magic != MagicV1 && h.Magic != MagicV2 {
		h.Magic = MagicV1
	}
	if h.Magic == MagicV1 && h.MsgID > 0xFF {
		return nil, fmt.Errorf("encode: message id %d does not fit a v1 header", h.MsgID)
	}
	h.PayloadLen = uint8(len(payload))

	buf := make([]byte, 0, frameLen(h))
	if h.Magic == MagicV2 {
		buf = append(buf, MagicV2, h.PayloadLen, h.IncompatFlags, h.CompatFlags,
			h.Seq, h.SysID, h.CompID,
			byte(h.MsgID), byte(h.MsgID>>8), byte(h.MsgID>>16))
	} else {
		buf = append(buf, MagicV1, h.PayloadLen, h.Seq, h.SysID, h.CompID, byte(h.MsgID))
	}
	buf = append(buf, payload...)
	buf = binary.LittleEndian.AppendUint16(buf, Checksum(buf[1:], crcExtra))
	if h.Signed() {
		buf = append(buf, make([]byte, SignatureLen)...)
	}
	return buf, nil
}

// PackPosition lays out a GLOBAL_POSITION_INT payload. Fields not carried by
// PositionRaw (relative altitude, velocities) are zero.
func PackPosition(timeBootMs uint32, raw PositionRaw) []byte {
	p := make([]byte, globalPositionInt.Length)
	binary.LittleEndian.PutUint32(p[0:], timeBootMs)
	binary.LittleEndian.PutUint32(p[4:], uint32(raw.Lat))
	binary.LittleEndian.PutUint32(p[8:], uint32(raw.Lon))
	binary.LittleEndian.PutUint32(p[12:], uint32(raw.Alt))
	binary.LittleEndian.PutUint16(p[26:], raw.Hdg)
	return p
}

// EncodePosition builds a complete GLOBAL_POSITION_INT frame.
func EncodePosition(v Version, seq uint8, timeBootMs uint32, raw PositionRaw) []byte {
	h := Header{Magic: MagicV1, Seq: seq, SysID: 1, CompID: 1, MsgID: MsgIDGlobalPositionInt}
	if v == V2 {
		h.Magic = MagicV2
	}
	frame, err := Encode(h, PackPosition(timeBootMs, raw))
	if err != nil {
		// Position frames always fit both header shapes.
		panic(err)
	}
	return frame
}

// AppendTlogRecord appends one .tlog record: a big-endian microsecond
// timestamp followed by the raw frame.
func AppendTlogRecord(dst []byte, timeUsec uint64, frame []byte) []byte {
	dst = binary.BigEndian.AppendUint64(dst, timeUsec)
	return append(dst, frame...)
}
