package testutil

import (
	"github.com/tlog-viewer/backend/internal/mavlink"
)

// WorkedPosition is the reference GLOBAL_POSITION_INT sample:
// 47.397742, 8.540589, 152.3 m, heading 90.
var WorkedPosition = mavlink.PositionRaw{Lat: 473977420, Lon: 85405890, Alt: 152300, Hdg: 9000}

// Frames concatenates v1 GLOBAL_POSITION_INT frames with no tlog timestamps.
func Frames(raws ...mavlink.PositionRaw) []byte {
	var buf []byte
	for i, raw := range raws {
		buf = append(buf, mavlink.EncodePosition(mavlink.V1, uint8(i), uint32(i*100), raw)...)
	}
	return buf
}

// Tlog builds a .tlog capture: each frame preceded by its microsecond timestamp.
func Tlog(raws ...mavlink.PositionRaw) []byte {
	const base = uint64(1_700_000_000_000_000)
	var buf []byte
	for i, raw := range raws {
		frame := mavlink.EncodePosition(mavlink.V2, uint8(i), uint32(i*100), raw)
		buf = mavlink.AppendTlogRecord(buf, base+uint64(i)*200_000, frame)
	}
	return buf
}

// Track returns n distinct valid positions.
func Track(n int) []mavlink.PositionRaw {
	out := make([]mavlink.PositionRaw, n)
	for i := range out {
		out[i] = mavlink.PositionRaw{
			Lat: WorkedPosition.Lat + int32(i*1000),
			Lon: WorkedPosition.Lon - int32(i*700),
			Alt: WorkedPosition.Alt + int32(i*10),
			Hdg: uint16((9000 + i*50) % 36000),
		}
	}
	return out
}
