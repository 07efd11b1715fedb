package mavlink

import (
	"encoding/hex"
	"strings"
	"testing"
)

// workedFrameHex is a v1 GLOBAL_POSITION_INT frame: seq 0, sys 1, comp 1,
// lat 473977420, lon 85405890, alt 152300, hdg 9000.
const workedFrameHex = "fe 1c 00 01 01 21" +
	" 00 00 00 00 4c 52 40 1c c2 30 17 05 ec 52 02 00 00 00 00 00 00 00 00 00 00 00 28 23" +
	" 0e e7"

var workedRaw = PositionRaw{Lat: 473977420, Lon: 85405890, Alt: 152300, Hdg: 9000}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		t.Fatalf("bad hex fixture: %v", err)
	}
	return b
}

func workedFrame(t *testing.T) []byte {
	return mustHex(t, workedFrameHex)
}

// scanOne returns the first candidate frame in buf.
func scanOne(t *testing.T, buf []byte) RawFrame {
	t.Helper()
	f, err := NewScanner(buf).Next()
	if err != nil {
		t.Fatalf("expected a frame, got %v", err)
	}
	return f
}

// noise returns n bytes that never contain a start marker.
func noise(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		v := seed + byte(i*37)
		if isMagic(v) {
			v = 0x55
		}
		b[i] = v
	}
	return b
}
