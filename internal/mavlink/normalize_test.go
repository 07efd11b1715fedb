package mavlink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWorkedExample(t *testing.T) {
	s, err := Normalize(MsgIDGlobalPositionInt, workedRaw)
	require.NoError(t, err)

	assert.Equal(t, MsgIDGlobalPositionInt, s.MsgID)
	assert.InDelta(t, 47.397742, s.Latitude, 1e-9)
	assert.InDelta(t, 8.540589, s.Longitude, 1e-9)
	assert.InDelta(t, 152.3, s.Altitude, 1e-9)
	require.NotNil(t, s.Heading)
	assert.InDelta(t, 90.0, *s.Heading, 1e-9)
}

func TestNormalizeRanges(t *testing.T) {
	tests := []struct {
		name    string
		raw     PositionRaw
		wantErr bool
	}{
		{"south pole", PositionRaw{Lat: -900000000, Lon: 0}, false},
		{"antimeridian", PositionRaw{Lat: 0, Lon: 1800000000}, false},
		{"full circle heading", PositionRaw{Hdg: 36000}, false},
		{"latitude too high", PositionRaw{Lat: 900000001}, true},
		{"latitude too low", PositionRaw{Lat: -900000001}, true},
		{"longitude too high", PositionRaw{Lon: 1800000001}, true},
		{"longitude too low", PositionRaw{Lon: -1800000001}, true},
		{"heading above 360", PositionRaw{Hdg: 36001}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(MsgIDGlobalPositionInt, tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValueOutOfRange)
				assert.Equal(t, ReasonValueOutOfRange, ReasonOf(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNormalizeUnknownHeading(t *testing.T) {
	s, err := Normalize(MsgIDGlobalPositionInt, PositionRaw{Lat: 1, Lon: 1, Alt: 1, Hdg: HeadingUnknown})
	require.NoError(t, err)
	assert.Nil(t, s.Heading)
}

func TestDenormalizeRoundTrip(t *testing.T) {
	raws := []PositionRaw{
		workedRaw,
		{Lat: -338688000, Lon: 1512093000, Alt: -12, Hdg: HeadingUnknown},
		{Lat: 899999999, Lon: -1799999999, Alt: 2147483647, Hdg: 1},
		{Lat: 1, Lon: -1, Alt: 0, Hdg: 35999},
	}
	for _, raw := range raws {
		s, err := Normalize(MsgIDGlobalPositionInt, raw)
		require.NoError(t, err)
		assert.Equal(t, raw, Denormalize(s))
	}
}
