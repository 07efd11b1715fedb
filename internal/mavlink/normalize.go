package mavlink

import (
	"fmt"
	"math"

	"github.com/tlog-viewer/backend/internal/models"
)

// Fixed-point scales of the GLOBAL_POSITION_INT fields.
const (
	DegE7Scale       = 1e7
	MillimeterScale  = 1e3
	CentidegreeScale = 1e2
)

// Normalize converts raw position fields into degrees and meters.
// An unknown heading maps to a nil Heading. Results outside the physical
// range are rejected rather than clamped.
func Normalize(msgID uint32, raw PositionRaw) (models.Sample, error) {
	s := models.Sample{
		MsgID:     msgID,
		Latitude:  float64(raw.Lat) / DegE7Scale,
		Longitude: float64(raw.Lon) / DegE7Scale,
		Altitude:  float64(raw.Alt) / MillimeterScale,
	}

	if s.Latitude < -90 || s.Latitude > 90 {
		return models.Sample{}, fmt.Errorf("%w: latitude %.7f", ErrValueOutOfRange, s.Latitude)
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return models.Sample{}, fmt.Errorf("%w: longitude %.7f", ErrValueOutOfRange, s.Longitude)
	}

	if raw.Hdg != HeadingUnknown {
		hdg := float64(raw.Hdg) / CentidegreeScale
		if hdg > 360 {
			return models.Sample{}, fmt.Errorf("%w: heading %.2f", ErrValueOutOfRange, hdg)
		}
		s.Heading = &hdg
	}
	return s, nil
}

// Denormalize re-encodes a sample at raw scale, rounding to the nearest unit.
// It inverts Normalize for every accepted sample.
func Denormalize(s models.Sample) PositionRaw {
	raw := PositionRaw{
		Lat: int32(math.Round(s.Latitude * DegE7Scale)),
		Lon: int32(math.Round(s.Longitude * DegE7Scale)),
		Alt: int32(math.Round(s.Altitude * MillimeterScale)),
		Hdg: HeadingUnknown,
	}
	if s.Heading != nil {
		raw.Hdg = uint16(math.Round(*s.Heading * CentidegreeScale))
	}
	return raw
}
