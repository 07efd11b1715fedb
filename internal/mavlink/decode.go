package mavlink

import "encoding/binary"

// Fields maps field names to their raw integer values.
type Fields map[string]int64

// Decode unpacks the payload of a validated frame using its schema layout.
//
// MAVLink 2 senders strip trailing zero bytes from payloads, so a shorter v2
// payload is zero-extended to the layout length. A v1 payload must match the
// layout exactly, and no payload may exceed it.
func Decode(f RawFrame) (*MessageSpec, Fields, error) {
	spec, ok := Lookup(f.Header.MsgID)
	if !ok || !spec.Decode {
		return nil, nil, frameErr(f, ErrUnsupportedMessageType, "message id %d is not decoded", f.Header.MsgID)
	}

	payload := f.Payload
	switch {
	case len(payload) == spec.Length:
	case len(payload) < spec.Length && f.Header.Version() == V2:
		padded := make([]byte, spec.Length)
		copy(padded, payload)
		payload = padded
	default:
		return nil, nil, frameErr(f, ErrPayloadLayoutMismatch, "%s %s payload is %d bytes, layout needs %d",
			spec.Name, f.Header.Version(), len(payload), spec.Length)
	}

	fields := make(Fields, len(spec.Fields))
	for _, fd := range spec.Fields {
		v, err := readField(payload, fd)
		if err != nil {
			return nil, nil, frameErr(f, err, "%s.%s", spec.Name, fd.Name)
		}
		fields[fd.Name] = v
	}
	return spec, fields, nil
}

func readField(payload []byte, fd Field) (int64, error) {
	end := fd.Offset + fd.Width
	if fd.Offset < 0 || end > len(payload) {
		return 0, ErrPayloadLayoutMismatch
	}
	b := payload[fd.Offset:end]
	switch fd.Width {
	case 1:
		if fd.Signed {
			return int64(int8(b[0])), nil
		}
		return int64(b[0]), nil
	case 2:
		v := binary.LittleEndian.Uint16(b)
		if fd.Signed {
			return int64(int16(v)), nil
		}
		return int64(v), nil
	case 4:
		v := binary.LittleEndian.Uint32(b)
		if fd.Signed {
			return int64(int32(v)), nil
		}
		return int64(v), nil
	default:
		return 0, ErrPayloadLayoutMismatch
	}
}

// PositionRaw holds the fixed-point position fields before unit conversion.
type PositionRaw struct {
	Lat int32  // degE7
	Lon int32  // degE7
	Alt int32  // mm
	Hdg uint16 // cdeg
}

// DecodePosition decodes a GLOBAL_POSITION_INT frame into its raw position fields.
func DecodePosition(f RawFrame) (PositionRaw, error) {
	spec, fields, err := Decode(f)
	if err != nil {
		return PositionRaw{}, err
	}
	if spec.ID != MsgIDGlobalPositionInt {
		return PositionRaw{}, frameErr(f, ErrUnsupportedMessageType, "%s carries no position", spec.Name)
	}
	return PositionRaw{
		Lat: int32(fields["lat"]),
		Lon: int32(fields["lon"]),
		Alt: int32(fields["alt"]),
		Hdg: uint16(fields["hdg"]),
	}, nil
}
