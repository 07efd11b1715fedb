package mavlink

import (
	"errors"
	"fmt"
)

var (
	// ErrFrameTruncated indicates the stream ended inside a frame.
	ErrFrameTruncated = errors.New("frame truncated")
	// ErrChecksumMismatch indicates the trailing CRC does not match the frame contents.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrUnsupportedMessageType indicates a message id outside the decoded set.
	ErrUnsupportedMessageType = errors.New("unsupported message type")
	// ErrPayloadLayoutMismatch indicates the payload length disagrees with the message layout.
	ErrPayloadLayoutMismatch = errors.New("payload layout mismatch")
	// ErrValueOutOfRange indicates a normalized field fell outside its physical range.
	ErrValueOutOfRange = errors.New("value out of range")
)

// Reason names a per-frame skip category.
type Reason string

const (
	ReasonFrameTruncated         Reason = "frame_truncated"
	ReasonChecksumMismatch       Reason = "checksum_mismatch"
	ReasonUnsupportedMessageType Reason = "unsupported_message_type"
	ReasonPayloadLayoutMismatch  Reason = "payload_layout_mismatch"
	ReasonValueOutOfRange        Reason = "value_out_of_range"
	ReasonUnknown                Reason = "unknown"
)

// FrameError ties a decode failure to the frame that produced it.
type FrameError struct {
	Offset int
	MsgID  uint32
	Err    error
	Detail string
}

func (e *FrameError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("frame at offset %d (msg %d): %v", e.Offset, e.MsgID, e.Err)
	}
	return fmt.Sprintf("frame at offset %d (msg %d): %v: %s", e.Offset, e.MsgID, e.Err, e.Detail)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

func frameErr(f RawFrame, err error, format string, args ...any) *FrameError {
	return &FrameError{
		Offset: f.Offset,
		MsgID:  f.Header.MsgID,
		Err:    err,
		Detail: fmt.Sprintf(format, args...),
	}
}

// ReasonOf maps an error from this package to its skip reason.
func ReasonOf(err error) Reason {
	switch {
	case errors.Is(err, ErrFrameTruncated):
		return ReasonFrameTruncated
	case errors.Is(err, ErrChecksumMismatch):
		return ReasonChecksumMismatch
	case errors.Is(err, ErrUnsupportedMessageType):
		return ReasonUnsupportedMessageType
	case errors.Is(err, ErrPayloadLayoutMismatch):
		return ReasonPayloadLayoutMismatch
	case errors.Is(err, ErrValueOutOfRange):
		return ReasonValueOutOfRange
	default:
		return ReasonUnknown
	}
}
