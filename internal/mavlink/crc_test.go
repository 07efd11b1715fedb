package mavlink

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRCAccumulateCheckValue(t *testing.T) {
	// CRC-16/MCRF4XX check value for "123456789".
	crc := crcInit
	for _, b := range []byte("123456789") {
		crc = crcAccumulate(b, crc)
	}
	assert.Equal(t, uint16(0x6F91), crc)
}

func TestValidate(t *testing.T) {
	t.Run("worked example passes", func(t *testing.T) {
		f := scanOne(t, workedFrame(t))
		require.NoError(t, Validate(f))
		assert.Equal(t, uint16(0xE70E), binary.LittleEndian.Uint16(f.Checksum))
	})

	t.Run("zeroed checksum is rejected", func(t *testing.T) {
		buf := workedFrame(t)
		buf[len(buf)-2], buf[len(buf)-1] = 0, 0

		err := Validate(scanOne(t, buf))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrChecksumMismatch))
		assert.Equal(t, ReasonChecksumMismatch, ReasonOf(err))

		var fe *FrameError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, 0, fe.Offset)
		assert.Equal(t, MsgIDGlobalPositionInt, fe.MsgID)
	})

	t.Run("any single byte change is detected", func(t *testing.T) {
		orig := workedFrame(t)
		for i := 2; i < len(orig); i++ {
			if i == 5 {
				// message id byte selects a different schema entry
				continue
			}
			buf := workedFrame(t)
			buf[i] ^= 0xA5
			err := Validate(scanOne(t, buf))
			assert.ErrorIs(t, err, ErrChecksumMismatch, "flip at byte %d", i)
		}
	})

	t.Run("unknown message id is unsupported", func(t *testing.T) {
		buf, err := EncodeWithExtra(Header{Magic: MagicV2, MsgID: 0x1234}, []byte{1, 2, 3}, 0)
		require.NoError(t, err)

		err = Validate(scanOne(t, buf))
		assert.ErrorIs(t, err, ErrUnsupportedMessageType)
	})

	t.Run("known passthrough message validates", func(t *testing.T) {
		buf, err := Encode(Header{Magic: MagicV1, MsgID: MsgIDHeartbeat}, make([]byte, 9))
		require.NoError(t, err)
		assert.NoError(t, Validate(scanOne(t, buf)))
	})

	t.Run("signature is outside the checksum", func(t *testing.T) {
		buf, err := Encode(Header{Magic: MagicV2, IncompatFlags: IncompatFlagSigned, MsgID: MsgIDGlobalPositionInt},
			PackPosition(0, workedRaw))
		require.NoError(t, err)
		buf[len(buf)-1] = 0x7F

		f := scanOne(t, buf)
		assert.Len(t, f.Signature, SignatureLen)
		assert.NoError(t, Validate(f))
	})
}

func TestEncodeMatchesWorkedExample(t *testing.T) {
	got := EncodePosition(V1, 0, 0, workedRaw)
	assert.Equal(t, workedFrame(t), got)
}

func TestEncodeRejects(t *testing.T) {
	_, err := Encode(Header{MsgID: 999999}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedMessageType)

	_, err = EncodeWithExtra(Header{Magic: MagicV1, MsgID: 300}, nil, 0)
	assert.Error(t, err)

	_, err = EncodeWithExtra(Header{Magic: MagicV2}, make([]byte, 256), 0)
	assert.Error(t, err)
}
