package ingest

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestReadUpload(t *testing.T) {
	frame := workedFrame()

	t.Run("plain", func(t *testing.T) {
		data, err := ReadUpload(bytes.NewReader(frame), 0)
		require.NoError(t, err)
		assert.Equal(t, frame, data)
	})

	t.Run("gzip content is decompressed", func(t *testing.T) {
		data, err := ReadUpload(bytes.NewReader(gzipBytes(t, frame)), 1024)
		require.NoError(t, err)
		assert.Equal(t, frame, data)
	})

	t.Run("single byte", func(t *testing.T) {
		data, err := ReadUpload(bytes.NewReader([]byte{0x1f}), 0)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x1f}, data)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ReadUpload(bytes.NewReader(nil), 0)
		assert.ErrorIs(t, err, ErrInvalidUpload)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := ReadUpload(bytes.NewReader(frame), int64(len(frame)-1))
		assert.ErrorIs(t, err, ErrUploadTooLarge)
	})

	t.Run("exactly at limit", func(t *testing.T) {
		data, err := ReadUpload(bytes.NewReader(frame), int64(len(frame)))
		require.NoError(t, err)
		assert.Len(t, data, len(frame))
	})

	t.Run("decoded size is limited", func(t *testing.T) {
		big := bytes.Repeat(frame, 100)
		_, err := ReadUpload(bytes.NewReader(gzipBytes(t, big)), int64(len(frame)*10))
		assert.ErrorIs(t, err, ErrUploadTooLarge)
	})

	t.Run("broken gzip header", func(t *testing.T) {
		_, err := ReadUpload(bytes.NewReader([]byte{0x1f, 0x8b, 0x00}), 0)
		assert.ErrorIs(t, err, ErrInvalidUpload)
	})
}
