package ingest

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

// ErrUploadTooLarge indicates an upload exceeded the configured size limit.
var ErrUploadTooLarge = errors.New("upload too large")

var gzipMagic = [2]byte{0x1f, 0x8b}

// ReadUpload reads a whole upload into memory, transparently gunzipping
// gzip content. limit bounds the decoded size; zero means unbounded.
// Empty content is rejected with ErrInvalidUpload.
func ReadUpload(r io.Reader, limit int64) ([]byte, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br

	magic, err := br.Peek(2)
	if err == nil && magic[0] == gzipMagic[0] && magic[1] == gzipMagic[1] {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("%w: bad gzip stream: %v", ErrInvalidUpload, err)
		}
		defer zr.Close()
		src = zr
	}

	if limit > 0 {
		src = io.LimitReader(src, limit+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: exceeds %s", ErrUploadTooLarge, humanize.IBytes(uint64(limit)))
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidUpload)
	}
	return data, nil
}
