package mavlink

import "io"

// Scanner walks a byte buffer and carves out candidate frames.
// It does not validate checksums; callers report rejected candidates
// back through Resync so that a real frame starting inside a bogus one
// is not lost.
type Scanner struct {
	buf     []byte
	pos     int
	skipped int
}

// NewScanner creates a scanner over buf. The buffer must not be modified
// while frames returned by the scanner are in use.
func NewScanner(buf []byte) *Scanner {
	return &Scanner{buf: buf}
}

// Next returns the next candidate frame.
//
// It returns io.EOF when no further start marker exists, and ErrFrameTruncated
// when the buffer ends inside a frame. Both are terminal. When a candidate's
// declared length overruns the buffer but another start marker follows, the
// candidate is treated as noise and scanning resumes one byte later.
func (s *Scanner) Next() (RawFrame, error) {
	for {
		i := s.indexMarker(s.pos)
		if i < 0 {
			s.skipped += len(s.buf) - s.pos
			s.pos = len(s.buf)
			return RawFrame{}, io.EOF
		}
		s.skipped += i - s.pos
		s.pos = i

		rest := s.buf[i:]
		hdrLen := HeaderLenV1
		if rest[0] == MagicV2 {
			hdrLen = HeaderLenV2
		}
		if len(rest) < hdrLen {
			if s.indexMarker(i+1) >= 0 {
				s.skip()
				continue
			}
			return RawFrame{}, ErrFrameTruncated
		}

		h := parseHeader(rest)
		n := frameLen(h)
		if len(rest) < n {
			if s.indexMarker(i+1) >= 0 {
				s.skip()
				continue
			}
			return RawFrame{}, ErrFrameTruncated
		}

		raw := rest[:n:n]
		payloadEnd := hdrLen + int(h.PayloadLen)
		f := RawFrame{
			Offset:   i,
			Header:   h,
			Payload:  raw[hdrLen:payloadEnd],
			Checksum: raw[payloadEnd : payloadEnd+ChecksumLen],
			raw:      raw,
		}
		if h.Signed() {
			f.Signature = raw[payloadEnd+ChecksumLen:]
		}
		s.pos = i + n
		return f, nil
	}
}

// Resync rewinds the cursor to one byte past the start of a rejected frame.
func (s *Scanner) Resync(f RawFrame) {
	s.pos = f.Offset + 1
	s.skipped++
}

// Offset returns the current cursor position. After Next returns
// ErrFrameTruncated it points at the start of the incomplete frame.
func (s *Scanner) Offset() int {
	return s.pos
}

// Len returns the size of the scanned buffer.
func (s *Scanner) Len() int {
	return len(s.buf)
}

// SkippedBytes counts bytes stepped over without producing a frame.
func (s *Scanner) SkippedBytes() int {
	return s.skipped
}

func (s *Scanner) skip() {
	s.pos++
	s.skipped++
}

func (s *Scanner) indexMarker(from int) int {
	for j := from; j < len(s.buf); j++ {
		if isMagic(s.buf[j]) {
			return j
		}
	}
	return -1
}
