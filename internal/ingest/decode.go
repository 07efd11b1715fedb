package ingest

import (
	"context"
	"errors"

	"github.com/tlog-viewer/backend/internal/mavlink"
	"github.com/tlog-viewer/backend/internal/models"
)

// State is a stage of the per-file ingestion state machine.
type State string

const (
	StateScanning     State = "scanning"
	StateValidating   State = "validating"
	StateDecoding     State = "decoding"
	StateNormalizing  State = "normalizing"
	StateAccumulating State = "accumulating"
	StateSkipping     State = "skipping"
	StateCommitting   State = "committing"
	StateDone         State = "done"
	StateAborted      State = "aborted"
)

// DefaultSkipRecordLimit caps the skip records kept per file.
const DefaultSkipRecordLimit = 100

const (
	cancelCheckEvery   = 1024
	progressEveryBytes = 256 << 10
)

// ProgressFunc receives the number of bytes consumed out of total.
type ProgressFunc func(consumed, total int)

// SkipRecord describes one frame that did not produce a sample.
type SkipRecord struct {
	Offset int            `json:"offset"`
	MsgID  uint32         `json:"msgId"`
	Reason mavlink.Reason `json:"reason"`
	Detail string         `json:"detail,omitempty"`
}

// Report summarizes a decode pass over one file.
type Report struct {
	FramesScanned int                    `json:"frames_scanned"`
	Accepted      int                    `json:"accepted"`
	Skipped       map[mavlink.Reason]int `json:"skipped"`
	Skips         []SkipRecord           `json:"skips,omitempty"`
	Resyncs       int                    `json:"resyncs"`
	ResyncBytes   int                    `json:"resync_bytes"`
	Truncated     bool                   `json:"truncated"`
	State         State                  `json:"state"`
}

// SkippedTotal returns the number of frames skipped for any reason.
func (r *Report) SkippedTotal() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

// DecodeOptions tunes DecodeAll.
type DecodeOptions struct {
	// SkipRecordLimit caps Report.Skips; zero means DefaultSkipRecordLimit,
	// negative keeps none.
	SkipRecordLimit int
	Progress        ProgressFunc
}

type decoder struct {
	sc     *mavlink.Scanner
	report Report
	limit  int

	// End of the furthest rejected candidate. Failures starting before it
	// are fragments of that candidate and only count as resyncs.
	rejectEnd int

	frame   mavlink.RawFrame
	raw     mavlink.PositionRaw
	sample  models.Sample
	err     error
	samples []models.Sample
}

// DecodeAll scans data and returns every accepted sample in stream order.
//
// Per-frame failures never abort the pass; they are counted in the report.
// Only context cancellation stops it early, in which case the report state is
// StateAborted and the returned samples must be discarded.
func DecodeAll(ctx context.Context, data []byte, opts DecodeOptions) ([]models.Sample, *Report, error) {
	d := &decoder{
		sc:     mavlink.NewScanner(data),
		report: Report{Skipped: make(map[mavlink.Reason]int)},
		limit:  opts.SkipRecordLimit,
	}
	if d.limit == 0 {
		d.limit = DefaultSkipRecordLimit
	}

	lastProgress := 0
	state := StateScanning
	for iter := 0; ; iter++ {
		if iter%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				d.report.State = StateAborted
				d.report.ResyncBytes = d.sc.SkippedBytes()
				return nil, &d.report, err
			}
		}

		switch state {
		case StateScanning:
			state = d.scan()
			if opts.Progress != nil && d.sc.Offset()-lastProgress >= progressEveryBytes {
				lastProgress = d.sc.Offset()
				opts.Progress(lastProgress, len(data))
			}
		case StateValidating:
			state = d.validate()
		case StateDecoding:
			state = d.decode()
		case StateNormalizing:
			state = d.normalize()
		case StateAccumulating:
			d.samples = append(d.samples, d.sample)
			d.report.Accepted++
			state = StateScanning
		case StateSkipping:
			state = d.skip()
		case StateDone:
			d.report.State = StateDone
			d.report.ResyncBytes = d.sc.SkippedBytes()
			if opts.Progress != nil {
				opts.Progress(len(data), len(data))
			}
			return d.samples, &d.report, nil
		}
	}
}

func (d *decoder) scan() State {
	f, err := d.sc.Next()
	if err == nil {
		d.frame = f
		d.report.FramesScanned++
		return StateValidating
	}
	if errors.Is(err, mavlink.ErrFrameTruncated) {
		// A partial frame inside a rejected span is not a real frame.
		if d.sc.Offset() >= d.rejectEnd {
			d.report.Truncated = true
			d.record(mavlink.RawFrame{Offset: d.sc.Offset()}, err)
		} else {
			d.report.Resyncs++
		}
	}
	// io.EOF and truncation both end the pass.
	return StateDone
}

func (d *decoder) validate() State {
	if err := mavlink.Validate(d.frame); err != nil {
		d.err = err
		return StateSkipping
	}
	d.rejectEnd = 0
	if !mavlink.Supported(d.frame.Header.MsgID) {
		d.record(d.frame, &mavlink.FrameError{
			Offset: d.frame.Offset,
			MsgID:  d.frame.Header.MsgID,
			Err:    mavlink.ErrUnsupportedMessageType,
		})
		return StateScanning
	}
	return StateDecoding
}

func (d *decoder) decode() State {
	raw, err := mavlink.DecodePosition(d.frame)
	if err != nil {
		d.record(d.frame, err)
		return StateScanning
	}
	d.raw = raw
	return StateNormalizing
}

func (d *decoder) normalize() State {
	s, err := mavlink.Normalize(d.frame.Header.MsgID, d.raw)
	if err != nil {
		d.record(d.frame, err)
		return StateScanning
	}
	d.sample = s
	return StateAccumulating
}

// skip handles a candidate that failed validation and rewinds the scanner to
// look for a frame starting inside it.
func (d *decoder) skip() State {
	f := d.frame
	if f.Offset < d.rejectEnd {
		d.report.Resyncs++
	} else {
		d.record(f, d.err)
	}
	if end := f.End(); end > d.rejectEnd {
		d.rejectEnd = end
	}
	d.err = nil
	d.sc.Resync(f)
	return StateScanning
}

func (d *decoder) record(f mavlink.RawFrame, err error) {
	reason := mavlink.ReasonOf(err)
	d.report.Skipped[reason]++
	if d.limit < 0 || len(d.report.Skips) >= d.limit {
		return
	}
	rec := SkipRecord{Offset: f.Offset, MsgID: f.Header.MsgID, Reason: reason}
	var fe *mavlink.FrameError
	if errors.As(err, &fe) {
		rec.Detail = fe.Detail
	} else if err != nil {
		rec.Detail = err.Error()
	}
	d.report.Skips = append(d.report.Skips, rec)
}
