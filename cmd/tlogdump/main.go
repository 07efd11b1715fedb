// Command tlogdump decodes MAVLink telemetry logs offline and prints the
// position samples and skip summary, or writes synthetic logs for testing.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tlog-viewer/backend/internal/ingest"
	"github.com/tlog-viewer/backend/internal/mavlink"
	"github.com/tlog-viewer/backend/internal/metrics"
	"github.com/tlog-viewer/backend/internal/models"
)

type options struct {
	limit   int
	skips   bool
	asJSON  bool
	pushURL string
	synth   int
	v2      bool
	noise   int
	seed    int64
	start   uint64
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Printf("tlogdump: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("tlogdump", flag.ContinueOnError)
	var opts options
	fs.IntVar(&opts.limit, "n", 10, "samples to print per file (negative prints all)")
	fs.BoolVar(&opts.skips, "skips", false, "print each skipped frame")
	fs.BoolVar(&opts.asJSON, "json", false, "print samples as JSON lines")
	fs.StringVar(&opts.pushURL, "push", "", "push decode metrics to this Prometheus Pushgateway")
	fs.IntVar(&opts.synth, "synth", 0, "write this many synthetic GLOBAL_POSITION_INT frames to FILE instead of decoding it")
	fs.BoolVar(&opts.v2, "v2", false, "synthesize MAVLink v2 frames")
	fs.IntVar(&opts.noise, "noise", 0, "junk bytes inserted between synthetic frames")
	fs.Int64Var(&opts.seed, "seed", 1, "random seed for -noise")
	fs.Uint64Var(&opts.start, "start", 0, "first synthetic timestamp in Unix microseconds (default now)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: tlogdump [flags] FILE...\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no input files")
	}

	if opts.synth > 0 {
		if fs.NArg() != 1 {
			return errors.New("-synth writes exactly one file")
		}
		return synthesize(fs.Arg(0), opts, stdout)
	}

	collector := metrics.New(false)
	for _, path := range fs.Args() {
		if err := dump(ctx, path, opts, collector, stdout); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	if opts.pushURL != "" {
		if err := collector.Push(opts.pushURL, "tlogdump"); err != nil {
			return err
		}
	}
	return nil
}

func dump(ctx context.Context, path string, opts options, collector *metrics.Collector, stdout io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := ingest.ReadUpload(f, 0)
	if err != nil {
		return err
	}

	start := time.Now()
	skipLimit := 0
	if !opts.skips {
		skipLimit = -1
	}
	samples, report, err := ingest.DecodeAll(ctx, data, ingest.DecodeOptions{SkipRecordLimit: skipLimit})
	if err != nil {
		return err
	}
	collector.ObserveFrames(report.Accepted, report.Skipped, report.Resyncs)
	collector.ObserveIngest(report.State, len(samples), time.Since(start))

	if opts.asJSON {
		enc := json.NewEncoder(stdout)
		for _, s := range limitSamples(samples, opts.limit) {
			if err := enc.Encode(s); err != nil {
				return err
			}
		}
		return nil
	}

	fmt.Fprintf(stdout, "%s  %s  frames=%d accepted=%d skipped=%d resyncs=%d truncated=%v\n",
		path, humanize.IBytes(uint64(len(data))), report.FramesScanned, report.Accepted,
		report.SkippedTotal(), report.Resyncs, report.Truncated)

	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	reasons := make([]string, 0, len(report.Skipped))
	for r := range report.Skipped {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Fprintf(w, "  %s\t%s\n", r, humanize.Comma(int64(report.Skipped[mavlink.Reason(r)])))
	}
	if opts.skips {
		for _, s := range report.Skips {
			fmt.Fprintf(w, "  @%d\tmsg %d\t%s\t%s\n", s.Offset, s.MsgID, s.Reason, s.Detail)
		}
	}
	for i, s := range limitSamples(samples, opts.limit) {
		fmt.Fprintf(w, "  #%d\tlat=%.7f\tlon=%.7f\talt=%.3f\thdg=%s\n", i+1, s.Latitude, s.Longitude, s.Altitude, formatHeading(s.Heading))
	}
	return w.Flush()
}

func limitSamples(samples []models.Sample, n int) []models.Sample {
	if n < 0 || n >= len(samples) {
		return samples
	}
	return samples[:n]
}

func formatHeading(h *float64) string {
	if h == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *h)
}

// synthesize writes a tlog of a straight track heading north-east.
func synthesize(path string, opts options, stdout io.Writer) error {
	version := mavlink.V1
	if opts.v2 {
		version = mavlink.V2
	}
	rng := rand.New(rand.NewSource(opts.seed))

	var buf []byte
	base := opts.start
	if base == 0 {
		base = uint64(time.Now().UnixMicro())
	}
	for i := 0; i < opts.synth; i++ {
		raw := mavlink.PositionRaw{
			Lat: 473977420 + int32(i*90),
			Lon: 85405890 + int32(i*130),
			Alt: 152300 + int32(i%500)*10,
			Hdg: uint16((4500 + i*10) % 36000),
		}
		frame := mavlink.EncodePosition(version, uint8(i), uint32(i*200), raw)
		buf = mavlink.AppendTlogRecord(buf, base+uint64(i)*200000, frame)
		for j := 0; j < opts.noise; j++ {
			b := byte(rng.Intn(256))
			if b == mavlink.MagicV1 || b == mavlink.MagicV2 {
				b = 0
			}
			buf = append(buf, b)
		}
	}

	if err := os.WriteFile(path, buf, 0644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %d %s frames to %s (%s)\n", opts.synth, version, path, humanize.IBytes(uint64(len(buf))))
	return nil
}
