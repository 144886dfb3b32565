// Package samout writes alignment records as SAM or BAM to local files,
// standard output or S3.
package samout

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/scttfrdmn/mm2go/pkg/mm2"
)

// Format is an output record format.
type Format int

const (
	SAM Format = iota
	BAM
)

func (f Format) String() string {
	if f == BAM {
		return "BAM"
	}
	return "SAM"
}

// FormatForPath picks the format from the destination name: ".bam" is
// BAM, anything else SAM. A ".zst" suffix requests zstd-compressed SAM.
func FormatForPath(path string) (format Format, compressed bool) {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".zst") {
		return SAM, true
	}
	if strings.HasSuffix(lower, ".bam") {
		return BAM, false
	}
	return SAM, false
}

type options struct {
	format    *Format
	zstdLevel int
	program   *Program
	uploader  Uploader
	region    string
}

// Option configures Create.
type Option func(*options)

// WithFormat overrides the format derived from the destination name.
func WithFormat(f Format) Option {
	return func(o *options) { o.format = &f }
}

// WithCompressionLevel sets the zstd level (1 fastest, 2 default, 3
// better, 4 best) for ".zst" destinations.
func WithCompressionLevel(level int) Option {
	return func(o *options) { o.zstdLevel = level }
}

// WithProgram records the producing program in the header.
func WithProgram(p Program) Option {
	return func(o *options) { o.program = &p }
}

// WithUploader sets the uploader used for s3:// destinations.
func WithUploader(u Uploader) Option {
	return func(o *options) { o.uploader = u }
}

// WithRegion sets the AWS region for the default uploader.
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

type recordWriter interface {
	Write(*sam.Record) error
}

// Writer converts per-query alignment results into SAM records and writes
// them. It is not safe for concurrent use.
type Writer struct {
	header *sam.Header
	format Format
	rw     recordWriter

	// Close order: bam (or buf), then zstd, then dest.
	bam  *bam.Writer
	buf  *bufio.Writer
	zw   io.WriteCloser
	dest io.WriteCloser

	stats  Statistics
	closed bool
}

// Create opens path and writes header, plus the program line if one was
// given. path may be "-" for standard output or an s3:// URI.
func Create(ctx context.Context, path string, header *sam.Header, opts ...Option) (*Writer, error) {
	o := &options{zstdLevel: 2}
	for _, fn := range opts {
		fn(o)
	}
	format, compressed := FormatForPath(path)
	if o.format != nil {
		format = *o.format
	}

	h, err := outputHeader(header, o.program)
	if err != nil {
		return nil, err
	}

	dest, err := openDestination(ctx, path, o)
	if err != nil {
		return nil, err
	}
	w := &Writer{header: h, format: format, dest: dest}

	var sink io.Writer = dest
	if compressed {
		zw, err := newZstdWriter(dest, o.zstdLevel)
		if err != nil {
			w.abort(err)
			return nil, err
		}
		w.zw = zw
		sink = zw
	}
	if err := w.init(sink); err != nil {
		w.abort(err)
		return nil, err
	}
	return w, nil
}

// NewWriter writes to w, which the caller closes after Close.
func NewWriter(w io.Writer, header *sam.Header, format Format, opts ...Option) (*Writer, error) {
	o := &options{}
	for _, fn := range opts {
		fn(o)
	}
	h, err := outputHeader(header, o.program)
	if err != nil {
		return nil, err
	}
	sw := &Writer{header: h, format: format}
	if err := sw.init(w); err != nil {
		return nil, err
	}
	return sw, nil
}

func (w *Writer) init(sink io.Writer) error {
	switch w.format {
	case BAM:
		bw, err := bam.NewWriter(sink, w.header, 1)
		if err != nil {
			return fmt.Errorf("failed to create BAM writer: %w", err)
		}
		w.bam = bw
		w.rw = bw
	default:
		w.buf = bufio.NewWriterSize(sink, 1<<20)
		sw, err := sam.NewWriter(w.buf, w.header, sam.FlagDecimal)
		if err != nil {
			return fmt.Errorf("failed to create SAM writer: %w", err)
		}
		w.rw = sw
	}
	return nil
}

// Header returns the header written to the output.
func (w *Writer) Header() *sam.Header { return w.header }

// Format returns the output format.
func (w *Writer) Format() Format { return w.format }

// WriteQuery writes the records of one query; see Convert.
func (w *Writer) WriteQuery(q mm2.Query, recs []mm2.Record) error {
	out, err := Convert(q, recs, w.header)
	if err != nil {
		return err
	}
	for _, r := range out {
		if err := w.rw.Write(r); err != nil {
			return fmt.Errorf("failed to write record %s: %w", r.Name, err)
		}
	}
	w.stats.addQuery(out)
	return nil
}

// Stats returns what has been written so far.
func (w *Writer) Stats() Statistics { return w.stats }

// Close flushes every layer and closes the destination. For S3 output it
// waits for the upload to complete.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if w.bam != nil {
		keep(w.bam.Close())
	}
	if w.buf != nil {
		keep(w.buf.Flush())
	}
	if w.zw != nil {
		keep(w.zw.Close())
	}
	if w.dest != nil {
		keep(w.dest.Close())
	}
	return first
}

// Abort discards the output: an S3 upload is cancelled and a local file is
// removed.
func (w *Writer) Abort(cause error) {
	if w.closed {
		return
	}
	w.closed = true
	w.abort(cause)
}

func (w *Writer) abort(cause error) {
	if cause == nil {
		cause = errAborted
	}
	// Cancel the upload first so the encoders' final writes fail fast.
	if s, ok := w.dest.(*s3Stream); ok {
		s.abort(cause)
	}
	if w.bam != nil {
		w.bam.Close()
	}
	if w.zw != nil {
		w.zw.Close()
	}
	switch d := w.dest.(type) {
	case *s3Stream:
	case *os.File:
		d.Close()
		os.Remove(d.Name())
	case nil:
	default:
		d.Close()
	}
}
