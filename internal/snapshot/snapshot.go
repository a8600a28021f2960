// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

// Package snapshot reads and writes portable vector dumps: a zstd-compressed
// stream of JSON lines whose first line is a Header and every following line
// a store.VectorRecord.
package snapshot

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/orch-mind/vecmem/internal/store"
	vmerr "github.com/orch-mind/vecmem/pkg/errors"
)

// Format identifies a vecmem snapshot stream.
const Format = "vecmem-snapshot"

// Version is the snapshot layout written by this package.
const Version = 1

// ErrMissingID marks a record line that decoded but carries no id.
var ErrMissingID = errors.New("snapshot record without id")

// Header is the first line of every snapshot.
type Header struct {
	Format     string    `json:"format"`
	Version    int       `json:"version"`
	Dimensions int       `json:"dimensions"`
	CreatedAt  time.Time `json:"created_at"`
}

// Writer streams records into a compressed snapshot.
type Writer struct {
	enc   *zstd.Encoder
	buf   *bufio.Writer
	lines *json.Encoder
	count int
}

// WriterOption tunes a Writer.
type WriterOption func(*writerOptions)

type writerOptions struct {
	level zstd.EncoderLevel
}

// WithLevel sets the zstd level using the zstd CLI numbering (1-22).
func WithLevel(level int) WriterOption {
	return func(o *writerOptions) { o.level = zstd.EncoderLevelFromZstd(level) }
}

// NewWriter writes the header for a snapshot of dims-dimensional vectors and
// returns a Writer positioned for records. Close must be called to flush.
func NewWriter(w io.Writer, dims int, opts ...WriterOption) (*Writer, error) {
	o := writerOptions{level: zstd.SpeedDefault}
	for _, opt := range opts {
		opt(&o)
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(o.level))
	if err != nil {
		return nil, vmerr.Wrap(err, vmerr.CodeSnapshotWriteFailure, "creating compressor")
	}
	buf := bufio.NewWriter(enc)
	sw := &Writer{enc: enc, buf: buf, lines: json.NewEncoder(buf)}

	hdr := Header{Format: Format, Version: Version, Dimensions: dims, CreatedAt: time.Now().UTC()}
	if err := sw.lines.Encode(hdr); err != nil {
		_ = enc.Close()
		return nil, vmerr.Wrap(err, vmerr.CodeSnapshotWriteFailure, "writing header")
	}
	return sw, nil
}

// Write appends one record.
func (w *Writer) Write(rec store.VectorRecord) error {
	if err := w.lines.Encode(rec); err != nil {
		return vmerr.Wrap(err, vmerr.CodeSnapshotWriteFailure, "writing record", vmerr.FieldVectorID(rec.ID))
	}
	w.count++
	return nil
}

// Count reports the records written so far.
func (w *Writer) Count() int { return w.count }

// Close flushes buffered data and finishes the zstd frame. It does not close
// the underlying writer.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		_ = w.enc.Close()
		return vmerr.Wrap(err, vmerr.CodeSnapshotWriteFailure, "flushing snapshot")
	}
	if err := w.enc.Close(); err != nil {
		return vmerr.Wrap(err, vmerr.CodeSnapshotWriteFailure, "closing compressor")
	}
	return nil
}

// Reader iterates the records of a snapshot.
type Reader struct {
	dec    *zstd.Decoder
	lines  *json.Decoder
	header Header
	line   int
}

// NewReader opens a snapshot and validates its header.
func NewReader(r io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, vmerr.Wrap(err, vmerr.CodeSnapshotReadFailure, "creating decompressor")
	}

	sr := &Reader{dec: dec, lines: json.NewDecoder(bufio.NewReader(dec)), line: 1}
	if err := sr.lines.Decode(&sr.header); err != nil {
		dec.Close()
		return nil, vmerr.Wrap(err, vmerr.CodeSnapshotRecordInvalid, "reading snapshot header")
	}
	if sr.header.Format != Format {
		dec.Close()
		return nil, vmerr.Errorf(vmerr.CodeSnapshotRecordInvalid, "not a vecmem snapshot (format %q)", sr.header.Format)
	}
	if sr.header.Version < 1 || sr.header.Version > Version {
		dec.Close()
		return nil, vmerr.Errorf(vmerr.CodeSnapshotRecordInvalid, "unsupported snapshot version %d", sr.header.Version)
	}
	return sr, nil
}

// Header returns the snapshot header.
func (r *Reader) Header() Header { return r.header }

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (store.VectorRecord, error) {
	var rec store.VectorRecord
	if err := r.lines.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return rec, io.EOF
		}
		return rec, vmerr.Wrap(err, vmerr.CodeSnapshotRecordInvalid, "decoding record",
			vmerr.Field("line", r.line+1))
	}
	r.line++
	if rec.ID == "" {
		return rec, vmerr.Wrap(ErrMissingID, vmerr.CodeSnapshotRecordInvalid, "reading record", vmerr.Field("line", r.line))
	}
	return rec, nil
}

// Close releases decoder resources.
func (r *Reader) Close() {
	r.dec.Close()
}
