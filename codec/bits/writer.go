/*
NAME
  writer.go

DESCRIPTION
  writer.go provides an MSB-first bit writer used to serialise descriptors
  and table sections.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package bits provides bit level readers and writers for MPEG-TS
// descriptors, tables and elementary stream headers.
package bits

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/asticode/go-astikit"
)

// Errors returned by Writer and Reader.
var (
	ErrFieldWidth    = errors.New("field width must be between 1 and 32 bits")
	ErrFieldOverflow = errors.New("value does not fit field width")
	ErrNotAligned    = errors.New("writer is not byte aligned")
)

// Writer writes big-endian, MSB-first bit fields into a growing buffer.
// Fields of any width between 1 and 32 bits may be written, and Align pads
// the current byte with ones, as required for reserved bits in PSI.
type Writer struct {
	buf bytes.Buffer
	w   *astikit.BitsWriter
	n   int // Bits written.
}

// NewWriter returns a new empty Writer.
func NewWriter() *Writer {
	w := &Writer{}
	w.w = astikit.NewBitsWriter(astikit.BitsWriterOptions{Writer: &w.buf})
	return w
}

// WriteBits writes the n least-significant bits of v. A value wider than n
// bits is rejected rather than truncated.
func (w *Writer) WriteBits(n int, v uint32) error {
	err := checkField(n, v)
	if err != nil {
		return err
	}
	err = w.w.WriteN(v, n)
	if err != nil {
		return err
	}
	w.n += n
	return nil
}

func checkField(n int, v uint32) error {
	if n < 1 || n > 32 {
		return ErrFieldWidth
	}
	if n < 32 && v>>uint(n) != 0 {
		return fmt.Errorf("%w: %#x in %d bits", ErrFieldOverflow, v, n)
	}
	return nil
}

// WriteBit writes a single bit.
func (w *Writer) WriteBit(b bool) error {
	err := w.w.Write(b)
	if err != nil {
		return err
	}
	w.n++
	return nil
}

// WriteBytes writes whole bytes. The writer must be byte aligned.
func (w *Writer) WriteBytes(p []byte) error {
	if !w.Aligned() {
		return ErrNotAligned
	}
	err := w.w.Write(p)
	if err != nil {
		return err
	}
	w.n += 8 * len(p)
	return nil
}

// Align pads the current byte with one bits.
func (w *Writer) Align() error {
	if w.Aligned() {
		return nil
	}
	pad := 8 - w.n%8
	return w.WriteBits(pad, 1<<uint(pad)-1)
}

// Aligned returns true if the writer is at a byte boundary.
func (w *Writer) Aligned() bool { return w.n%8 == 0 }

// Len returns the number of bits written.
func (w *Writer) Len() int { return w.n }

// Bytes returns the completed bytes written so far. Bits of an unfinished
// byte are not included until Align is called.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Batch chains writes to a Writer through an astikit.BitsWriterBatch and
// keeps the first error, after which further writes are ignored. Field
// widths and values are checked as by Writer.
type Batch struct {
	w   *Writer
	ab  astikit.BitsWriterBatch
	err error // First error not raised by the astikit batch.
}

// NewBatch returns a Batch writing to w.
func NewBatch(w *Writer) *Batch {
	return &Batch{w: w, ab: astikit.NewBitsWriterBatch(w.w)}
}

func (b *Batch) failed() bool { return b.err != nil || b.ab.Err() != nil }

// WriteBits writes the n least-significant bits of v.
func (b *Batch) WriteBits(n int, v uint32) {
	if b.failed() {
		return
	}
	err := checkField(n, v)
	if err != nil {
		b.err = err
		return
	}
	b.ab.WriteN(v, n)
	b.w.n += n
}

// WriteBit writes a single bit.
func (b *Batch) WriteBit(v bool) {
	if b.failed() {
		return
	}
	b.ab.Write(v)
	b.w.n++
}

// WriteBytes writes whole bytes.
func (b *Batch) WriteBytes(p []byte) {
	if b.failed() {
		return
	}
	if !b.w.Aligned() {
		b.err = ErrNotAligned
		return
	}
	b.ab.Write(p)
	b.w.n += 8 * len(p)
}

// Align pads the current byte with one bits.
func (b *Batch) Align() {
	if b.w.Aligned() {
		return
	}
	pad := 8 - b.w.n%8
	b.WriteBits(pad, 1<<uint(pad)-1)
}

// Err returns the first error encountered.
func (b *Batch) Err() error {
	if b.err != nil {
		return b.err
	}
	return b.ab.Err()
}

// Fail records err as the batch error if no error has occurred yet.
func (b *Batch) Fail(err error) {
	if !b.failed() {
		b.err = err
	}
}
