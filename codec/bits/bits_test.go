/*
NAME
  bits_test.go

DESCRIPTION
  bits_test.go provides testing for the bit Writer and Reader.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package bits

import (
	"bytes"
	"errors"
	"testing"
)

func TestWriteBits(t *testing.T) {
	w := NewWriter()
	fields := []struct {
		n int
		v uint32
	}{
		{3, 0x5},  // 101
		{5, 0x08}, // 01000
		{6, 0x0a}, // 001010
		{2, 0x0},  // 00
		{16, 0xbeef},
	}
	for _, f := range fields {
		if err := w.WriteBits(f.n, f.v); err != nil {
			t.Fatalf("unexpected error writing %d bits: %v", f.n, err)
		}
	}
	want := []byte{0xa8, 0x28, 0xbe, 0xef}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("did not get expected result.\n Got: %x\n Want: %x\n", w.Bytes(), want)
	}
	if w.Len() != 32 {
		t.Errorf("unexpected bit length: got %d, want 32", w.Len())
	}
}

func TestWriteBitsErrors(t *testing.T) {
	tests := []struct {
		n    int
		v    uint32
		want error
	}{
		{n: 0, v: 0, want: ErrFieldWidth},
		{n: 33, v: 0, want: ErrFieldWidth},
		{n: 3, v: 8, want: ErrFieldOverflow},
		{n: 1, v: 2, want: ErrFieldOverflow},
		{n: 32, v: 0xffffffff, want: nil},
	}
	for i, test := range tests {
		w := NewWriter()
		err := w.WriteBits(test.n, test.v)
		if !errors.Is(err, test.want) {
			t.Errorf("test %d: unexpected error: got %v, want %v", i, err, test.want)
		}
		if err != nil && w.Len() != 0 {
			t.Errorf("test %d: failed write advanced writer by %d bits", i, w.Len())
		}
	}
}

func TestAlign(t *testing.T) {
	w := NewWriter()
	if err := w.WriteBit(false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.WriteBits(2, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Aligned() {
		t.Fatal("writer should not be aligned")
	}
	if err := w.WriteBytes([]byte{0x01}); !errors.Is(err, ErrNotAligned) {
		t.Errorf("expected ErrNotAligned, got %v", err)
	}
	if err := w.Align(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.Align(); err != nil {
		t.Fatalf("unexpected error on aligned writer: %v", err)
	}
	if err := w.WriteBytes([]byte{0x47, 0x10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{0x1f, 0x47, 0x10}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("did not get expected result.\n Got: %x\n Want: %x\n", w.Bytes(), want)
	}
}

func TestReadBits(t *testing.T) {
	r := NewBytesReader([]byte{0x8f, 0xe3})
	tests := []struct {
		n    int
		want uint64
	}{
		{4, 0x8},
		{2, 0x3},
		{4, 0xf},
		{6, 0x23},
	}
	for i, test := range tests {
		got, err := r.ReadBits(test.n)
		if err != nil {
			t.Fatalf("test %d: unexpected error: %v", i, err)
		}
		if got != test.want {
			t.Errorf("test %d: did not get expected result.\n Got: %#x\n Want: %#x\n", i, got, test.want)
		}
	}
	if !r.ByteAligned() {
		t.Error("reader should be byte aligned")
	}
	if _, err := r.ReadBits(1); err == nil {
		t.Error("expected error reading past end of source")
	}
}

func TestPeekBits(t *testing.T) {
	r := NewBytesReader([]byte{0x8f, 0xe3})
	if _, err := r.ReadBits(4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := r.PeekBits(8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0xfe {
		t.Errorf("unexpected peek: got %#x, want 0xfe", got)
	}
	got, err = r.ReadBits(12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0xfe3 {
		t.Errorf("read after peek: got %#x, want 0xfe3", got)
	}
}

func TestWriteRead(t *testing.T) {
	w := NewWriter()
	for _, f := range [][2]uint32{{3, 6}, {5, 17}, {7, 100}, {1, 1}, {12, 0xabc}, {4, 9}} {
		if err := w.WriteBits(int(f[0]), f[1]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	r := NewBytesReader(w.Bytes())
	for _, f := range [][2]uint32{{3, 6}, {5, 17}, {7, 100}, {1, 1}, {12, 0xabc}, {4, 9}} {
		got, err := r.ReadBits(int(f[0]))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if uint32(got) != f[1] {
			t.Errorf("unexpected value: got %d, want %d", got, f[1])
		}
	}
}

func TestBatch(t *testing.T) {
	w := NewWriter()
	b := NewBatch(w)
	b.WriteBits(4, 0xa)
	b.WriteBits(2, 7) // Overflows.
	b.WriteBits(4, 0x5)
	if !errors.Is(b.Err(), ErrFieldOverflow) {
		t.Fatalf("expected ErrFieldOverflow, got %v", b.Err())
	}
	if w.Len() != 4 {
		t.Errorf("writes after error were not ignored: %d bits written", w.Len())
	}
}

func TestBatchMatchesWriter(t *testing.T) {
	w := NewWriter()
	w.WriteBits(3, 5)
	w.WriteBit(true)
	w.Align()
	w.WriteBytes([]byte{0xde, 0xad})
	w.WriteBits(16, 0xbeef)

	bw := NewWriter()
	b := NewBatch(bw)
	b.WriteBits(3, 5)
	b.WriteBit(true)
	b.Align()
	b.WriteBytes([]byte{0xde, 0xad})
	b.WriteBits(16, 0xbeef)
	if b.Err() != nil {
		t.Fatalf("did not expect error: %v", b.Err())
	}

	want := []byte{0xbf, 0xde, 0xad, 0xbe, 0xef}
	if !bytes.Equal(w.Bytes(), want) || !bytes.Equal(bw.Bytes(), want) {
		t.Errorf("did not get expected result.\n Got: %x, %x\n Want: %x\n", w.Bytes(), bw.Bytes(), want)
	}
	if bw.Len() != w.Len() {
		t.Errorf("did not get expected length.\n Got: %v\n Want: %v\n", bw.Len(), w.Len())
	}

	b.WriteBit(true)
	b.WriteBytes([]byte{0x00})
	if !errors.Is(b.Err(), ErrNotAligned) {
		t.Errorf("did not get expected error.\n Got: %v\n Want: %v\n", b.Err(), ErrNotAligned)
	}
	b.Fail(errors.New("later"))
	if !errors.Is(b.Err(), ErrNotAligned) {
		t.Errorf("first error was replaced: %v", b.Err())
	}
}
