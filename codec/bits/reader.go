/*
NAME
  reader.go

DESCRIPTION
  reader.go provides a bit reader used to decode descriptors and elementary
  stream headers.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package bits

import (
	"bufio"
	"bytes"
	"io"
)

type bytePeeker interface {
	io.ByteReader
	Peek(int) ([]byte, error)
}

// Reader reads MSB-first bit fields from an io.Reader source.
type Reader struct {
	r     bytePeeker
	n     uint64
	bits  int
	nRead int
}

// NewReader returns a new Reader reading from r.
func NewReader(r io.Reader) *Reader {
	byter, ok := r.(bytePeeker)
	if !ok {
		byter = bufio.NewReader(r)
	}
	return &Reader{r: byter}
}

// NewBytesReader returns a new Reader over p.
func NewBytesReader(p []byte) *Reader {
	return NewReader(bytes.NewReader(p))
}

// ReadBits reads n bits, 1 <= n <= 32, and returns them in the
// least-significant part of a uint64.
// For example, with a source as []byte{0x8f,0xe3} (1000 1111, 1110 0011), we
// would get the following results for consecutive reads with n values:
// n = 4, res = 0x8 (1000)
// n = 2, res = 0x3 (0011)
// n = 4, res = 0xf (1111)
// n = 6, res = 0x23 (0010 0011)
func (r *Reader) ReadBits(n int) (uint64, error) {
	if n < 1 || n > 32 {
		return 0, ErrFieldWidth
	}
	for n > r.bits {
		b, err := r.r.ReadByte()
		if err == io.EOF {
			return 0, io.ErrUnexpectedEOF
		}
		if err != nil {
			return 0, err
		}
		r.nRead++
		r.n <<= 8
		r.n |= uint64(b)
		r.bits += 8
	}

	// Shift the wanted bits into the least-significant places and mask off
	// anything above them.
	v := (r.n >> uint(r.bits-n)) & ((1 << uint(n)) - 1)
	r.bits -= n
	return v, nil
}

// ReadBit reads a single bit as a bool.
func (r *Reader) ReadBit() (bool, error) {
	v, err := r.ReadBits(1)
	return v == 1, err
}

// PeekBits returns the next n bits without advancing through the source.
func (r *Reader) PeekBits(n int) (uint64, error) {
	if n < 1 || n > 32 {
		return 0, ErrFieldWidth
	}
	need := (n - r.bits + 7) / 8
	cache, bits := r.n, r.bits
	if need > 0 {
		p, err := r.r.Peek(need)
		if err != nil {
			if err == io.EOF {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		for _, b := range p {
			cache = cache<<8 | uint64(b)
			bits += 8
		}
	}
	return (cache >> uint(bits-n)) & ((1 << uint(n)) - 1), nil
}

// Skip discards n bits.
func (r *Reader) Skip(n int) error {
	for n > 0 {
		c := n
		if c > 32 {
			c = 32
		}
		if _, err := r.ReadBits(c); err != nil {
			return err
		}
		n -= c
	}
	return nil
}

// ByteAligned returns true if the reader position is at the start of a byte.
func (r *Reader) ByteAligned() bool {
	return r.bits == 0
}

// BytesRead returns the number of bytes consumed from the source.
func (r *Reader) BytesRead() int {
	return r.nRead
}
