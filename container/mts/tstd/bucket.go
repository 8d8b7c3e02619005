/*
NAME
  bucket.go

DESCRIPTION
  bucket.go provides the leaky bucket model of an elementary stream buffer
  in the transport system target decoder.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package tstd provides the transport system target decoder buffer model
// used to validate when frames may enter a multiplex.
package tstd

import (
	"errors"
	"fmt"
)

// Clock frequencies.
const (
	SystemClock    = 27000000 // System clock and PCR, Hz.
	TimestampClock = 90000    // PTS and DTS, Hz.

	// TicksPerTimestamp is the number of system clock ticks per PTS tick.
	TicksPerTimestamp = SystemClock / TimestampClock
)

// Errors returned by Bucket.
var (
	ErrOverflow  = errors.New("buffer overflow")
	ErrUnderflow = errors.New("buffer underflow")
	ErrTimestamp = errors.New("inconsistent frame timing")
)

// Params are the leak rate and main buffer size of a buffer model.
type Params struct {
	Rxn uint64 // Leak rate, bit/s.
	Bsn uint64 // Main buffer size, bits.
}

// OverflowError is returned when a frame would overflow the buffer.
type OverflowError struct {
	// MinArrival is the earliest initial arrival time, in system clock ticks,
	// at which the frame fits with its arrival duration unchanged. It is -1
	// if the frame cannot fit at any time.
	MinArrival int64

	Peak uint64 // Peak fullness in bits.
	Size uint64 // Buffer size in bits.
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("%v: peak %d bits exceeds %d, minimum arrival %d", ErrOverflow, e.Peak, e.Size, e.MinArrival)
}

func (e *OverflowError) Unwrap() error { return ErrOverflow }

// Arrival describes a frame entering the buffer.
type Arrival struct {
	Initial int64  // Time the first bit arrives, system clock ticks.
	Final   int64  // Time the last bit arrives, system clock ticks.
	PTS     int64  // Presentation time, timestamp ticks.
	DTS     int64  // Decode time, timestamp ticks.
	Bits    uint64 // Size of the frame.
}

// Bucket is the state of one buffer. Fullness is held in bits scaled by the
// system clock, so that leaking r bit/s for t ticks removes exactly r*t.
// Buckets are values; copying one snapshots its state.
type Bucket struct {
	params    Params
	fullness  int64 // Scaled fullness at time last.
	last      int64
	lastFinal int64
	started   bool
}

// NewBucket returns an empty bucket with the given parameters.
func NewBucket(p Params) Bucket {
	return Bucket{params: p}
}

// Params returns the bucket's parameters.
func (b Bucket) Params() Params { return b.params }

// Fullness returns the fullness in bits at time t, which should not be
// earlier than the final arrival of the last admitted frame.
func (b Bucket) Fullness(t int64) uint64 {
	return uint64(b.drain(b.fullness, t-b.last) / SystemClock)
}

// Check returns the error Admit would return for a, without changing b.
func (b Bucket) Check(a Arrival) error {
	_, err := b.admit(a)
	return err
}

// Admit validates a against the buffer model and, if it is legal, updates
// the bucket to the state after the frame's final arrival.
func (b *Bucket) Admit(a Arrival) error {
	nb, err := b.admit(a)
	if err != nil {
		return err
	}
	*b = nb
	return nil
}

func (b Bucket) admit(a Arrival) (Bucket, error) {
	switch {
	case a.Final < a.Initial:
		return b, fmt.Errorf("%w: final arrival %d before initial arrival %d", ErrTimestamp, a.Final, a.Initial)
	case b.started && a.Initial < b.lastFinal:
		return b, fmt.Errorf("%w: arrival %d before previous final arrival %d", ErrTimestamp, a.Initial, b.lastFinal)
	case a.DTS > a.PTS:
		return b, fmt.Errorf("%w: DTS %d after PTS %d", ErrTimestamp, a.DTS, a.PTS)
	case a.Final > a.DTS*TicksPerTimestamp:
		return b, fmt.Errorf("%w: final arrival %d after decode time %d", ErrUnderflow, a.Final, a.DTS*TicksPerTimestamp)
	}

	last := b.last
	if !b.started {
		last = a.Initial
	}
	f0 := b.drain(b.fullness, a.Initial-last)
	in := int64(a.Bits) * SystemClock
	f1 := b.drain(f0+in, a.Final-a.Initial)

	size := int64(b.params.Bsn) * SystemClock
	if f1 > size {
		return b, &OverflowError{
			MinArrival: b.minArrival(last, a, in, size),
			Peak:       uint64(f1 / SystemClock),
			Size:       b.params.Bsn,
		}
	}

	b.fullness = f1
	b.last = a.Final
	b.lastFinal = a.Final
	b.started = true
	return b, nil
}

// minArrival returns the earliest initial arrival at which a frame of
// scaled size in, keeping its arrival duration, does not overflow.
func (b Bucket) minArrival(last int64, a Arrival, in, size int64) int64 {
	r := int64(b.params.Rxn)
	dt := a.Final - a.Initial
	room := size - in + r*dt // Largest fullness at initial arrival that fits.
	if room < 0 || r == 0 {
		return -1
	}
	excess := b.fullness - room
	t := last + (excess+r-1)/r
	if t < a.Initial {
		return a.Initial
	}
	return t
}

// drain returns the scaled fullness f after leaking for dt ticks, clamped
// at zero.
func (b Bucket) drain(f, dt int64) int64 {
	r := int64(b.params.Rxn)
	if dt <= 0 || r == 0 {
		return f
	}
	if dt > f/r {
		return 0
	}
	return f - r*dt
}
