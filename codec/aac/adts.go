/*
NAME
  adts.go

DESCRIPTION
  adts.go provides reading and writing of AAC frames with ADTS headers.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package aac provides AAC audio data transport stream (ADTS) framing.
package aac

import (
	"errors"
	"fmt"
	"io"
)

// HeaderSize is the size of an ADTS header without CRC.
const HeaderSize = 7

// SamplesPerFrame is the number of PCM samples coded by one AAC frame.
const SamplesPerFrame = 1024

const (
	syncword       = 0xfff
	maxFrameLength = 1<<13 - 1
)

// Errors returned when parsing or writing headers.
var (
	ErrSyncword    = errors.New("syncword mismatch")
	ErrFrameLength = errors.New("invalid frame length")
	ErrSampleRate  = errors.New("unsupported sample rate")
)

// sampleRates is indexed by sampling_frequency_index.
var sampleRates = [...]int{96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050, 16000, 12000, 11025, 8000, 7350}

// Header holds the fields of an ADTS header.
type Header struct {
	MPEG2            bool  // ID bit; MPEG-4 when false.
	ProtectionAbsent bool  // No CRC follows the header.
	Profile          uint8 // Audio object type minus one, 1 for AAC LC.
	SampleRateIndex  uint8
	Channels         uint8 // channel_configuration.
	FrameLength      int   // Header and payload in bytes.
	RawDataBlocks    uint8 // Raw data blocks in the frame minus one.
}

// SampleRateIndex returns the sampling_frequency_index of rate.
func SampleRateIndex(rate int) (uint8, error) {
	for i, r := range sampleRates {
		if r == rate {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %d", ErrSampleRate, rate)
}

// SampleRate returns the sample rate of the header in Hz.
func (h *Header) SampleRate() (int, error) {
	if int(h.SampleRateIndex) >= len(sampleRates) {
		return 0, fmt.Errorf("%w: index %d", ErrSampleRate, h.SampleRateIndex)
	}
	return sampleRates[h.SampleRateIndex], nil
}

// headerLen returns the length of the header including any CRC.
func (h *Header) headerLen() int {
	if h.ProtectionAbsent {
		return HeaderSize
	}
	return HeaderSize + 2
}

// ParseHeader parses the ADTS header at the start of b.
func ParseHeader(b []byte) (*Header, error) {
	if len(b) < HeaderSize {
		return nil, io.ErrUnexpectedEOF
	}
	if sw := uint16(b[0])<<4 | uint16(b[1])>>4; sw != syncword {
		return nil, fmt.Errorf("%w: got %#x", ErrSyncword, sw)
	}
	h := &Header{
		MPEG2:            b[1]&0x08 != 0,
		ProtectionAbsent: b[1]&0x01 != 0,
		Profile:          b[2] >> 6,
		SampleRateIndex:  b[2] >> 2 & 0x0f,
		Channels:         b[2]&0x01<<2 | b[3]>>6,
		FrameLength:      int(b[3]&0x03)<<11 | int(b[4])<<3 | int(b[5])>>5,
		RawDataBlocks:    b[6] & 0x03,
	}
	if h.FrameLength <= h.headerLen() {
		return h, fmt.Errorf("%w: %d", ErrFrameLength, h.FrameLength)
	}
	return h, nil
}

// Bytes returns the 7 byte header with the buffer fullness set to
// variable rate.
func (h *Header) Bytes() []byte {
	const fullness = 0x7ff
	b := make([]byte, HeaderSize)
	b[0] = syncword >> 4
	b[1] = syncword&0x0f<<4 | asByte(h.MPEG2)<<3 | asByte(h.ProtectionAbsent)
	b[2] = h.Profile<<6 | h.SampleRateIndex&0x0f<<2 | h.Channels>>2&0x01
	b[3] = h.Channels&0x03<<6 | byte(h.FrameLength>>11)&0x03
	b[4] = byte(h.FrameLength >> 3)
	b[5] = byte(h.FrameLength)<<5 | fullness>>6
	b[6] = fullness&0x3f<<2 | h.RawDataBlocks&0x03
	return b
}

// Frame returns an ADTS frame of the raw AAC data using the
// header fields of h. The frame length is set from the data.
func (h Header) Frame(data []byte) ([]byte, error) {
	h.ProtectionAbsent = true
	h.FrameLength = HeaderSize + len(data)
	if h.FrameLength > maxFrameLength {
		return nil, fmt.Errorf("%w: %d", ErrFrameLength, h.FrameLength)
	}
	return append(h.Bytes(), data...), nil
}

// ReadFrame reads the next ADTS frame from r and returns its header and the
// whole frame. io.EOF is returned only when r holds no further data.
func ReadFrame(r io.Reader) (*Header, []byte, error) {
	buf := make([]byte, HeaderSize)
	_, err := io.ReadFull(r, buf)
	if err == io.EOF {
		return nil, nil, io.EOF
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not read header: %w", err)
	}
	h, err := ParseHeader(buf)
	if err != nil {
		return nil, nil, err
	}
	frame := make([]byte, h.FrameLength)
	copy(frame, buf)
	_, err = io.ReadFull(r, frame[HeaderSize:])
	if err != nil {
		return nil, nil, fmt.Errorf("could not read frame of %d bytes: %w", h.FrameLength, err)
	}
	return h, frame, nil
}

func asByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
