/*
NAME
  ac3.go

DESCRIPTION
  ac3.go provides AC-3 (ATSC A/52) frame size code lookups and syncframe
  header parsing for the production of AC-3 audio descriptors.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package ac3 provides AC-3 syncframe parsing and frame size code lookups.
package ac3

import (
	"errors"
	"fmt"

	"github.com/ausocean/tsmux/codec/bits"
)

// SyncWord begins every AC-3 syncframe.
const SyncWord = 0x0b77

// Sample rate codes (fscod).
const (
	Rate48k      = 0
	Rate44k1     = 1
	Rate32k      = 2
	rateReserved = 3
)

// Errors returned by lookups and ParseSyncFrame.
var (
	ErrFrameSizeCode = errors.New("frame size code not in table")
	ErrBitRate       = errors.New("nominal bit rate not in table")
	ErrSyncWord      = errors.New("no AC-3 sync word")
	ErrSampleRate    = errors.New("reserved sample rate code")
	ErrShortFrame    = errors.New("frame too short for syncinfo and bsi")
)

// frameSize is one row of A/52 Table 5.18.
type frameSize struct {
	code    uint8  // frmsizecod.
	kbps    uint16 // Nominal bit rate.
	bitRate uint8  // bit_rate_code as used by the ATSC AC-3 descriptor.
}

// frameSizes holds the 38 defined frame size codes. Consecutive codes share
// a bit rate and differ only in 44.1 kHz padding.
var frameSizes = [...]frameSize{
	{0x00, 32, 0x00}, {0x01, 32, 0x00},
	{0x02, 40, 0x01}, {0x03, 40, 0x01},
	{0x04, 48, 0x02}, {0x05, 48, 0x02},
	{0x06, 56, 0x03}, {0x07, 56, 0x03},
	{0x08, 64, 0x04}, {0x09, 64, 0x04},
	{0x0a, 80, 0x05}, {0x0b, 80, 0x05},
	{0x0c, 96, 0x06}, {0x0d, 96, 0x06},
	{0x0e, 112, 0x07}, {0x0f, 112, 0x07},
	{0x10, 128, 0x08}, {0x11, 128, 0x08},
	{0x12, 160, 0x09}, {0x13, 160, 0x09},
	{0x14, 192, 0x0a}, {0x15, 192, 0x0a},
	{0x16, 224, 0x0b}, {0x17, 224, 0x0b},
	{0x18, 256, 0x0c}, {0x19, 256, 0x0c},
	{0x1a, 320, 0x0d}, {0x1b, 320, 0x0d},
	{0x1c, 384, 0x0e}, {0x1d, 384, 0x0e},
	{0x1e, 448, 0x0f}, {0x1f, 448, 0x0f},
	{0x20, 512, 0x10}, {0x21, 512, 0x10},
	{0x22, 576, 0x11}, {0x23, 576, 0x11},
	{0x24, 640, 0x12}, {0x25, 640, 0x12},
}

// NominalBitRate returns the nominal bit rate in kbit/s for frame size code c.
func NominalBitRate(c uint8) (uint16, error) {
	for _, e := range frameSizes {
		if e.code == c {
			return e.kbps, nil
		}
	}
	return 0, fmt.Errorf("%w: %#x", ErrFrameSizeCode, c)
}

// BitRateCodeForRate returns the descriptor bit_rate_code for an exact
// nominal bit rate in kbit/s.
func BitRateCodeForRate(kbps uint16) (uint8, error) {
	for _, e := range frameSizes {
		if e.kbps == kbps {
			return e.bitRate, nil
		}
	}
	return 0, fmt.Errorf("%w: %d kbit/s", ErrBitRate, kbps)
}

// BitRateCode returns the descriptor bit_rate_code for frame size code c.
// Code 0 is a valid result; failure is reported only through the error.
func BitRateCode(c uint8) (uint8, error) {
	kbps, err := NominalBitRate(c)
	if err != nil {
		return 0, err
	}
	return BitRateCodeForRate(kbps)
}

// FrameSize returns the syncframe size in bytes for sample rate code fscod
// and frame size code c.
func FrameSize(fscod, c uint8) (int, error) {
	kbps, err := NominalBitRate(c)
	if err != nil {
		return 0, err
	}
	switch fscod {
	case Rate48k:
		return int(kbps) * 4, nil
	case Rate44k1:
		words := int(kbps)*1536*1000/44100/16 + int(c&1)
		return words * 2, nil
	case Rate32k:
		return int(kbps) * 6, nil
	default:
		return 0, ErrSampleRate
	}
}

// Info holds the fields of an ATSC AC-3 audio descriptor that may be derived
// from a syncframe.
type Info struct {
	SampleRateCode uint8 // fscod, 3 bit descriptor field.
	BSID           uint8 // Bit stream identification.
	BitRateCode    uint8 // Exact bit rate code.
	SurroundMode   uint8 // dsurmod when in 2/0 mode, otherwise 0.
	BSMod          uint8 // Bit stream mode.
	NumChannels    uint8 // Audio coding mode, 0 indicating 1+1.
	FullSvc        bool  // Full service flag.
	LangCod        uint8 // Deprecated, 0xff.
	LangCod2       uint8 // Deprecated, 0xff. Present only when NumChannels is 0.
	LFE            bool  // Low frequency effects channel present.
	FrameSize      int   // Syncframe size in bytes.
}

// ParseSyncFrame parses the syncinfo and leading bsi fields of the AC-3
// syncframe beginning at frame[0].
func ParseSyncFrame(frame []byte) (*Info, error) {
	if len(frame) < 8 {
		return nil, ErrShortFrame
	}
	r := bits.NewBytesReader(frame)

	sync, err := r.ReadBits(16)
	if err != nil {
		return nil, err
	}
	if sync != SyncWord {
		return nil, ErrSyncWord
	}

	// Skip crc1.
	if err := r.Skip(16); err != nil {
		return nil, err
	}

	var f fieldReader
	f.r = r
	fscod := uint8(f.read(2))
	frmsizecod := uint8(f.read(6))
	bsid := uint8(f.read(5))
	bsmod := uint8(f.read(3))
	acmod := uint8(f.read(3))
	if acmod&0x1 != 0 && acmod != 1 {
		f.read(2) // cmixlev
	}
	if acmod&0x4 != 0 {
		f.read(2) // surmixlev
	}
	var dsurmod uint8
	if acmod == 2 {
		dsurmod = uint8(f.read(2))
	}
	lfe := f.read(1) == 1
	if f.err != nil {
		return nil, fmt.Errorf("could not read bsi: %w", f.err)
	}

	if fscod == rateReserved {
		return nil, ErrSampleRate
	}
	code, err := BitRateCode(frmsizecod)
	if err != nil {
		return nil, err
	}
	size, err := FrameSize(fscod, frmsizecod)
	if err != nil {
		return nil, err
	}

	return &Info{
		SampleRateCode: fscod,
		BSID:           bsid,
		BitRateCode:    code,
		SurroundMode:   dsurmod,
		BSMod:          bsmod,
		NumChannels:    acmod,
		FullSvc:        true,
		LangCod:        0xff,
		LangCod2:       0xff,
		LFE:            lfe,
		FrameSize:      size,
	}, nil
}

// fieldReader keeps the first error of a sequence of reads.
type fieldReader struct {
	r   *bits.Reader
	err error
}

func (f *fieldReader) read(n int) uint64 {
	if f.err != nil {
		return 0
	}
	v, err := f.r.ReadBits(n)
	if err != nil {
		f.err = err
	}
	return v
}
