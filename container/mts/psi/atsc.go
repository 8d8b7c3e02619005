/*
NAME
  atsc.go

DESCRIPTION
  atsc.go provides the ATSC AC-3 audio stream descriptor and the caption
  service descriptor.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package psi

import (
	"fmt"

	"github.com/ausocean/tsmux/codec/ac3"
	"github.com/ausocean/tsmux/codec/bits"
)

// Fixed trailing bytes of the AC-3 audio descriptor.
const (
	ac3MainIDPriority = 0x37 // mainid 1, priority 2, reserved.
	ac3TextLen        = 0x01 // textlen 0, ISO 8859-1 text code.
	ac3LanguageFlags  = 0x3f // language_flag and language_flag_2 unset, reserved.
)

// maxCaptionServices is the largest count number_of_services can carry.
const maxCaptionServices = 0x1f

// AC3Audio is the ATSC A/52 AC-3 audio stream descriptor.
type AC3Audio struct {
	SampleRateCode uint8 // 3 bits.
	BSID           uint8 // 5 bits.
	FrameSizeCode  uint8 // Mapped to bit_rate_code through the frame size table.
	SurroundMode   uint8 // 2 bits.
	BSMod          uint8 // 3 bits.
	NumChannels    uint8 // 4 bits.
	FullSvc        bool
	LangCod        uint8
	LangCod2       uint8 // Written only when NumChannels is 0.
	ASVCFlags      uint8 // Written in place of mainid and priority when BSMod >= 2.
}

// NewAC3Audio returns the descriptor for a parsed AC-3 syncframe.
func NewAC3Audio(info *ac3.Info, frameSizeCode uint8) *AC3Audio {
	return &AC3Audio{
		SampleRateCode: info.SampleRateCode,
		BSID:           info.BSID,
		FrameSizeCode:  frameSizeCode,
		SurroundMode:   info.SurroundMode,
		BSMod:          info.BSMod,
		NumChannels:    info.NumChannels,
		FullSvc:        info.FullSvc,
		LangCod:        info.LangCod,
		LangCod2:       info.LangCod2,
	}
}

// Encode implements DescriptorEncoder. The descriptor length is 8 when
// NumChannels is 0, carrying a second language code, and 7 otherwise.
func (a *AC3Audio) Encode() (Descriptor, error) {
	code, err := ac3.BitRateCode(a.FrameSizeCode)
	if err != nil {
		return Descriptor{}, fmt.Errorf("could not get bit rate code: %w", err)
	}
	return build(ATSCAC3AudioTag, func(b *bits.Batch) {
		b.WriteBits(3, uint32(a.SampleRateCode))
		b.WriteBits(5, uint32(a.BSID))
		b.WriteBits(6, uint32(code))
		b.WriteBits(2, uint32(a.SurroundMode))
		b.WriteBits(3, uint32(a.BSMod))
		b.WriteBits(4, uint32(a.NumChannels))
		b.WriteBit(a.FullSvc)
		b.WriteBits(8, uint32(a.LangCod))
		if a.NumChannels == 0 {
			b.WriteBits(8, uint32(a.LangCod2))
		}
		if a.BSMod < 2 {
			b.WriteBits(8, ac3MainIDPriority)
		} else {
			b.WriteBits(8, uint32(a.ASVCFlags))
		}
		b.WriteBits(8, ac3TextLen)
		b.WriteBits(8, ac3LanguageFlags)
	})
}

// DecodeAC3Audio decodes an AC-3 audio stream descriptor. The frame size code
// recovered is the first of the pair sharing the bit rate code.
func DecodeAC3Audio(d Descriptor) (*AC3Audio, error) {
	if d.Tag != ATSCAC3AudioTag {
		return nil, fmt.Errorf("%w: %#x", ErrWrongTag, d.Tag)
	}
	if len(d.Data) < 6 {
		return nil, fmt.Errorf("%w: AC-3 descriptor length %d", ErrMalformed, len(d.Data))
	}
	r := bits.NewBytesReader(d.Data)
	var f fields
	f.r = r
	a := &AC3Audio{
		SampleRateCode: uint8(f.read(3)),
		BSID:           uint8(f.read(5)),
	}
	code := uint8(f.read(6)) & 0x1f // Top bit flags an upper limit.
	a.FrameSizeCode = code * 2
	a.SurroundMode = uint8(f.read(2))
	a.BSMod = uint8(f.read(3))
	a.NumChannels = uint8(f.read(4))
	a.FullSvc = f.read(1) == 1
	a.LangCod = uint8(f.read(8))
	if a.NumChannels == 0 {
		a.LangCod2 = uint8(f.read(8))
	}
	flags := uint8(f.read(8))
	if a.BSMod >= 2 {
		a.ASVCFlags = flags
	}
	if f.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, f.err)
	}
	if _, err := ac3.NominalBitRate(a.FrameSizeCode); err != nil {
		return nil, err
	}
	return a, nil
}

// CaptionService is the ATSC A/65 caption service descriptor.
type CaptionService struct {
	Services []CaptionEntry
}

// CaptionEntry describes one caption service.
type CaptionEntry struct {
	Language        string // ISO 639-2 code, three characters.
	DigitalCC       bool   // Advanced (708) captioning.
	ServiceNumber   uint8  // 6 bits, used when DigitalCC.
	Line21Field     bool   // Used when not DigitalCC.
	EasyReader      bool
	WideAspectRatio bool
}

// Encode implements DescriptorEncoder. With no services the descriptor
// carries only a zero service count.
func (c *CaptionService) Encode() (Descriptor, error) {
	if len(c.Services) > maxCaptionServices {
		return Descriptor{}, fmt.Errorf("%w: %d caption services", ErrFieldRange, len(c.Services))
	}
	return build(CaptionServiceTag, func(b *bits.Batch) {
		b.WriteBits(3, 0x7)
		b.WriteBits(5, uint32(len(c.Services)))
		for _, s := range c.Services {
			writeLanguage(b, s.Language)
			b.WriteBit(s.DigitalCC)
			b.WriteBit(true)
			if s.DigitalCC {
				b.WriteBits(6, uint32(s.ServiceNumber))
			} else {
				b.WriteBits(5, 0x1f)
				b.WriteBit(s.Line21Field)
			}
			b.WriteBit(s.EasyReader)
			b.WriteBit(s.WideAspectRatio)
			b.WriteBits(14, 0x3fff)
		}
	})
}

// DecodeCaptionService decodes a caption service descriptor.
func DecodeCaptionService(d Descriptor) (*CaptionService, error) {
	if d.Tag != CaptionServiceTag {
		return nil, fmt.Errorf("%w: %#x", ErrWrongTag, d.Tag)
	}
	if len(d.Data) < 1 {
		return nil, fmt.Errorf("%w: empty caption service descriptor", ErrMalformed)
	}
	n := int(d.Data[0] & 0x1f)
	if len(d.Data) != 1+6*n {
		return nil, fmt.Errorf("%w: %d services in %d bytes", ErrMalformed, n, len(d.Data))
	}
	c := &CaptionService{}
	for i := 0; i < n; i++ {
		e := d.Data[1+6*i : 7+6*i]
		s := CaptionEntry{
			Language:        string(e[:3]),
			DigitalCC:       e[3]&0x80 != 0,
			EasyReader:      e[4]&0x80 != 0,
			WideAspectRatio: e[4]&0x40 != 0,
		}
		if s.DigitalCC {
			s.ServiceNumber = e[3] & 0x3f
		} else {
			s.Line21Field = e[3]&0x01 != 0
		}
		c.Services = append(c.Services, s)
	}
	return c, nil
}

// fields keeps the first error of a sequence of reads.
type fields struct {
	r   *bits.Reader
	err error
}

func (f *fields) read(n int) uint64 {
	if f.err != nil {
		return 0
	}
	v, err := f.r.ReadBits(n)
	if err != nil {
		f.err = err
	}
	return v
}
