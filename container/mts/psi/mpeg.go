/*
NAME
  mpeg.go

DESCRIPTION
  mpeg.go provides the ISO/IEC 13818-1 descriptors used in PMTs: codec
  level and profile descriptors, registration, language and maximum bitrate.

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

	"github.com/ausocean/tsmux/codec/bits"
)

// Registration is the registration descriptor carrying a format identifier
// such as "AC-3" or "HEVC".
type Registration struct {
	FormatIdentifier string
}

// Encode implements DescriptorEncoder.
func (r *Registration) Encode() (Descriptor, error) {
	if len(r.FormatIdentifier) != 4 {
		return Descriptor{}, fmt.Errorf("%w: format identifier %q", ErrFieldRange, r.FormatIdentifier)
	}
	return build(RegistrationTag, func(b *bits.Batch) {
		b.WriteBytes([]byte(r.FormatIdentifier))
	})
}

// Audio types of the ISO 639 language descriptor.
const (
	AudioUndefined       = 0x00
	AudioCleanEffects    = 0x01
	AudioHearingImpaired = 0x02
	AudioVisualImpaired  = 0x03
)

// ISO639Language is the ISO 639 language descriptor.
type ISO639Language struct {
	Languages []Language
}

// Language is an ISO 639 language descriptor entry.
type Language struct {
	Code      string // ISO 639-2 code, three characters.
	AudioType uint8
}

// Encode implements DescriptorEncoder.
func (l *ISO639Language) Encode() (Descriptor, error) {
	return build(ISO639LanguageTag, func(b *bits.Batch) {
		for _, lang := range l.Languages {
			writeLanguage(b, lang.Code)
			b.WriteBits(8, uint32(lang.AudioType))
		}
	})
}

// MaxBitrate is the maximum bitrate descriptor.
type MaxBitrate struct {
	BitsPerSecond uint64
}

// Encode implements DescriptorEncoder. The rate is written in units of
// 50 bytes per second, rounded up.
func (m *MaxBitrate) Encode() (Descriptor, error) {
	units := (m.BitsPerSecond + 399) / 400
	if units >= 1<<22 {
		return Descriptor{}, fmt.Errorf("%w: maximum bitrate %d", ErrFieldRange, m.BitsPerSecond)
	}
	return build(MaxBitrateTag, func(b *bits.Batch) {
		b.WriteBits(2, 0x3)
		b.WriteBits(22, uint32(units))
	})
}

// VideoStream is the MPEG-1/MPEG-2 video stream descriptor.
type VideoStream struct {
	MultipleFrameRate  bool
	FrameRateCode      uint8 // 4 bits.
	ConstrainedParams  bool
	StillPicture       bool
	ProfileAndLevel    uint8 // profile_and_level_indication.
	ChromaFormat       uint8 // 2 bits, 1 for 4:2:0.
	FrameRateExtension bool
}

// Encode implements DescriptorEncoder. The MPEG_1_only_flag is always
// clear.
func (v *VideoStream) Encode() (Descriptor, error) {
	return build(VideoStreamTag, func(b *bits.Batch) {
		b.WriteBit(v.MultipleFrameRate)
		b.WriteBits(4, uint32(v.FrameRateCode))
		b.WriteBit(false)
		b.WriteBit(v.ConstrainedParams)
		b.WriteBit(v.StillPicture)
		b.WriteBits(8, uint32(v.ProfileAndLevel))
		b.WriteBits(2, uint32(v.ChromaFormat))
		b.WriteBit(v.FrameRateExtension)
		b.WriteBits(5, 0x1f)
	})
}

// AVCVideo is the AVC video descriptor.
type AVCVideo struct {
	ProfileIDC           uint8
	ConstraintFlags      uint8 // constraint_set0 to constraint_set5, 6 bits.
	CompatibleFlags      uint8 // AVC_compatible_flags, 2 bits.
	LevelIDC             uint8
	Still                bool
	Picture24Hour        bool
	FramePackingNotInSEI bool
}

// Encode implements DescriptorEncoder.
func (a *AVCVideo) Encode() (Descriptor, error) {
	return build(AVCVideoTag, func(b *bits.Batch) {
		b.WriteBits(8, uint32(a.ProfileIDC))
		b.WriteBits(6, uint32(a.ConstraintFlags))
		b.WriteBits(2, uint32(a.CompatibleFlags))
		b.WriteBits(8, uint32(a.LevelIDC))
		b.WriteBit(a.Still)
		b.WriteBit(a.Picture24Hour)
		b.WriteBit(a.FramePackingNotInSEI)
		b.WriteBits(5, 0x1f)
	})
}

// DecodeAVCVideo decodes an AVC video descriptor.
func DecodeAVCVideo(d Descriptor) (*AVCVideo, error) {
	if d.Tag != AVCVideoTag {
		return nil, fmt.Errorf("%w: %#x", ErrWrongTag, d.Tag)
	}
	if len(d.Data) != 4 {
		return nil, fmt.Errorf("%w: AVC video descriptor length %d", ErrMalformed, len(d.Data))
	}
	return &AVCVideo{
		ProfileIDC:           d.Data[0],
		ConstraintFlags:      d.Data[1] >> 2,
		CompatibleFlags:      d.Data[1] & 0x3,
		LevelIDC:             d.Data[2],
		Still:                d.Data[3]&0x80 != 0,
		Picture24Hour:        d.Data[3]&0x40 != 0,
		FramePackingNotInSEI: d.Data[3]&0x20 != 0,
	}, nil
}

// HEVCVideo is the HEVC video descriptor, without a temporal layer subset.
type HEVCVideo struct {
	ProfileSpace        uint8 // 2 bits.
	HighTier            bool
	ProfileIDC          uint8 // 5 bits.
	CompatibilityFlags  uint32
	ProgressiveSource   bool
	InterlacedSource    bool
	NonPackedConstraint bool
	FrameOnlyConstraint bool
	ConstraintFlags     uint64 // Remaining 44 general constraint bits.
	LevelIDC            uint8
	Still               bool
	Picture24Hour       bool
	SubPicHRDNotPresent bool
	HDRWCG              uint8 // HDR_WCG_idc, 2 bits; 3 if unknown.
}

// Encode implements DescriptorEncoder.
func (h *HEVCVideo) Encode() (Descriptor, error) {
	if h.ConstraintFlags >= 1<<44 {
		return Descriptor{}, fmt.Errorf("%w: constraint flags %#x", ErrFieldRange, h.ConstraintFlags)
	}
	return build(HEVCVideoTag, func(b *bits.Batch) {
		b.WriteBits(2, uint32(h.ProfileSpace))
		b.WriteBit(h.HighTier)
		b.WriteBits(5, uint32(h.ProfileIDC))
		b.WriteBits(32, h.CompatibilityFlags)
		b.WriteBit(h.ProgressiveSource)
		b.WriteBit(h.InterlacedSource)
		b.WriteBit(h.NonPackedConstraint)
		b.WriteBit(h.FrameOnlyConstraint)
		b.WriteBits(12, uint32(h.ConstraintFlags>>32))
		b.WriteBits(32, uint32(h.ConstraintFlags))
		b.WriteBits(8, uint32(h.LevelIDC))
		b.WriteBit(false) // temporal_layer_subset_flag
		b.WriteBit(h.Still)
		b.WriteBit(h.Picture24Hour)
		b.WriteBit(h.SubPicHRDNotPresent)
		b.WriteBits(2, 0x3)
		b.WriteBits(2, uint32(h.HDRWCG))
	})
}

// MPEG4Audio is the MPEG-4 audio descriptor.
type MPEG4Audio struct {
	ProfileAndLevel uint8
}

// Encode implements DescriptorEncoder.
func (m *MPEG4Audio) Encode() (Descriptor, error) {
	return build(MPEG4AudioTag, func(b *bits.Batch) {
		b.WriteBits(8, uint32(m.ProfileAndLevel))
	})
}
