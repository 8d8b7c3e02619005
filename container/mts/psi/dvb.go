/*
NAME
  dvb.go

DESCRIPTION
  dvb.go provides the DVB (ETSI EN 300 468) descriptors used in PMTs, the
  SDT, the NIT and the TOT.

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
	"time"

	"github.com/ausocean/tsmux/codec/bits"
)

// Service types.
const (
	ServiceDigitalTV    = 0x01
	ServiceDigitalRadio = 0x02
	ServiceAVCHDTV      = 0x19
	ServiceHEVCTV       = 0x1f
)

// StreamIdentifier is the stream identifier descriptor.
type StreamIdentifier struct {
	ComponentTag uint8
}

// Encode implements DescriptorEncoder.
func (s *StreamIdentifier) Encode() (Descriptor, error) {
	return build(StreamIdentifierTag, func(b *bits.Batch) {
		b.WriteBits(8, uint32(s.ComponentTag))
	})
}

// DVBAC3 is the DVB AC-3 descriptor. Optional fields are written when their
// Has flag is set.
type DVBAC3 struct {
	HasComponentType bool
	ComponentType    uint8
	HasBSID          bool
	BSID             uint8
	HasMainID        bool
	MainID           uint8
	HasASVC          bool
	ASVC             uint8
}

// Encode implements DescriptorEncoder.
func (d *DVBAC3) Encode() (Descriptor, error) {
	return build(DVBAC3Tag, func(b *bits.Batch) {
		b.WriteBit(d.HasComponentType)
		b.WriteBit(d.HasBSID)
		b.WriteBit(d.HasMainID)
		b.WriteBit(d.HasASVC)
		b.WriteBits(4, 0xf)
		if d.HasComponentType {
			b.WriteBits(8, uint32(d.ComponentType))
		}
		if d.HasBSID {
			b.WriteBits(8, uint32(d.BSID))
		}
		if d.HasMainID {
			b.WriteBits(8, uint32(d.MainID))
		}
		if d.HasASVC {
			b.WriteBits(8, uint32(d.ASVC))
		}
	})
}

// ServiceDescriptor is the service descriptor carried in the SDT.
type ServiceDescriptor struct {
	Type     uint8
	Provider string
	Name     string
}

// Encode implements DescriptorEncoder.
func (s *ServiceDescriptor) Encode() (Descriptor, error) {
	if len(s.Provider) > 0xff || len(s.Name) > 0xff {
		return Descriptor{}, fmt.Errorf("%w: service names too long", ErrFieldRange)
	}
	return build(ServiceTag, func(b *bits.Batch) {
		b.WriteBits(8, uint32(s.Type))
		b.WriteBits(8, uint32(len(s.Provider)))
		b.WriteBytes([]byte(s.Provider))
		b.WriteBits(8, uint32(len(s.Name)))
		b.WriteBytes([]byte(s.Name))
	})
}

// NetworkName is the network name descriptor.
type NetworkName struct {
	Name string
}

// Encode implements DescriptorEncoder.
func (n *NetworkName) Encode() (Descriptor, error) {
	return build(NetworkNameTag, func(b *bits.Batch) {
		b.WriteBytes([]byte(n.Name))
	})
}

// ServiceList is the service list descriptor carried in the NIT.
type ServiceList struct {
	Services []ServiceListEntry
}

// ServiceListEntry is one service of a service list descriptor.
type ServiceListEntry struct {
	ServiceID uint16
	Type      uint8
}

// Encode implements DescriptorEncoder.
func (s *ServiceList) Encode() (Descriptor, error) {
	return build(ServiceListTag, func(b *bits.Batch) {
		for _, e := range s.Services {
			b.WriteBits(16, uint32(e.ServiceID))
			b.WriteBits(8, uint32(e.Type))
		}
	})
}

// LocalTimeOffset is the local time offset descriptor carried in the TOT.
type LocalTimeOffset struct {
	Regions []TimeOffsetRegion
}

// TimeOffsetRegion is one region of a local time offset descriptor.
type TimeOffsetRegion struct {
	Country    string        // ISO 3166 alpha-3 code.
	RegionID   uint8         // 6 bits.
	Offset     time.Duration // Current offset from UTC, whole minutes.
	ChangeTime time.Time     // Next change of offset.
	NextOffset time.Duration // Offset after ChangeTime.
}

// Encode implements DescriptorEncoder.
func (l *LocalTimeOffset) Encode() (Descriptor, error) {
	return build(LocalTimeOffsetTag, func(b *bits.Batch) {
		for _, r := range l.Regions {
			writeLanguage(b, r.Country)
			b.WriteBits(6, uint32(r.RegionID))
			b.WriteBit(true)
			b.WriteBit(r.Offset < 0)
			off, err := offsetBCD(r.Offset)
			if err != nil {
				b.Fail(err)
				return
			}
			b.WriteBits(16, uint32(off))
			utc, err := EncodeUTC(r.ChangeTime)
			if err != nil {
				b.Fail(err)
				return
			}
			b.WriteBytes(utc[:])
			off, err = offsetBCD(r.NextOffset)
			if err != nil {
				b.Fail(err)
				return
			}
			b.WriteBits(16, uint32(off))
		}
	})
}

// offsetBCD returns the magnitude of d as BCD hours and minutes.
func offsetBCD(d time.Duration) (uint16, error) {
	if d < 0 {
		d = -d
	}
	if d%time.Minute != 0 || d >= 100*time.Hour {
		return 0, fmt.Errorf("%w: time offset %v", ErrFieldRange, d)
	}
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	return uint16(toBCD(h))<<8 | uint16(toBCD(m)), nil
}

// Subtitling types.
const (
	SubtitleNormal        = 0x10
	SubtitleHardOfHearing = 0x20
)

// Subtitling is the DVB subtitling descriptor.
type Subtitling struct {
	Subtitles []Subtitle
}

// Subtitle is one subtitling descriptor entry.
type Subtitle struct {
	Language        string
	Type            uint8
	CompositionPage uint16
	AncillaryPage   uint16
}

// Encode implements DescriptorEncoder.
func (s *Subtitling) Encode() (Descriptor, error) {
	return build(SubtitlingTag, func(b *bits.Batch) {
		for _, e := range s.Subtitles {
			writeLanguage(b, e.Language)
			b.WriteBits(8, uint32(e.Type))
			b.WriteBits(16, uint32(e.CompositionPage))
			b.WriteBits(16, uint32(e.AncillaryPage))
		}
	})
}

// Teletext types.
const (
	TeletextInitialPage = 0x01
	TeletextSubtitle    = 0x02
)

// Teletext is the teletext descriptor.
type Teletext struct {
	Pages []TeletextPage
}

// TeletextPage is one teletext descriptor entry.
type TeletextPage struct {
	Language string
	Type     uint8 // 5 bits.
	Magazine uint8 // 3 bits.
	Page     uint8 // BCD page number.
}

// Encode implements DescriptorEncoder.
func (t *Teletext) Encode() (Descriptor, error) {
	return build(TeletextTag, func(b *bits.Batch) {
		for _, p := range t.Pages {
			writeLanguage(b, p.Language)
			b.WriteBits(5, uint32(p.Type))
			b.WriteBits(3, uint32(p.Magazine))
			b.WriteBits(8, uint32(p.Page))
		}
	})
}
