/*
NAME
  descriptor.go

DESCRIPTION
  descriptor.go provides the generic tag-length-data descriptor and
  functions to encode and parse descriptor loops.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package psi

import (
	"errors"
	"fmt"

	"github.com/ausocean/tsmux/codec/bits"
)

// Descriptor tags.
const (
	VideoStreamTag       = 0x02
	RegistrationTag      = 0x05
	ISO639LanguageTag    = 0x0a
	MaxBitrateTag        = 0x0e
	MPEG4AudioTag        = 0x1c
	MetadataTag          = 0x26
	AVCVideoTag          = 0x28
	HEVCVideoTag         = 0x38
	NetworkNameTag       = 0x40
	ServiceListTag       = 0x41
	ServiceTag           = 0x48
	StreamIdentifierTag  = 0x52
	TeletextTag          = 0x56
	LocalTimeOffsetTag   = 0x58
	SubtitlingTag        = 0x59
	DVBAC3Tag            = 0x6a
	ATSCAC3AudioTag      = 0x81
	CaptionServiceTag    = 0x86
	maxDescriptorDataLen = 255
)

// Errors used by descriptor encoding and parsing.
var (
	ErrDescriptorTooLong = errors.New("descriptor data longer than 255 bytes")
	ErrFieldRange        = errors.New("descriptor field out of range")
	ErrMalformed         = errors.New("malformed descriptor")
	ErrWrongTag          = errors.New("unexpected descriptor tag")
)

// Descriptor is a tagged, length prefixed descriptor.
type Descriptor struct {
	Tag  byte   // Descriptor tag.
	Data []byte // Descriptor data; its length is the descriptor length.
}

// DescriptorEncoder is implemented by typed descriptors. Encode validates
// every field before anything is written, so a failed encoding yields no
// partial descriptor.
type DescriptorEncoder interface {
	Encode() (Descriptor, error)
}

// Len returns the encoded size of the descriptor in bytes.
func (d Descriptor) Len() int { return 2 + len(d.Data) }

// Bytes outputs a byte slice representation of the descriptor.
func (d Descriptor) Bytes() ([]byte, error) {
	if len(d.Data) > maxDescriptorDataLen {
		return nil, fmt.Errorf("%w: tag %#x", ErrDescriptorTooLong, d.Tag)
	}
	out := make([]byte, 2, d.Len())
	out[0] = d.Tag
	out[1] = byte(len(d.Data))
	return append(out, d.Data...), nil
}

// Descriptors returns the concatenated encoding of ds.
func Descriptors(ds []Descriptor) ([]byte, error) {
	var out []byte
	for _, d := range ds {
		b, err := d.Bytes()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// EncodeAll encodes each typed descriptor in order.
func EncodeAll(encs ...DescriptorEncoder) ([]Descriptor, error) {
	ds := make([]Descriptor, 0, len(encs))
	for _, e := range encs {
		d, err := e.Encode()
		if err != nil {
			return nil, err
		}
		ds = append(ds, d)
	}
	return ds, nil
}

// ParseDescriptors parses a descriptor loop.
func ParseDescriptors(b []byte) ([]Descriptor, error) {
	var ds []Descriptor
	for i := 0; i < len(b); {
		if i+2 > len(b) {
			return nil, fmt.Errorf("%w: truncated header at %d", ErrMalformed, i)
		}
		l := int(b[i+1])
		if i+2+l > len(b) {
			return nil, fmt.Errorf("%w: tag %#x length %d overruns loop", ErrMalformed, b[i], l)
		}
		ds = append(ds, Descriptor{Tag: b[i], Data: b[i+2 : i+2+l]})
		i += 2 + l
	}
	return ds, nil
}

// FindDescriptor returns the first descriptor in ds with the given tag.
func FindDescriptor(ds []Descriptor, tag byte) (Descriptor, bool) {
	for _, d := range ds {
		if d.Tag == tag {
			return d, true
		}
	}
	return Descriptor{}, false
}

// build writes a descriptor's data with fn into a private buffer, returning
// the descriptor only if every field was written without error.
func build(tag byte, fn func(b *bits.Batch)) (Descriptor, error) {
	w := bits.NewWriter()
	b := bits.NewBatch(w)
	fn(b)
	b.Align()
	if b.Err() != nil {
		return Descriptor{}, fmt.Errorf("descriptor %#x: %w", tag, b.Err())
	}
	data := w.Bytes()
	if len(data) > maxDescriptorDataLen {
		return Descriptor{}, fmt.Errorf("%w: tag %#x", ErrDescriptorTooLong, tag)
	}
	return Descriptor{Tag: tag, Data: append([]byte(nil), data...)}, nil
}

// writeLanguage writes a three character ISO 639-2 code.
func writeLanguage(b *bits.Batch, lang string) {
	if len(lang) != 3 {
		b.Fail(fmt.Errorf("%w: language code %q", ErrFieldRange, lang))
		return
	}
	b.WriteBytes([]byte(lang))
}

func asUint(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}
