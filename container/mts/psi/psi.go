/*
NAME
  psi.go

DESCRIPTION
  psi.go provides encoding of MPEG-TS program specific information sections
  (PAT and PMT) and the long-form section framing shared with the SI tables.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package psi provides encoding of MPEG-TS program specific information,
// DVB service information and their descriptors.
package psi

import (
	"errors"
	"fmt"

	"github.com/ausocean/tsmux/codec/bits"
)

// PacketSize of psi (without MPEG-TS header).
const PacketSize = 184

// Table IDs.
const (
	PATTableID = 0x00
	PMTTableID = 0x02
	NITTableID = 0x40 // Actual network.
	SDTTableID = 0x42 // Actual transport stream.
	TDTTableID = 0x70
	TOTTableID = 0x73
)

// Section length limits, counting the bytes after the section_length field.
const (
	// MaxSectionLen is the largest section_length permitted for PSI.
	MaxSectionLen = 1021

	// LegacySectionLen keeps a whole section, with its header and pointer
	// field, inside a single transport packet for older decoders.
	LegacySectionLen = PacketSize - 1 - sectionHeadLen
)

// Lengths of section parts.
const (
	sectionHeadLen = 3 // table_id and section_length.
	syntaxLen      = 5 // Extension, version and section numbers.
	crcSize        = 4
	maxVersion     = 0x1f
)

// Errors returned when encoding tables.
var (
	ErrSectionTooLong = errors.New("section exceeds maximum length")
	ErrVersion        = errors.New("version number out of range")
	ErrLoopTooLong    = errors.New("descriptor loop too long")
)

// Table is implemented by everything that can be encoded as a complete
// section, starting at table_id.
type Table interface {
	// Encode returns the section, failing if its section_length would
	// exceed max.
	Encode(max int) ([]byte, error)
}

// SpecificData is the table specific body of a long-form section.
type SpecificData interface {
	Bytes() ([]byte, error)
}

// PSI is a long-form section, i.e. one with the section syntax indicator
// set, a syntax section and a trailing CRC32.
type PSI struct {
	TableID       byte           // Table ID.
	PrivateBit    bool           // Private bit (0 for PAT, PMT).
	SyntaxSection *SyntaxSection // Table syntax section.
}

// SyntaxSection holds the fields following section_length in a long-form
// section.
type SyntaxSection struct {
	TableIDExt   uint16       // Table ID extension.
	Version      byte         // Version number.
	CurrentNext  bool         // Current/next indicator.
	Section      byte         // Section number.
	LastSection  byte         // Last section number.
	SpecificData SpecificData // PAT, PMT, SDT or NIT body.
}

// Bytes encodes the section with the standard length limit.
func (p *PSI) Bytes() ([]byte, error) {
	return p.Encode(MaxSectionLen)
}

// Encode encodes the section with its CRC32, checking its section_length
// against max.
func (p *PSI) Encode(max int) ([]byte, error) {
	s := p.SyntaxSection
	if s == nil || s.SpecificData == nil {
		return nil, errors.New("no syntax section")
	}
	if s.Version > maxVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, s.Version)
	}
	body, err := s.SpecificData.Bytes()
	if err != nil {
		return nil, fmt.Errorf("could not encode table %#x: %w", p.TableID, err)
	}
	l := syntaxLen + len(body) + crcSize
	if l > max {
		return nil, fmt.Errorf("%w: table %#x section length %d, limit %d", ErrSectionTooLong, p.TableID, l, max)
	}

	w := bits.NewWriter()
	b := bits.NewBatch(w)
	b.WriteBits(8, uint32(p.TableID))
	b.WriteBit(true)
	b.WriteBit(p.PrivateBit)
	b.WriteBits(2, 0x3)
	b.WriteBits(12, uint32(l))
	b.WriteBits(16, uint32(s.TableIDExt))
	b.WriteBits(2, 0x3)
	b.WriteBits(5, uint32(s.Version))
	b.WriteBit(s.CurrentNext)
	b.WriteBits(8, uint32(s.Section))
	b.WriteBits(8, uint32(s.LastSection))
	b.WriteBytes(body)
	if b.Err() != nil {
		return nil, b.Err()
	}
	return AddCRC(w.Bytes()), nil
}

// NewPAT returns a single section PAT for the transport stream tsid.
func NewPAT(tsid uint16, version byte, programs []Program) *PSI {
	return &PSI{
		TableID: PATTableID,
		SyntaxSection: &SyntaxSection{
			TableIDExt:   tsid,
			Version:      version,
			CurrentNext:  true,
			SpecificData: &PAT{Programs: programs},
		},
	}
}

// NewPMT returns a single section PMT for the given program.
func NewPMT(program uint16, version byte, pmt *PMT) *PSI {
	return &PSI{
		TableID: PMTTableID,
		SyntaxSection: &SyntaxSection{
			TableIDExt:   program,
			Version:      version,
			CurrentNext:  true,
			SpecificData: pmt,
		},
	}
}

// Program is a PAT entry. Program number 0 maps the network PID.
type Program struct {
	Number uint16 // Program number.
	PID    uint16 // Program map PID, or network PID for program 0.
}

// PAT is a program association table, implements SpecificData.
type PAT struct {
	Programs []Program
}

// Bytes outputs a byte slice representation of the PAT.
func (p *PAT) Bytes() ([]byte, error) {
	w := bits.NewWriter()
	b := bits.NewBatch(w)
	for _, prog := range p.Programs {
		b.WriteBits(16, uint32(prog.Number))
		b.WriteBits(3, 0x7)
		b.WriteBits(13, uint32(prog.PID))
	}
	return w.Bytes(), b.Err()
}

// PMT is a program map table, implements SpecificData.
type PMT struct {
	PCRPID      uint16             // Program clock reference PID.
	Descriptors []Descriptor       // Program descriptors.
	Streams     []ElementaryStream // Elementary streams.
}

// ElementaryStream is a PMT elementary stream entry.
type ElementaryStream struct {
	StreamType  byte         // Stream type.
	PID         uint16       // Elementary PID.
	Descriptors []Descriptor // Elementary stream descriptors.
}

// Bytes outputs a byte slice representation of the PMT.
func (p *PMT) Bytes() ([]byte, error) {
	w := bits.NewWriter()
	b := bits.NewBatch(w)
	b.WriteBits(3, 0x7)
	b.WriteBits(13, uint32(p.PCRPID))
	writeDescriptorLoop(b, p.Descriptors, 10)
	for _, s := range p.Streams {
		b.WriteBits(8, uint32(s.StreamType))
		b.WriteBits(3, 0x7)
		b.WriteBits(13, uint32(s.PID))
		writeDescriptorLoop(b, s.Descriptors, 10)
	}
	return w.Bytes(), b.Err()
}

// writeDescriptorLoop writes reserved bits, a 12 bit loop length and the
// descriptors. The length must fit in n bits, the remaining high bits of the
// 12 bit field being written as zero.
func writeDescriptorLoop(b *bits.Batch, ds []Descriptor, n int) {
	loop, err := Descriptors(ds)
	if err == nil && len(loop) >= 1<<uint(n) {
		err = fmt.Errorf("%w: %d bytes", ErrLoopTooLong, len(loop))
	}
	if err != nil {
		b.Fail(err)
		return
	}
	b.WriteBits(4, 0xf)
	b.WriteBits(12, uint32(len(loop)))
	b.WriteBytes(loop)
}
