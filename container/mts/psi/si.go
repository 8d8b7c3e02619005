/*
NAME
  si.go

DESCRIPTION
  si.go provides encoding of the DVB service information tables: SDT, NIT,
  TDT and TOT.

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

// Running status values.
const (
	RunningUndefined  = 0
	RunningNotRunning = 1
	RunningRunning    = 4
)

// NewSDT returns a single section SDT for the actual transport stream tsid.
func NewSDT(tsid uint16, version byte, sdt *SDT) *PSI {
	return &PSI{
		TableID:    SDTTableID,
		PrivateBit: true,
		SyntaxSection: &SyntaxSection{
			TableIDExt:   tsid,
			Version:      version,
			CurrentNext:  true,
			SpecificData: sdt,
		},
	}
}

// SDT is a service description table, implements SpecificData.
type SDT struct {
	OriginalNetworkID uint16
	Services          []Service
}

// Service is an SDT service entry.
type Service struct {
	ServiceID           uint16
	EITSchedule         bool
	EITPresentFollowing bool
	RunningStatus       uint8 // 3 bits.
	FreeCAMode          bool
	Descriptors         []Descriptor
}

// Bytes outputs a byte slice representation of the SDT.
func (s *SDT) Bytes() ([]byte, error) {
	w := bits.NewWriter()
	b := bits.NewBatch(w)
	b.WriteBits(16, uint32(s.OriginalNetworkID))
	b.WriteBits(8, 0xff)
	for _, svc := range s.Services {
		b.WriteBits(16, uint32(svc.ServiceID))
		b.WriteBits(6, 0x3f)
		b.WriteBit(svc.EITSchedule)
		b.WriteBit(svc.EITPresentFollowing)
		b.WriteBits(3, uint32(svc.RunningStatus))
		b.WriteBit(svc.FreeCAMode)
		loop, err := Descriptors(svc.Descriptors)
		if err != nil {
			return nil, err
		}
		b.WriteBits(12, uint32(len(loop)))
		b.WriteBytes(loop)
	}
	return w.Bytes(), b.Err()
}

// NewNIT returns a single section NIT for the actual network.
func NewNIT(networkID uint16, version byte, nit *NIT) *PSI {
	return &PSI{
		TableID:    NITTableID,
		PrivateBit: true,
		SyntaxSection: &SyntaxSection{
			TableIDExt:   networkID,
			Version:      version,
			CurrentNext:  true,
			SpecificData: nit,
		},
	}
}

// NIT is a network information table, implements SpecificData.
type NIT struct {
	Descriptors      []Descriptor
	TransportStreams []TransportStream
}

// TransportStream is an NIT transport stream entry.
type TransportStream struct {
	TSID              uint16
	OriginalNetworkID uint16
	Descriptors       []Descriptor
}

// Bytes outputs a byte slice representation of the NIT.
func (n *NIT) Bytes() ([]byte, error) {
	w := bits.NewWriter()
	b := bits.NewBatch(w)
	writeDescriptorLoop(b, n.Descriptors, 12)

	entries := bits.NewWriter()
	eb := bits.NewBatch(entries)
	for _, ts := range n.TransportStreams {
		eb.WriteBits(16, uint32(ts.TSID))
		eb.WriteBits(16, uint32(ts.OriginalNetworkID))
		writeDescriptorLoop(eb, ts.Descriptors, 12)
	}
	if eb.Err() != nil {
		return nil, eb.Err()
	}
	b.WriteBits(4, 0xf)
	b.WriteBits(12, uint32(len(entries.Bytes())))
	b.WriteBytes(entries.Bytes())
	return w.Bytes(), b.Err()
}

// TDT is the time and date table. It is a short section without a CRC.
type TDT struct {
	UTC time.Time
}

// Encode implements Table.
func (t *TDT) Encode(max int) ([]byte, error) {
	const l = 5
	if l > max {
		return nil, fmt.Errorf("%w: TDT section length %d, limit %d", ErrSectionTooLong, l, max)
	}
	utc, err := EncodeUTC(t.UTC)
	if err != nil {
		return nil, err
	}
	return append([]byte{TDTTableID, 0x70, l}, utc[:]...), nil
}

// TOT is the time offset table. It is a short section carrying a CRC.
type TOT struct {
	UTC         time.Time
	Descriptors []Descriptor
}

// Encode implements Table.
func (t *TOT) Encode(max int) ([]byte, error) {
	utc, err := EncodeUTC(t.UTC)
	if err != nil {
		return nil, err
	}
	loop, err := Descriptors(t.Descriptors)
	if err != nil {
		return nil, err
	}
	l := len(utc) + 2 + len(loop) + crcSize
	if l > max {
		return nil, fmt.Errorf("%w: TOT section length %d, limit %d", ErrSectionTooLong, l, max)
	}
	w := bits.NewWriter()
	b := bits.NewBatch(w)
	b.WriteBits(8, TOTTableID)
	b.WriteBit(false)
	b.WriteBit(true)
	b.WriteBits(2, 0x3)
	b.WriteBits(12, uint32(l))
	b.WriteBytes(utc[:])
	b.WriteBits(4, 0xf)
	b.WriteBits(12, uint32(len(loop)))
	b.WriteBytes(loop)
	if b.Err() != nil {
		return nil, b.Err()
	}
	return AddCRC(w.Bytes()), nil
}
