/*
NAME
  pes.go

DESCRIPTION
  pes.go provides encoding of packetized elementary stream packets.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pes provides encoding of packetized elementary stream (PES)
// packets as carried in MPEG-TS.
package pes

// MaxPesLen is the largest value of the PES_packet_length field.
const MaxPesLen = 0xffff

// PTS DTS indicator values.
const (
	NoTimestamps = 0x0
	HasPTS       = 0x2
	HasPTSDTS    = 0x3
)

// MaxTimestamp is the largest 33 bit PTS or DTS.
const MaxTimestamp = 1<<33 - 1

// Lengths of header parts.
const (
	prefixLen = 6 // Start code, stream ID and packet length.
	flagsLen  = 3 // Flag octets and header data length.
	tsLen     = 5
)

// Packet holds the fields of a PES packet header we write, and its data.
type Packet struct {
	StreamID  byte   // Type of stream.
	Priority  bool   // PES priority.
	DAI       bool   // Data alignment indicator.
	Copyright bool   // Copyright indicator.
	Original  bool   // Original or copy.
	PDI       byte   // PTS DTS indicator.
	PTS       uint64 // Presentation time stamp, 33 bits.
	DTS       uint64 // Decoding time stamp, 33 bits.
	Stuff     []byte // Stuffing bytes.
	Data      []byte // PES packet data.
}

// HeaderLen returns the number of bytes that precede the packet data.
func (p *Packet) HeaderLen() int {
	return prefixLen + flagsLen + p.dataHeaderLen()
}

func (p *Packet) dataHeaderLen() int {
	n := len(p.Stuff)
	switch p.PDI {
	case HasPTS:
		n += tsLen
	case HasPTSDTS:
		n += 2 * tsLen
	}
	return n
}

// Len returns the value of the PES_packet_length field. This is 0 when the
// packet is too long to be described, which is permitted only for video.
func (p *Packet) Len() int {
	l := flagsLen + p.dataHeaderLen() + len(p.Data)
	if l > MaxPesLen {
		return 0
	}
	return l
}

// Bytes returns the encoded packet, reusing buf if it has capacity.
func (p *Packet) Bytes(buf []byte) []byte {
	n := p.HeaderLen() + len(p.Data)
	if cap(buf) < n {
		buf = make([]byte, 0, n)
	}
	l := p.Len()
	buf = append(buf[:0],
		0x00, 0x00, 0x01,
		p.StreamID,
		byte(l>>8),
		byte(l),
		0x2<<6|asByte(p.Priority)<<3|asByte(p.DAI)<<2|asByte(p.Copyright)<<1|asByte(p.Original),
		p.PDI<<6,
		byte(p.dataHeaderLen()),
	)

	switch p.PDI {
	case HasPTS:
		buf = appendTimestamp(buf, HasPTS, p.PTS)
	case HasPTSDTS:
		buf = appendTimestamp(buf, HasPTSDTS, p.PTS)
		buf = appendTimestamp(buf, 0x1, p.DTS)
	}
	buf = append(buf, p.Stuff...)
	return append(buf, p.Data...)
}

// appendTimestamp appends a 33 bit timestamp with its 4 bit prefix and
// marker bits.
func appendTimestamp(buf []byte, prefix byte, ts uint64) []byte {
	ts &= MaxTimestamp
	return append(buf,
		prefix<<4|byte(ts>>29)&0x0e|1,
		byte(ts>>22),
		byte(ts>>14)&0xfe|1,
		byte(ts>>7),
		byte(ts<<1)&0xfe|1,
	)
}

// Timestamp decodes a timestamp written with its prefix and marker bits.
func Timestamp(b []byte) uint64 {
	return uint64(b[0]>>1&0x07)<<30 | uint64(b[1])<<22 | uint64(b[2]>>1)<<15 | uint64(b[3])<<7 | uint64(b[4]>>1)
}

func asByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
