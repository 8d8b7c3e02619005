/*
NAME
  packet.go - provides a data structure intended to encapsulate the properties
  of an MPEG-TS packet and also functions to allow manipulation of these packets.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package mts provides an MPEG transport stream (mts) multiplexer and
// related functions.
package mts

import (
	"fmt"

	gotspsi "github.com/Comcast/gots/v2/psi"
	"github.com/pkg/errors"

	"github.com/ausocean/tsmux/container/mts/meta"
	"github.com/ausocean/tsmux/container/mts/pes"
	"github.com/ausocean/tsmux/container/mts/psi"
)

const PacketSize = 188

// HeadSize is the size of an MPEG-TS packet header.
const HeadSize = 4

const syncByte = 0x47

// PayloadSize is the largest payload of a packet.
const PayloadSize = PacketSize - HeadSize

// Reserved program IDs.
const (
	PatPid  = 0x0000
	SdtPid  = 0x0011 // Also carries the BAT.
	TdtPid  = 0x0014 // Also carries the TOT.
	NullPid = 0x1fff

	// MinPID and MaxPID bound the PIDs available to programs.
	MinPID = 0x0010
	MaxPID = 0x1ffe
)

// Adaptation field control values.
const (
	HasPayload         = 0x1
	HasAdaptationField = 0x2
)

// Adaptation field layout.
const (
	AdaptationIdx              = 4    // Index to the adaptation field (index of AFL).
	AdaptationControlIdx       = 3    // Index to octet with adaptation field control.
	AdaptationControlMask      = 0x30 // Mask for the adaptation field control in octet 3.
	DiscontinuityIndicatorMask = 0x80
	RandomAccessIndicatorMask  = 0x40
	PCRFlagMask                = 0x10
	pcrLen                     = 6
)

/*
Packet encapsulates the fields of an MPEG-TS packet. Below is
the formatting of an MPEG-TS packet for reference!

============================================================================
| octet no | bit 0 | bit 1 | bit 2 | bit 3 | bit 4 | bit 5 | bit 6 | bit 7 |
============================================================================
| octet 0  | sync byte (0x47)                                              |
----------------------------------------------------------------------------
| octet 1  | TEI   | PUSI  | Prior | PID                                   |
----------------------------------------------------------------------------
| octet 2  | PID cont.                                                     |
----------------------------------------------------------------------------
| octet 3  | TSC           | AFC           | CC                            |
----------------------------------------------------------------------------
| octet 4  | AFL                                                           |
----------------------------------------------------------------------------
| octet 5  | DI    | RAI   | ESPI  | PCRF  | OPCRF | SPF   | TPDF  | AFEF  |
----------------------------------------------------------------------------
| optional | PCR (48 bits => 6 bytes)                                      |
----------------------------------------------------------------------------
| optional | Stuffing (variable length)                                    |
----------------------------------------------------------------------------
| optional | Payload (variable length)                                     |
----------------------------------------------------------------------------

The adaptation field control is derived when the packet is encoded: an
adaptation field is written whenever a flag is set or the payload is short
of PayloadSize, in which case it carries the stuffing.
*/
type Packet struct {
	TEI      bool   // Transport Error Indicator
	PUSI     bool   // Payload Unit Start Indicator
	Priority bool   // Transport priority indicator
	PID      uint16 // Packet identifier
	TSC      byte   // Transport Scrambling Control
	CC       byte   // Continuity Counter
	DI       bool   // Discontinuity indicator
	RAI      bool   // Random access indicator
	ESPI     bool   // Elementary stream priority indicator
	PCRF     bool   // PCR flag
	PCR      uint64 // Program clock reference, 27 MHz.
	Payload  []byte // Mpeg ts Payload
}

// flagsLen returns the length of the adaptation field after the AFL byte
// that the packet's flags require, or 0 if none are set.
func (p *Packet) flagsLen() int {
	if !p.DI && !p.RAI && !p.ESPI && !p.PCRF {
		return 0
	}
	return 1 + asInt(p.PCRF)*pcrLen
}

// Capacity returns the number of payload bytes the packet can carry with
// its current flags.
func (p *Packet) Capacity() int {
	n := p.flagsLen()
	if n == 0 {
		return PayloadSize
	}
	return PayloadSize - 1 - n
}

// FillPayload sets the packet payload to as much of data as fits and returns
// the number of bytes used. The payload aliases data.
func (p *Packet) FillPayload(data []byte) int {
	n := p.Capacity()
	if len(data) < n {
		n = len(data)
	}
	p.Payload = data[:n]
	return n
}

// Bytes interprets the fields of the ts packet instance and outputs a
// corresponding byte slice, reusing buf if it has capacity. A payload longer
// than Capacity is truncated.
func (p *Packet) Bytes(buf []byte) []byte {
	if cap(buf) < PacketSize {
		buf = make([]byte, PacketSize)
	}
	buf = buf[:PacketSize]

	payload := p.Payload
	if len(payload) > p.Capacity() {
		payload = payload[:p.Capacity()]
	}

	afc := byte(0)
	if len(payload) != 0 {
		afc |= HasPayload
	}
	fl := p.flagsLen()
	if fl != 0 || len(payload) < PayloadSize {
		afc |= HasAdaptationField
	}

	buf[0] = syncByte
	buf[1] = asByte(p.TEI)<<7 | asByte(p.PUSI)<<6 | asByte(p.Priority)<<5 | byte(p.PID>>8)&0x1f
	buf[2] = byte(p.PID)
	buf[3] = p.TSC<<6 | afc<<4 | p.CC&0xf

	i := HeadSize
	if afc&HasAdaptationField != 0 {
		afl := PayloadSize - len(payload) - 1
		buf[i] = byte(afl)
		i++
		if afl > 0 {
			buf[i] = asByte(p.DI)<<7 | asByte(p.RAI)<<6 | asByte(p.ESPI)<<5 | asByte(p.PCRF)<<4
			i++
			if p.PCRF {
				i += putPCR(buf[i:], p.PCR)
			}
			for ; i < PacketSize-len(payload); i++ {
				buf[i] = 0xff
			}
		}
	}
	copy(buf[i:], payload)
	return buf
}

// putPCR writes the 33 bit base and 9 bit extension of a 27 MHz PCR.
func putPCR(b []byte, pcr uint64) int {
	base := pcr / 300 & (1<<33 - 1)
	ext := pcr % 300
	b[0] = byte(base >> 25)
	b[1] = byte(base >> 17)
	b[2] = byte(base >> 9)
	b[3] = byte(base >> 1)
	b[4] = byte(base<<7) | 0x7e | byte(ext>>8)
	b[5] = byte(ext)
	return pcrLen
}

// PCR returns the 27 MHz PCR of the packet p, and false if it carries none.
func PCR(p []byte) (uint64, bool) {
	if len(p) < PacketSize || p[3]&(HasAdaptationField<<4) == 0 || p[4] < 1+pcrLen || p[5]&PCRFlagMask == 0 {
		return 0, false
	}
	b := p[6:]
	base := uint64(b[0])<<25 | uint64(b[1])<<17 | uint64(b[2])<<9 | uint64(b[3])<<1 | uint64(b[4]>>7)
	ext := uint64(b[4]&1)<<8 | uint64(b[5])
	return base*300 + ext, true
}

func asInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func asByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// Errors used by FindPid.
var (
	ErrInvalidLen = errors.New("MPEG-TS data not of valid length")
)

// FindPid will take a clip of MPEG-TS and try to find a packet with given PID - if one
// is found, then it is returned along with its index, otherwise nil, -1 and an error is returned.
func FindPid(d []byte, pid uint16) (pkt []byte, i int, err error) {
	if len(d) < PacketSize {
		return nil, -1, ErrInvalidLen
	}
	for i = 0; i+PacketSize <= len(d); i += PacketSize {
		p := (uint16(d[i+1]&0x1f) << 8) | uint16(d[i+2])
		if p == pid {
			pkt = d[i : i+PacketSize]
			return
		}
	}
	return nil, -1, fmt.Errorf("could not find packet with PID %d", pid)
}

// LastPid will take a clip of MPEG-TS and try to find a packet
// with given PID searching in reverse from the end of the clip. If
// one is found, then it is returned along with its index, otherwise
// nil, -1 and an error is returned.
func LastPid(d []byte, pid uint16) (pkt []byte, i int, err error) {
	if len(d) < PacketSize {
		return nil, -1, ErrInvalidLen
	}

	for i = len(d)/PacketSize*PacketSize - PacketSize; i >= 0; i -= PacketSize {
		p := (uint16(d[i+1]&0x1f) << 8) | uint16(d[i+2])
		if p == pid {
			pkt = d[i : i+PacketSize]
			return
		}
	}
	return nil, -1, fmt.Errorf("could not find packet with PID %d", pid)
}

// Error used by GetPTSRange.
var errNoPTS = errors.New("could not find PTS")

// GetPTSRange retreives the first and last PTS of an MPEGTS clip.
// If there is only one PTS, it is included twice in the pts return value.
func GetPTSRange(clip []byte, pid uint16) (pts [2]uint64, err error) {
	var _pts int64
	// Get the first PTS for the given PID.
	var i int
	for {
		if i >= len(clip) {
			return pts, errNoPTS
		}
		pkt, _i, err := FindPid(clip[i:], pid)
		if err != nil {
			return pts, errors.Wrap(err, fmt.Sprintf("could not find packet of PID: %d", pid))
		}
		_pts, err = GetPTS(pkt)
		if err == nil {
			i += _i
			break
		}
		i += _i + PacketSize
	}

	pts[0] = uint64(_pts)
	pts[1] = pts[0] // Until we have find a second PTS.

	// Get the last PTS searching in reverse from end of the clip.
	first := i
	i = len(clip)
	for {
		pkt, _i, err := LastPid(clip[:i], pid)
		if err != nil || _i <= first {
			return pts, nil
		}
		_pts, err = GetPTS(pkt)
		if err == nil {
			break
		}
		i = _i
	}

	pts[1] = uint64(_pts)

	return
}

var (
	errNoPesPayload     = errors.New("no PES payload")
	errNoPesPTS         = errors.New("no PES PTS")
	errInvalidPesHeader = errors.New("invalid PES header")
)

// GetPTS returns a PTS from a packet that has PES payload, or an error otherwise.
func GetPTS(pkt []byte) (pts int64, err error) {
	// Check the Payload Unit Start Indicator.
	if pkt[1]&0x040 == 0 {
		err = errNoPesPayload
		return
	}

	payload, err := Payload(pkt)
	if err != nil {
		return 0, err
	}
	if len(payload) < 14 {
		err = errInvalidPesHeader
		return
	}

	// Check the PTS DTS indicator.
	if payload[7]&0xc0 == 0 {
		err = errNoPesPTS
		return
	}

	pts = int64(pes.Timestamp(payload[9:14]))
	return
}

var errNoMeta = errors.New("PMT does not contain meta")

// ExtractMeta returns a map of metadata from the metadata descriptor of the
// first PMT on pmtPID found in the MPEG-TS clip d. d must contain a series
// of complete MPEG-TS packets.
func ExtractMeta(d []byte, pmtPID uint16) (map[string]string, error) {
	pmt, _, err := FindPid(d, pmtPID)
	if err != nil {
		return nil, err
	}
	return metaFromPMT(pmt)
}

// metaFromPMT returns metadata, if any, from a PMT packet.
func metaFromPMT(d []byte) (map[string]string, error) {
	payload, err := Payload(d)
	if err != nil {
		return nil, errors.Wrap(err, "cannot get packet payload")
	}
	if len(payload) < 1 || int(payload[0])+1 > len(payload) {
		return nil, errors.New("invalid pointer field")
	}
	section := payload[1+int(payload[0]):]

	// table_id to program_info_length.
	const infoIdx = 10
	if len(section) < infoIdx+2 || section[0] != psi.PMTTableID {
		return nil, errors.New("not a PMT section")
	}
	n := int(section[infoIdx]&0x0f)<<8 | int(section[infoIdx+1])
	if infoIdx+2+n > len(section) {
		return nil, errors.New("program info exceeds packet")
	}
	ds, err := psi.ParseDescriptors(section[infoIdx+2 : infoIdx+2+n])
	if err != nil {
		return nil, errors.Wrap(err, "cannot parse program descriptors")
	}
	desc, ok := psi.FindDescriptor(ds, psi.MetadataTag)
	if !ok {
		return nil, errNoMeta
	}
	return meta.GetAllAsMap(desc.Data)
}

// PID returns the packet identifier for the given packet.
func PID(p []byte) (uint16, error) {
	if len(p) < PacketSize {
		return 0, errors.New("packet length less than 188")
	}
	return uint16(p[1]&0x1f)<<8 | uint16(p[2]), nil
}

// Programs returns a map of program numbers and corresponding PMT PIDs for a
// given MPEG-TS PAT packet.
func Programs(p []byte) (map[uint16]uint16, error) {
	pat, err := gotspsi.NewPAT(p)
	if err != nil {
		return nil, err
	}
	// Convert to map[uint16]uint16.
	m := make(map[uint16]uint16)
	for k, v := range pat.ProgramMap() {
		m[uint16(k)] = uint16(v)
	}
	return m, nil
}

// Streams returns elementary streams defined in a given MPEG-TS PMT packet.
func Streams(p []byte) ([]gotspsi.PmtElementaryStream, error) {
	payload, err := Payload(p)
	if err != nil {
		return nil, errors.Wrap(err, "cannot get packet payload")
	}
	pmt, err := gotspsi.NewPMT(payload)
	if err != nil {
		return nil, err
	}
	return pmt.ElementaryStreams(), nil
}

// Errors used by Payload.
var ErrNoPayload = errors.New("no payload")

// Payload returns the payload of an MPEG-TS packet p.
// NB: this is not a copy of the payload in the interests of performance.
func Payload(p []byte) ([]byte, error) {
	if len(p) < PacketSize {
		return nil, ErrInvalidLen
	}
	c := (p[AdaptationControlIdx] & AdaptationControlMask) >> 4
	if c&HasPayload == 0 {
		return nil, ErrNoPayload
	}

	// Check if there is an adaptation field.
	off := HeadSize
	if c&HasAdaptationField != 0 {
		off += 1 + int(p[AdaptationIdx])
	}
	if off > PacketSize {
		return nil, ErrInvalidLen
	}
	return p[off:PacketSize], nil
}
