/*
NAME
  demux.go

DESCRIPTION
  demux.go provides Extract, which recovers the PES units, timestamps and
  program metadata of every elementary stream of an MPEG-TS clip.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mts

import (
	"errors"
	"fmt"

	"github.com/Comcast/gots/v2/pes"

	mtspes "github.com/ausocean/tsmux/container/mts/pes"
)

// Unit is a PES packet recovered from a clip.
type Unit struct {
	PID          uint16
	StreamID     uint8
	PTS          uint64
	DTS          uint64 // Equal to PTS when the packet carries no DTS.
	RandomAccess bool
	Data         []byte
	Meta         map[string]string // Metadata of the unit's program, if any.
}

// Clip is the sequence of units of a clip, in the order they started.
type Clip struct {
	units []Unit
}

// Units returns the units of c.
func (c *Clip) Units() []Unit { return c.units }

// ForPID returns the units of c carried on pid.
func (c *Clip) ForPID(pid uint16) *Clip {
	var sub Clip
	for _, u := range c.units {
		if u.PID == pid {
			sub.units = append(sub.units, u)
		}
	}
	return &sub
}

// Bytes returns the concatenated data of the units of c.
func (c *Clip) Bytes() []byte {
	var b []byte
	for _, u := range c.units {
		b = append(b, u.Data...)
	}
	return b
}

var errClipSize = errors.New("MTS clip is not of valid size")

// Extract extracts the PES units of every stream described by the PAT and
// PMTs of the MPEG-TS clip p. Packets before the tables describing them are
// ignored. The clip must contain only complete packets. The resultant data
// is a copy of the original.
func Extract(p []byte) (*Clip, error) {
	if len(p)%PacketSize != 0 {
		return nil, errClipSize
	}

	var (
		clip  = &Clip{}
		pmts  = map[uint16]bool{}              // PMT PIDs.
		metas = map[uint16]map[string]string{} // Metadata by PMT PID.
		owner = map[uint16]uint16{}            // PMT PID by stream PID.
		open  = map[uint16]int{}               // Index of the unit being received by PID.
	)

	for i := 0; i < len(p); i += PacketSize {
		pkt := p[i : i+PacketSize]
		pid, err := PID(pkt)
		if err != nil {
			return nil, err
		}

		pusi := pkt[1]&0x40 != 0
		switch {
		case pid == PatPid && !pusi, pmts[pid] && !pusi:
			continue
		case pid == PatPid:
			progs, err := Programs(pkt)
			if err != nil {
				return nil, fmt.Errorf("could not parse PAT: %w", err)
			}
			for n, pmt := range progs {
				if n != 0 {
					pmts[pmt] = true
				}
			}
			continue
		case pmts[pid]:
			streams, err := Streams(pkt)
			if err != nil {
				return nil, fmt.Errorf("could not parse PMT: %w", err)
			}
			for _, s := range streams {
				owner[uint16(s.ElementaryPid())] = pid
			}
			m, err := metaFromPMT(pkt)
			if err == nil {
				metas[pid] = m
			}
			continue
		}

		pmt, ok := owner[pid]
		if !ok {
			continue
		}
		payload, err := Payload(pkt)
		if errors.Is(err, ErrNoPayload) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("could not extract payload: %w", err)
		}

		if !pusi {
			if j, ok := open[pid]; ok {
				clip.units[j].Data = append(clip.units[j].Data, payload...)
			}
			continue
		}

		hdr, err := pes.NewPESHeader(payload)
		if err != nil {
			return nil, fmt.Errorf("could not parse PES: %w", err)
		}
		u := Unit{
			PID:          pid,
			StreamID:     hdr.StreamId(),
			PTS:          hdr.PTS(),
			RandomAccess: pkt[3]&(HasAdaptationField<<4) != 0 && pkt[4] != 0 && pkt[5]&RandomAccessIndicatorMask != 0,
			Data:         append([]byte(nil), hdr.Data()...),
			Meta:         metas[pmt],
		}
		u.DTS = u.PTS
		if len(payload) >= 19 && payload[7]>>6 == mtspes.HasPTSDTS {
			u.DTS = mtspes.Timestamp(payload[14:19])
		}
		open[pid] = len(clip.units)
		clip.units = append(clip.units, u)
	}
	return clip, nil
}

// Errors used in TrimToPTSRange.
var (
	errPTSLowerBound = errors.New("PTS 'from' cannot be found")
	errPTSUpperBound = errors.New("PTS 'to' cannot be found")
	errPTSRange      = errors.New("PTS interval invalid")
)

// TrimToPTSRange returns the sub Clip in a PTS range defined by from and to.
// The first unit of the new Clip is the one whose PTS is from, or the one
// in which from lies. The last is the one before the unit whose PTS is to,
// or in which to lies. Units must be in PTS order, so c should hold a
// single PID.
func (c *Clip) TrimToPTSRange(from, to uint64) (*Clip, error) {
	if from >= to {
		return nil, errPTSRange
	}
	start := -1
	for i := 0; i < len(c.units)-1; i++ {
		if from < c.units[i+1].PTS {
			start = i
			break
		}
	}
	if start == -1 {
		return nil, errPTSLowerBound
	}
	for end := start + 1; end < len(c.units); end++ {
		if to <= c.units[end].PTS {
			return &Clip{units: c.units[start:end]}, nil
		}
	}
	return nil, errPTSUpperBound
}

// SegmentForMeta segments sequences of units within c possessing meta
// described by key and val and returns them.
func (c *Clip) SegmentForMeta(key, val string) []Clip {
	var (
		segmenting bool
		res        []Clip
		start      int
	)
	for i, u := range c.units {
		match := u.Meta != nil && u.Meta[key] == val
		switch {
		case match && !segmenting:
			start = i
			segmenting = true
		case !match && segmenting:
			res = append(res, Clip{units: c.units[start:i]})
			segmenting = false
		}
	}
	if segmenting {
		res = append(res, Clip{units: c.units[start:]})
	}
	return res
}
