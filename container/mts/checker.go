/*
NAME
  checker.go

DESCRIPTION
  checker.go provides ContinuityChecker, which verifies the continuity
  counters of an MPEG-TS.

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

	"github.com/Comcast/gots/v2/packet"
)

// ErrDiscontinuity is returned by ContinuityChecker for an unexpected
// continuity counter.
var ErrDiscontinuity = errors.New("continuity counter discontinuity")

// ContinuityChecker tracks the expected continuity counter of each PID of
// a stream of packets. Packets flagged with the discontinuity indicator
// reset the expectation of their PID.
type ContinuityChecker struct {
	expCC map[int]int
}

// NewContinuityChecker returns a pointer to a new ContinuityChecker.
func NewContinuityChecker() *ContinuityChecker {
	return &ContinuityChecker{expCC: make(map[int]int)}
}

// Check checks the continuity counter of the packet d. Packets carrying a
// payload must increment the counter; packets without one must repeat it.
func (c *ContinuityChecker) Check(d []byte) error {
	if len(d) < PacketSize {
		return fmt.Errorf("short packet: %d bytes", len(d))
	}
	var pkt packet.Packet
	copy(pkt[:], d[:PacketSize])
	pid := pkt.PID()
	if pid == NullPid {
		return nil
	}
	cc := pkt.ContinuityCounter()
	payload := d[3]&(HasPayload<<4) != 0

	var disc bool
	if packet.ContainsAdaptationField(&pkt) && d[4] != 0 {
		disc = d[5]&DiscontinuityIndicatorMask != 0
	}

	expect, ok := c.ExpectedCC(pid)
	c.expCC[pid] = (cc + 1) & 0xf
	if !ok || disc {
		return nil
	}
	want := expect
	if !payload {
		want = (expect - 1) & 0xf
	}
	if cc != want {
		return fmt.Errorf("%w: PID %d, got %d, want %d", ErrDiscontinuity, pid, cc, want)
	}
	return nil
}

// CheckAll checks every packet of d.
func (c *ContinuityChecker) CheckAll(d []byte) error {
	for i := 0; i+PacketSize <= len(d); i += PacketSize {
		err := c.Check(d[i : i+PacketSize])
		if err != nil {
			return fmt.Errorf("packet %d: %w", i/PacketSize, err)
		}
	}
	return nil
}

// ExpectedCC returns the counter expected of the next payload packet on
// pid, and false if no packet has been seen on pid.
func (c *ContinuityChecker) ExpectedCC(pid int) (int, bool) {
	cc, ok := c.expCC[pid]
	return cc, ok
}
