/*
NAME
  frame.go

DESCRIPTION
  frame.go provides the input and output records of a multiplexing call.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mts

// NoPCR marks an output packet that carries no PCR.
const NoPCR = -1

// Frame is one access unit of an elementary stream.
type Frame struct {
	PID  uint16
	Data []byte // Borrowed for the duration of the call.

	PTS int64 // 90 kHz.
	DTS int64 // 90 kHz, equal to PTS when there is no reordering.

	// Decoder buffer arrival times in 27 MHz ticks. The frame may start to
	// enter the buffer at InitialArrival and must have entered it by
	// FinalArrival.
	InitialArrival int64
	FinalArrival   int64

	RandomAccess bool // Sets the random access indicator on the first packet.
	Priority     bool // Sets the transport priority bit.

	// Opaque is caller context. It is never read or retained.
	Opaque interface{}
}

// Output is the result of a multiplexing call. Data holds len(PCR) packets;
// PCR[i] is the PCR carried by packet i, or NoPCR, and Times[i] is its
// departure time in 27 MHz ticks.
type Output struct {
	Data  []byte
	PCR   []int64
	Times []int64
}

// Packets returns the number of packets in o.
func (o *Output) Packets() int { return len(o.PCR) }

func (o *Output) append(pkt []byte, pcr, t int64) {
	o.Data = append(o.Data, pkt...)
	o.PCR = append(o.PCR, pcr)
	o.Times = append(o.Times, t)
}
