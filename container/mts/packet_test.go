/*
NAME
  packet_test.go

DESCRIPTION
  packet_test.go contains testing for functionality found in packet.go and
  checker.go.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mts

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Comcast/gots/v2/packet"
)

func TestPacketBytes(t *testing.T) {
	full := bytes.Repeat([]byte{0xaa}, PayloadSize)
	short := bytes.Repeat([]byte{0xbb}, PayloadSize-1)
	shorter := bytes.Repeat([]byte{0xcc}, 100)

	tests := []struct {
		name string
		pkt  Packet
		want []byte
	}{
		{
			name: "full payload",
			pkt:  Packet{PUSI: true, PID: 0x100, CC: 3, Payload: full},
			want: append([]byte{0x47, 0x41, 0x00, 0x13}, full...),
		},
		{
			name: "one byte short",
			pkt:  Packet{PID: 0x100, CC: 4, Payload: short},
			want: append([]byte{0x47, 0x01, 0x00, 0x34, 0x00}, short...),
		},
		{
			name: "stuffed",
			pkt:  Packet{PID: 0x1fff, Priority: true, CC: 15, Payload: shorter},
			want: join([]byte{0x47, 0x3f, 0xff, 0x3f, 83, 0x00}, bytes.Repeat([]byte{0xff}, 82), shorter),
		},
		{
			name: "random access",
			pkt:  Packet{PID: 0x101, RAI: true, CC: 1, Payload: shorter},
			want: join([]byte{0x47, 0x01, 0x01, 0x31, 83, 0x40}, bytes.Repeat([]byte{0xff}, 82), shorter),
		},
	}

	for _, test := range tests {
		got := test.pkt.Bytes(nil)
		if !bytes.Equal(got, test.want) {
			t.Errorf("did not get expected result for %s.\n Got: %x\n Want: %x\n", test.name, got, test.want)
		}
	}
}

func join(b ...[]byte) []byte { return bytes.Join(b, nil) }

func TestPacketCapacity(t *testing.T) {
	tests := []struct {
		pkt  Packet
		want int
	}{
		{pkt: Packet{}, want: 184},
		{pkt: Packet{RAI: true}, want: 182},
		{pkt: Packet{DI: true, RAI: true}, want: 182},
		{pkt: Packet{PCRF: true}, want: 176},
		{pkt: Packet{RAI: true, PCRF: true}, want: 176},
	}
	for i, test := range tests {
		got := test.pkt.Capacity()
		if got != test.want {
			t.Errorf("did not get expected result for test %d.\n Got: %d\n Want: %d\n", i, got, test.want)
		}
	}
}

func TestPCR(t *testing.T) {
	for _, pcr := range []uint64{0, 1, 299, 300, 27000000, 27000000*3600 + 123} {
		p := Packet{PID: 0x100, PCRF: true, PCR: pcr}
		b := p.Bytes(nil)
		if b[3]&0x30 != HasAdaptationField<<4 {
			t.Errorf("unexpected adaptation field control for PCR %d: %#x", pcr, b[3])
		}
		if b[4] != PayloadSize-1 {
			t.Errorf("unexpected adaptation field length for PCR %d: %d", pcr, b[4])
		}
		got, ok := PCR(b)
		if !ok {
			t.Fatalf("did not find PCR %d", pcr)
		}
		if got != pcr {
			t.Errorf("did not get expected result.\n Got: %d\n Want: %d\n", got, pcr)
		}
	}

	_, ok := PCR((&Packet{PID: 0x100, RAI: true, Payload: []byte{1, 2, 3}}).Bytes(nil))
	if ok {
		t.Errorf("found PCR in packet without one")
	}
}

// TestPacketGots checks that packets are understood by an independent parser.
func TestPacketGots(t *testing.T) {
	p := Packet{PUSI: true, PID: 0x123, CC: 9, RAI: true, Payload: []byte{0, 0, 1, 0xe0}}
	var pkt packet.Packet
	copy(pkt[:], p.Bytes(nil))
	if pkt.PID() != 0x123 {
		t.Errorf("unexpected PID: %#x", pkt.PID())
	}
	if pkt.ContinuityCounter() != 9 {
		t.Errorf("unexpected CC: %d", pkt.ContinuityCounter())
	}
	if !pkt.PayloadUnitStartIndicator() {
		t.Errorf("expected PUSI")
	}
	if !packet.ContainsAdaptationField(&pkt) {
		t.Errorf("expected adaptation field")
	}
	got, err := Payload(pkt[:])
	if err != nil {
		t.Fatalf("could not get payload: %v", err)
	}
	if !bytes.Equal(got, p.Payload) {
		t.Errorf("did not get expected result.\n Got: %x\n Want: %x\n", got, p.Payload)
	}
}

func TestContinuityChecker(t *testing.T) {
	pl := []byte{1}
	tests := []struct {
		name string
		pkts []Packet
		err  error
	}{
		{
			name: "sequence",
			pkts: []Packet{{PID: 0x100, CC: 14, Payload: pl}, {PID: 0x100, CC: 15, Payload: pl}, {PID: 0x100, CC: 0, Payload: pl}},
		},
		{
			name: "adaptation only repeats",
			pkts: []Packet{{PID: 0x100, CC: 2, Payload: pl}, {PID: 0x100, CC: 2, PCRF: true}, {PID: 0x100, CC: 3, Payload: pl}},
		},
		{
			name: "first adaptation only",
			pkts: []Packet{{PID: 0x100, CC: 15, PCRF: true}, {PID: 0x100, CC: 0, Payload: pl}},
		},
		{
			name: "independent PIDs",
			pkts: []Packet{{PID: 0x100, CC: 2, Payload: pl}, {PID: 0x101, CC: 7, Payload: pl}, {PID: 0x100, CC: 3, Payload: pl}},
		},
		{
			name: "null ignored",
			pkts: []Packet{{PID: NullPid, CC: 2, Payload: pl}, {PID: NullPid, CC: 2, Payload: pl}},
		},
		{
			name: "discontinuity flagged",
			pkts: []Packet{{PID: 0x100, CC: 2, Payload: pl}, {PID: 0x100, CC: 9, DI: true, Payload: pl}},
		},
		{
			name: "skip",
			pkts: []Packet{{PID: 0x100, CC: 2, Payload: pl}, {PID: 0x100, CC: 4, Payload: pl}},
			err:  ErrDiscontinuity,
		},
		{
			name: "repeat with payload",
			pkts: []Packet{{PID: 0x100, CC: 2, Payload: pl}, {PID: 0x100, CC: 2, Payload: pl}},
			err:  ErrDiscontinuity,
		},
		{
			name: "adaptation only advances",
			pkts: []Packet{{PID: 0x100, CC: 2, Payload: pl}, {PID: 0x100, CC: 3, PCRF: true}},
			err:  ErrDiscontinuity,
		},
	}

	for _, test := range tests {
		var d []byte
		for _, p := range test.pkts {
			d = append(d, p.Bytes(nil)...)
		}
		err := NewContinuityChecker().CheckAll(d)
		if !errors.Is(err, test.err) {
			t.Errorf("did not get expected error for %s.\n Got: %v\n Want: %v\n", test.name, err, test.err)
		}
	}
}
