/*
NAME
  psi_test.go

DESCRIPTION
  psi_test.go provides testing for section encoding and framing.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package psi

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

// Std PSI in bytes form, as produced by common muxers for a single program
// with an H.264 stream on PID 0x100.
var (
	standardPatBytes = []byte{
		0x00,       // table id
		0xb0, 0x0d, // section syntax indicator:1|private bit:1|reserved:2|section length:12
		0x00, 0x01, // table id extension
		0xc1,       // reserved bits:2|version:5|use now:1
		0x00,       // section number
		0x00,       // last section number
		0x00, 0x01, // program number
		0xf0, 0x00, // reserved:3|program map PID:13
		0x2a, 0xb1, 0x04, 0xb2, // CRC
	}
	standardPmtBytes = []byte{
		0x02,       // table id
		0xb0, 0x12, // section syntax indicator:1|private bit:1|reserved:2|section length:12
		0x00, 0x01, // table id extension
		0xc1,       // reserved bits:2|version:5|use now:1
		0x00,       // section number
		0x00,       // last section number
		0xe1, 0x00, // reserved:3|PCR PID:13
		0xf0, 0x00, // reserved:4|unused:2|program info length:10
		0x1b,       // stream type
		0xe1, 0x00, // reserved:3|elementary PID:13
		0xf0, 0x00, // reserved:4|unused:2|ES info length:10
		0x15, 0xbd, 0x4d, 0x56, // CRC
	}
)

func TestPATBytes(t *testing.T) {
	pat := NewPAT(1, 0, []Program{{Number: 1, PID: 0x1000}})
	got, err := pat.Bytes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, standardPatBytes) {
		t.Errorf("did not get expected result.\n Got: %x\n Want: %x\n", got, standardPatBytes)
	}
}

func TestPMTBytes(t *testing.T) {
	pmt := NewPMT(1, 0, &PMT{
		PCRPID:  0x100,
		Streams: []ElementaryStream{{StreamType: 0x1b, PID: 0x100}},
	})
	got, err := pmt.Bytes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, standardPmtBytes) {
		t.Errorf("did not get expected result.\n Got: %x\n Want: %x\n", got, standardPmtBytes)
	}
}

func TestPMTDescriptors(t *testing.T) {
	pmt := NewPMT(3, 7, &PMT{
		PCRPID:      0x101,
		Descriptors: []Descriptor{{Tag: MetadataTag, Data: []byte{0x00, 0x10, 0x00, 0x03, 'a', '=', 'b'}}},
		Streams: []ElementaryStream{
			{StreamType: 0x1b, PID: 0x101, Descriptors: []Descriptor{{Tag: AVCVideoTag, Data: []byte{0x64, 0x00, 0x28, 0x3f}}}},
			{StreamType: 0x0f, PID: 0x102},
		},
	})
	got, err := pmt.Bytes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !CheckCRC(got) {
		t.Error("CRC check failed")
	}
	if l := SectionLen(got); l != len(got)-3 {
		t.Errorf("section length %d does not match encoded size %d", l, len(got)-3)
	}
	if v := (got[5] >> 1) & 0x1f; v != 7 {
		t.Errorf("unexpected version: %d", v)
	}
	// Program info length follows the PCR PID.
	if pil := int(got[10]&0x03)<<8 | int(got[11]); pil != 9 {
		t.Errorf("unexpected program info length: %d", pil)
	}
}

func TestVersionRange(t *testing.T) {
	pat := NewPAT(1, 32, []Program{{Number: 1, PID: 0x1000}})
	if _, err := pat.Bytes(); !errors.Is(err, ErrVersion) {
		t.Errorf("expected ErrVersion, got %v", err)
	}
}

func TestSectionTooLong(t *testing.T) {
	var streams []ElementaryStream
	for i := 0; i < 40; i++ {
		streams = append(streams, ElementaryStream{StreamType: 0x06, PID: uint16(0x100 + i)})
	}
	pmt := NewPMT(1, 0, &PMT{PCRPID: 0x100, Streams: streams})

	// 40 streams of 5 bytes fit a normal section but not a legacy one.
	if _, err := pmt.Encode(MaxSectionLen); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := pmt.Encode(LegacySectionLen); !errors.Is(err, ErrSectionTooLong) {
		t.Errorf("expected ErrSectionTooLong, got %v", err)
	}

	for i := 0; i < 200; i++ {
		streams = append(streams, ElementaryStream{StreamType: 0x06, PID: uint16(0x200 + i)})
	}
	pmt = NewPMT(1, 0, &PMT{PCRPID: 0x100, Streams: streams})
	if _, err := pmt.Bytes(); !errors.Is(err, ErrSectionTooLong) {
		t.Errorf("expected ErrSectionTooLong, got %v", err)
	}
}

func TestInvalidPID(t *testing.T) {
	pat := NewPAT(1, 0, []Program{{Number: 1, PID: 0x2000}})
	if _, err := pat.Bytes(); err == nil {
		t.Error("expected error for 14 bit PID")
	}
}

func TestSDT(t *testing.T) {
	svc, err := (&ServiceDescriptor{Type: ServiceDigitalTV, Provider: "AusOcean", Name: "Reef"}).Encode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sdt := NewSDT(0x10, 2, &SDT{
		OriginalNetworkID: 0xff01,
		Services: []Service{{
			ServiceID:     1,
			RunningStatus: RunningRunning,
			Descriptors:   []Descriptor{svc},
		}},
	})
	got, err := sdt.Bytes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != SDTTableID {
		t.Errorf("unexpected table id: %#x", got[0])
	}
	if got[1]&0xc0 != 0xc0 {
		t.Errorf("syntax indicator and private bit not set: %#x", got[1])
	}
	if !CheckCRC(got) {
		t.Error("CRC check failed")
	}
	// Header (3) + syntax (5) + onid (2) + reserved (1) + service (5) +
	// descriptor (2+1+1+8+1+4) + CRC (4).
	if len(got) != 3+5+3+5+17+4 {
		t.Errorf("unexpected section size: %d", len(got))
	}
}

func TestNIT(t *testing.T) {
	name, err := (&NetworkName{Name: "ocean"}).Encode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list, err := (&ServiceList{Services: []ServiceListEntry{{ServiceID: 1, Type: ServiceDigitalTV}}}).Encode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nit := NewNIT(0x3001, 0, &NIT{
		Descriptors: []Descriptor{name},
		TransportStreams: []TransportStream{
			{TSID: 1, OriginalNetworkID: 0x3001, Descriptors: []Descriptor{list}},
		},
	})
	got, err := nit.Bytes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !CheckCRC(got) {
		t.Error("CRC check failed")
	}
	want := []byte{
		0xf0, 0x07, NetworkNameTag, 0x05, 'o', 'c', 'e', 'a', 'n',
		0xf0, 0x0b, 0x00, 0x01, 0x30, 0x01, 0xf0, 0x05, ServiceListTag, 0x03, 0x00, 0x01, ServiceDigitalTV,
	}
	if body := got[8 : len(got)-4]; !bytes.Equal(body, want) {
		t.Errorf("did not get expected result.\n Got: %x\n Want: %x\n", body, want)
	}
}

func TestTDT(t *testing.T) {
	tdt := &TDT{UTC: time.Date(1993, 10, 13, 12, 45, 0, 0, time.UTC)}
	got, err := tdt.Encode(MaxSectionLen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{TDTTableID, 0x70, 0x05, 0xc0, 0x79, 0x12, 0x45, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("did not get expected result.\n Got: %x\n Want: %x\n", got, want)
	}
}

func TestTOT(t *testing.T) {
	lto, err := (&LocalTimeOffset{Regions: []TimeOffsetRegion{{
		Country:    "AUS",
		RegionID:   2,
		Offset:     10*time.Hour + 30*time.Minute,
		ChangeTime: time.Date(2024, 10, 6, 16, 0, 0, 0, time.UTC),
		NextOffset: 11 * time.Hour,
	}}}).Encode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lto.Data) != 13 {
		t.Errorf("unexpected local time offset length: %d", len(lto.Data))
	}
	if !bytes.Equal(lto.Data[4:6], []byte{0x10, 0x30}) {
		t.Errorf("unexpected BCD offset: %x", lto.Data[4:6])
	}
	if lto.Data[3] != 0x0a {
		t.Errorf("unexpected region byte: %#x", lto.Data[3])
	}

	tot := &TOT{UTC: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Descriptors: []Descriptor{lto}}
	got, err := tot.Encode(MaxSectionLen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != TOTTableID || got[1]&0x80 != 0 {
		t.Errorf("unexpected header: %x", got[:3])
	}
	if SectionLen(got) != len(got)-3 {
		t.Errorf("section length %d does not match encoded size %d", SectionLen(got), len(got)-3)
	}
	if !CheckCRC(got) {
		t.Error("CRC check failed")
	}
}

func TestUTC(t *testing.T) {
	times := []time.Time{
		time.Date(1993, 10, 13, 12, 45, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC),
		time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, want := range times {
		b, err := EncodeUTC(want)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := DecodeUTC(b); !got.Equal(want) {
			t.Errorf("did not get expected result.\n Got: %v\n Want: %v\n", got, want)
		}
	}
	if _, err := EncodeUTC(time.Date(1800, 1, 1, 0, 0, 0, 0, time.UTC)); !errors.Is(err, ErrFieldRange) {
		t.Errorf("expected ErrFieldRange, got %v", err)
	}
}

func TestCRC(t *testing.T) {
	if got := CRC32(standardPatBytes[:len(standardPatBytes)-4]); got != 0x2ab104b2 {
		t.Errorf("unexpected CRC: %#x", got)
	}
	b := append([]byte(nil), standardPmtBytes...)
	if !CheckCRC(b) {
		t.Error("CRC check failed for standard PMT")
	}
	b[5] ^= 0x02
	if CheckCRC(b) {
		t.Error("CRC check passed for corrupted PMT")
	}
	UpdateCRC(b)
	if !CheckCRC(b) {
		t.Error("CRC check failed after update")
	}
}

func TestAddPadding(t *testing.T) {
	got := AddPadding(AddPointer(standardPatBytes))
	if len(got) != PacketSize {
		t.Fatalf("unexpected padded length: %d", len(got))
	}
	if got[0] != 0 || !bytes.Equal(got[1:17], standardPatBytes) {
		t.Errorf("section not preserved: %x", got[:17])
	}
	for i, b := range got[17:] {
		if b != 0xff {
			t.Fatalf("unexpected stuffing byte %#x at %d", b, i+17)
		}
	}
}
