/*
NAME
  ac3_test.go

DESCRIPTION
  ac3_test.go provides testing for AC-3 lookups and syncframe parsing.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package ac3

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBitRateCode(t *testing.T) {
	tests := []struct {
		code    uint8
		want    uint8
		wantErr error
	}{
		{code: 0x00, want: 0x00},
		{code: 0x01, want: 0x00},
		{code: 0x0b, want: 0x05},
		{code: 0x1e, want: 0x0f},
		{code: 0x25, want: 0x12},
		{code: 0x26, wantErr: ErrFrameSizeCode},
		{code: 0x3f, wantErr: ErrFrameSizeCode},
	}
	for i, test := range tests {
		got, err := BitRateCode(test.code)
		if !errors.Is(err, test.wantErr) {
			t.Errorf("test %d: unexpected error: got %v, want %v", i, err, test.wantErr)
			continue
		}
		if err == nil && got != test.want {
			t.Errorf("test %d: did not get expected result.\n Got: %#x\n Want: %#x\n", i, got, test.want)
		}
	}
}

func TestTableShape(t *testing.T) {
	if len(frameSizes) != 38 {
		t.Fatalf("unexpected table length: %d", len(frameSizes))
	}
	for i, e := range frameSizes {
		if int(e.code) != i {
			t.Errorf("entry %d has code %#x", i, e.code)
		}
		if int(e.bitRate) != i/2 {
			t.Errorf("entry %d has bit rate code %#x", i, e.bitRate)
		}
	}
}

func TestBitRateCodeForRate(t *testing.T) {
	if _, err := BitRateCodeForRate(33); !errors.Is(err, ErrBitRate) {
		t.Errorf("expected ErrBitRate, got %v", err)
	}
	got, err := BitRateCodeForRate(640)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0x12 {
		t.Errorf("unexpected code: got %#x, want 0x12", got)
	}
}

func TestFrameSize(t *testing.T) {
	tests := []struct {
		fscod, code uint8
		want        int
	}{
		{Rate48k, 0x1e, 1792},
		{Rate32k, 0x00, 192},
		{Rate44k1, 0x00, 138},
		{Rate44k1, 0x01, 140},
		{Rate44k1, 0x25, 2788},
	}
	for i, test := range tests {
		got, err := FrameSize(test.fscod, test.code)
		if err != nil {
			t.Fatalf("test %d: unexpected error: %v", i, err)
		}
		if got != test.want {
			t.Errorf("test %d: did not get expected result.\n Got: %d\n Want: %d\n", i, got, test.want)
		}
	}
}

func TestParseSyncFrame(t *testing.T) {
	tests := []struct {
		frame   []byte
		want    *Info
		wantErr error
	}{
		{
			// 48 kHz, 448 kbit/s, bsid 8, 3/2 with LFE.
			frame: []byte{0x0b, 0x77, 0x00, 0x00, 0x1e, 0x40, 0xeb, 0x00},
			want: &Info{
				SampleRateCode: Rate48k,
				BSID:           8,
				BitRateCode:    0x0f,
				NumChannels:    7,
				FullSvc:        true,
				LangCod:        0xff,
				LangCod2:       0xff,
				LFE:            true,
				FrameSize:      1792,
			},
		},
		{
			// 44.1 kHz, 32 kbit/s padded, bsid 6, bsmod 2, 2/0 Dolby surround.
			frame: []byte{0x0b, 0x77, 0x00, 0x00, 0x41, 0x32, 0x50, 0x00},
			want: &Info{
				SampleRateCode: Rate44k1,
				BSID:           6,
				BitRateCode:    0x00,
				SurroundMode:   2,
				BSMod:          2,
				NumChannels:    2,
				FullSvc:        true,
				LangCod:        0xff,
				LangCod2:       0xff,
				FrameSize:      140,
			},
		},
		{
			frame:   []byte{0x0b, 0x78, 0x00, 0x00, 0x1e, 0x40, 0xeb, 0x00},
			wantErr: ErrSyncWord,
		},
		{
			frame:   []byte{0x0b, 0x77, 0x00, 0x00, 0x26, 0x40, 0xeb, 0x00},
			wantErr: ErrFrameSizeCode,
		},
		{
			frame:   []byte{0x0b, 0x77, 0x00, 0x00, 0xc0, 0x40, 0xeb, 0x00},
			wantErr: ErrSampleRate,
		},
		{
			frame:   []byte{0x0b, 0x77, 0x00},
			wantErr: ErrShortFrame,
		},
	}

	for i, test := range tests {
		got, err := ParseSyncFrame(test.frame)
		if !errors.Is(err, test.wantErr) {
			t.Errorf("test %d: unexpected error: got %v, want %v", i, err, test.wantErr)
			continue
		}
		if !cmp.Equal(got, test.want) {
			t.Errorf("test %d: did not get expected result.\n%s", i, cmp.Diff(test.want, got))
		}
	}
}
