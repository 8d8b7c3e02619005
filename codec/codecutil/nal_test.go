/*
NAME
  nal_test.go

DESCRIPTION
  nal_test.go provides testing for NALUnits.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package codecutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNALUnits(t *testing.T) {
	tests := []struct {
		in   []byte
		want [][]byte
	}{
		{
			in:   []byte{0x00, 0x00, 0x00, 0x01, 0x09, 0xf0, 0x00, 0x00, 0x01, 0x67, 0x42, 0x00, 0x00, 0x01, 0x65, 0x88},
			want: [][]byte{{0x09, 0xf0}, {0x67, 0x42}, {0x65, 0x88}},
		},
		{
			in:   []byte{0xff, 0x00, 0x00, 0x01, 0x41},
			want: [][]byte{{0x41}},
		},
		{
			in:   []byte{0x01, 0x02, 0x03},
			want: nil,
		},
		{
			in:   []byte{0x00, 0x00, 0x01},
			want: nil,
		},
	}
	for i, test := range tests {
		got := NALUnits(test.in)
		if !cmp.Equal(got, test.want) {
			t.Errorf("test %d: did not get expected result.\n%s", i, cmp.Diff(test.want, got))
		}
	}
}

func TestIsValid(t *testing.T) {
	for _, s := range []string{H264, H265, AC3, ADTS, Data} {
		if !IsValid(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if IsValid("mjpeg") {
		t.Error("did not expect mjpeg to be valid")
	}
}
