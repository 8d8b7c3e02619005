/*
NAME
  parse_test.go

DESCRIPTION
  parse_test.go provides testing for HEVC access unit classification.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h265

import "testing"

func TestIsRandomAccess(t *testing.T) {
	tests := []struct {
		name string
		au   []byte
		want bool
	}{
		{
			name: "idr",
			au: []byte{
				0x00, 0x00, 0x00, 0x01, 0x46, 0x01, 0x10, // AUD
				0x00, 0x00, 0x00, 0x01, 0x40, 0x01, 0x0c, // VPS
				0x00, 0x00, 0x01, 0x26, 0x01, 0xaf, // IDR_W_RADL
			},
			want: true,
		},
		{
			name: "cra",
			au:   []byte{0x00, 0x00, 0x01, 0x2a, 0x01, 0xaf},
			want: true,
		},
		{
			name: "trail",
			au:   []byte{0x00, 0x00, 0x01, 0x02, 0x01, 0xd0},
			want: false,
		},
		{
			name: "empty",
			au:   nil,
			want: false,
		},
	}
	for _, test := range tests {
		if got := IsRandomAccess(test.au); got != test.want {
			t.Errorf("%s: did not get expected result.\n Got: %v\n Want: %v\n", test.name, got, test.want)
		}
	}
}

func TestNALType(t *testing.T) {
	if got := NALType([]byte{0x40, 0x01}); got != NALTypeVPS {
		t.Errorf("unexpected type: got %d, want %d", got, NALTypeVPS)
	}
	if got := NALType(nil); got != -1 {
		t.Errorf("unexpected type for empty unit: %d", got)
	}
}
