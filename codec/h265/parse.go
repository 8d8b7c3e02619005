/*
NAME
  parse.go

DESCRIPTION
  parse.go provides HEVC (H.265) NAL unit classification used to mark random
  access points when multiplexing.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package h265 provides HEVC access unit classification.
package h265

import "github.com/ausocean/tsmux/codec/codecutil"

// NAL unit types, ITU-T H.265 Table 7-1.
const (
	NALTypeBLAWLP   = 16
	NALTypeIDRWRADL = 19
	NALTypeIDRNLP   = 20
	NALTypeCRA      = 21
	NALTypeVPS      = 32
	NALTypeSPS      = 33
	NALTypePPS      = 34
	NALTypeAUD      = 35

	irapLast = 23 // Last type reserved for IRAP pictures.
)

// NALType returns the type of the NAL unit u, which must not include a start
// code.
func NALType(u []byte) int {
	if len(u) == 0 {
		return -1
	}
	return int(u[0]>>1) & 0x3f
}

// IsRandomAccess returns true if the access unit au contains an IRAP picture
// (BLA, IDR or CRA).
func IsRandomAccess(au []byte) bool {
	for _, u := range codecutil.NALUnits(au) {
		typ := NALType(u)
		if typ >= NALTypeBLAWLP && typ <= irapLast {
			return true
		}
	}
	return false
}
