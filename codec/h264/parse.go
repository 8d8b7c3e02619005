/*
DESCRIPTION
  parse.go provides H.264 NAL unit parsing utilities used to classify access
  units for multiplexing.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package h264 provides H.264 access unit classification.
package h264

import (
	"errors"

	"github.com/ausocean/tsmux/codec/codecutil"
)

// NAL unit types, ITU-T H.264 Table 7-1.
const (
	NALTypeNonIDR              = 1
	NALTypeIDR                 = 5
	NALTypeSEI                 = 6
	NALTypeSPS                 = 7
	NALTypePPS                 = 8
	NALTypeAccessUnitDelimiter = 9
)

var errNotEnoughBytes = errors.New("not enough bytes to read")

// NALType returns the NAL type of the first NAL unit in the byte stream n.
// NB: access unit delimiters are skipped.
func NALType(n []byte) (int, error) {
	for _, u := range codecutil.NALUnits(n) {
		if len(u) == 0 {
			continue
		}
		typ := int(u[0] & 0x1f)
		if typ != NALTypeAccessUnitDelimiter {
			return typ, nil
		}
	}
	return 0, errNotEnoughBytes
}

// IsRandomAccess returns true if the access unit au contains an IDR slice.
func IsRandomAccess(au []byte) bool {
	for _, u := range codecutil.NALUnits(au) {
		if len(u) != 0 && u[0]&0x1f == NALTypeIDR {
			return true
		}
	}
	return false
}
