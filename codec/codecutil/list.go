/*
NAME
  list.go

DESCRIPTION
  list.go lists the elementary stream codecs that can be multiplexed.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package codecutil provides codec names and helpers shared by codec
// packages.
package codecutil

// All available codecs for reference in any application.
// When adding or removing a codec from this list, the IsValid function below must be updated.
const (
	MPEG2     = "mpeg2"
	H264      = "h264"
	H265      = "h265"
	MP2       = "mp2"
	ADTS      = "aac"      // AAC with ADTS framing.
	LATM      = "aac_latm" // AAC with LATM framing.
	AC3       = "ac3"
	SMPTE302M = "s302m"
	DVBSub    = "dvbsub"
	Teletext  = "teletext"
	VBI       = "vbi"
	Data      = "data" // Opaque private data.
)

// IsValid checks if a string is a known and valid codec in the right format.
func IsValid(s string) bool {
	switch s {
	case MPEG2, H264, H265, MP2, ADTS, LATM, AC3, SMPTE302M, DVBSub, Teletext, VBI, Data:
		return true
	default:
		return false
	}
}
