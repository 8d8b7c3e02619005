/*
DESCRIPTIONS
  helpers.go provides stream ID constants and classification.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pes

// Stream IDs as per ITU-T Rec. H.222.0 / ISO/IEC 13818-1 table 2-22.
const (
	PrivateStream1SID = 0xbd
	PaddingSID        = 0xbe
	PrivateStream2SID = 0xbf
	AudioSID          = 0xc0 // First MPEG audio stream.
	VideoSID          = 0xe0 // First MPEG video stream.
	MetadataSID       = 0xfc
)

// IsVideo returns true for the MPEG video stream IDs 0xe0 to 0xef.
func IsVideo(sid byte) bool {
	return sid&0xf0 == VideoSID
}

// IsAudio returns true for the MPEG audio stream IDs 0xc0 to 0xdf.
func IsAudio(sid byte) bool {
	return sid&0xe0 == AudioSID
}

// Unbounded returns true if packets of the stream may have a
// PES_packet_length of 0.
func Unbounded(sid byte) bool {
	return IsVideo(sid)
}
