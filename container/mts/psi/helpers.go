/*
NAME
  helpers.go

DESCRIPTION
  helpers.go provides functions for preparing sections for carriage in
  MPEG-TS packets.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package psi

// AddPointer prefixes a section with a zero pointer field, as carried in the
// first packet of a section.
func AddPointer(section []byte) []byte {
	out := make([]byte, len(section)+1)
	copy(out[1:], section)
	return out
}

// AddPadding pads d with 0xff stuffing bytes up to a multiple of the
// MPEG-TS payload size.
func AddPadding(d []byte) []byte {
	n := len(d) % PacketSize
	if n == 0 && len(d) != 0 {
		return d
	}
	for i := n; i < PacketSize; i++ {
		d = append(d, 0xff)
	}
	return d
}

// SectionLen returns the section_length of the section beginning at b[0].
func SectionLen(b []byte) int {
	if len(b) < sectionHeadLen {
		return -1
	}
	return int(b[1]&0x0f)<<8 | int(b[2])
}
