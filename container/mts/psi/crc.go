/*
NAME
  crc.go

DESCRIPTION
  crc.go provides the CRC-32/MPEG-2 checksum that terminates PSI and SI
  sections.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package psi

import (
	"encoding/binary"
	"hash/crc32"
	"math/bits"
)

// crcTable is the MSB-first table for polynomial 0x04c11db7.
var crcTable = makeTable(bits.Reverse32(crc32.IEEE))

// AddCRC appends the CRC32 of section to it. section must start at table_id.
func AddCRC(section []byte) []byte {
	t := make([]byte, len(section)+crcSize)
	copy(t, section)
	UpdateCRC(t)
	return t
}

// UpdateCRC computes the CRC32 of b, excluding its last four bytes, and writes
// the checksum into them.
func UpdateCRC(b []byte) {
	binary.BigEndian.PutUint32(b[len(b)-crcSize:], CRC32(b[:len(b)-crcSize]))
}

// CRC32 returns the CRC-32/MPEG-2 checksum of b, with seed 0xffffffff and no
// final inversion.
func CRC32(b []byte) uint32 {
	return update(0xffffffff, crcTable, b)
}

// CheckCRC returns true if the last four bytes of section hold the CRC32 of
// the bytes before them.
func CheckCRC(section []byte) bool {
	if len(section) < crcSize {
		return false
	}
	n := len(section) - crcSize
	return CRC32(section[:n]) == binary.BigEndian.Uint32(section[n:])
}

func makeTable(poly uint32) *crc32.Table {
	var t crc32.Table
	for i := range t {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return &t
}

func update(crc uint32, tab *crc32.Table, p []byte) uint32 {
	for _, v := range p {
		crc = tab[byte(crc>>24)^v] ^ (crc << 8)
	}
	return crc
}
