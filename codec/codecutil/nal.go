/*
NAME
  nal.go

DESCRIPTION
  nal.go provides splitting of Annex B byte streams into NAL units.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package codecutil

// NALUnits returns the NAL units of the Annex B access unit au, without
// their start codes. Three and four byte start codes are recognised. Data
// preceding the first start code is ignored.
func NALUnits(au []byte) [][]byte {
	var (
		units [][]byte
		start = -1
	)
	for i := 0; i+2 < len(au); {
		if au[i] != 0x00 || au[i+1] != 0x00 || au[i+2] != 0x01 {
			i++
			continue
		}
		if start >= 0 {
			end := i
			if end > start && au[end-1] == 0x00 {
				end-- // Leading zero of a four byte start code.
			}
			units = append(units, au[start:end])
		}
		i += 3
		start = i
	}
	if start >= 0 && start < len(au) {
		units = append(units, au[start:])
	}
	return units
}
