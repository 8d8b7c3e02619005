/*
NAME
  time.go

DESCRIPTION
  time.go provides the modified Julian date and BCD time encoding used by
  the TDT, the TOT and the local time offset descriptor.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package psi

import (
	"fmt"
	"time"
)

// mjdUnixEpoch is the modified Julian date of 1970-01-01.
const mjdUnixEpoch = 40587

// EncodeUTC returns t as a 16 bit modified Julian date followed by hours,
// minutes and seconds in BCD.
func EncodeUTC(t time.Time) ([5]byte, error) {
	var out [5]byte
	t = t.UTC()
	days := t.Unix() / 86400
	if t.Unix() < 0 && t.Unix()%86400 != 0 {
		days--
	}
	mjd := days + mjdUnixEpoch
	if mjd < 0 || mjd > 0xffff {
		return out, fmt.Errorf("%w: time %v outside MJD range", ErrFieldRange, t)
	}
	out[0] = byte(mjd >> 8)
	out[1] = byte(mjd)
	out[2] = toBCD(t.Hour())
	out[3] = toBCD(t.Minute())
	out[4] = toBCD(t.Second())
	return out, nil
}

// DecodeUTC returns the time encoded by EncodeUTC.
func DecodeUTC(b [5]byte) time.Time {
	mjd := int64(b[0])<<8 | int64(b[1])
	secs := (mjd-mjdUnixEpoch)*86400 + int64(fromBCD(b[2]))*3600 + int64(fromBCD(b[3]))*60 + int64(fromBCD(b[4]))
	return time.Unix(secs, 0).UTC()
}

// toBCD encodes 0 <= v < 100 as two BCD digits.
func toBCD(v int) byte {
	return byte(v/10)<<4 | byte(v%10)
}

func fromBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0f)
}
