/*
DESCRIPTION
  options.go provides option functions that can be provided to the Muxer
  constructor NewMuxer. These options select how invalid frames are handled,
  random access detection and the source of wall clock time.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mts

import (
	"github.com/ausocean/utils/realtime"
)

// SkipInvalid is an option that can be passed to NewMuxer so that frames
// failing validation are logged and dropped instead of failing the write.
func SkipInvalid() func(*Muxer) error {
	return func(m *Muxer) error {
		m.skipInvalid = true
		m.log.Debug("configured to skip invalid frames")
		return nil
	}
}

// DetectRandomAccess is an option that can be passed to NewMuxer to set the
// random access indicator on H.264 and H.265 frames that begin with an
// IDR or IRAP picture, even if the frame does not say so.
func DetectRandomAccess() func(*Muxer) error {
	return func(m *Muxer) error {
		m.detectRAP = true
		m.log.Debug("configured for random access detection")
		return nil
	}
}

// WallClock is an option that can be passed to NewMuxer so that the TDT and
// TOT carry the time of rt, once it is set, instead of the configured start
// time advanced by the multiplex clock.
func WallClock(rt *realtime.RealTime) func(*Muxer) error {
	return func(m *Muxer) error {
		if rt == nil {
			return ErrNoWallClock
		}
		m.wall = rt
		m.log.Debug("configured with wall clock")
		return nil
	}
}
