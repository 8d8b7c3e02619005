/*
NAME
  format.go

DESCRIPTION
  format.go provides elementary stream formats and the derivation of their
  stream types, PES stream IDs, descriptors and buffer models.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mts

import (
	"fmt"

	"github.com/ausocean/tsmux/codec/codecutil"
	"github.com/ausocean/tsmux/config"
	"github.com/ausocean/tsmux/container/mts/pes"
	"github.com/ausocean/tsmux/container/mts/psi"
	"github.com/ausocean/tsmux/container/mts/tstd"
)

// Format is an elementary stream format.
type Format int

// Formats.
const (
	FormatInvalid Format = iota
	MPEG2Video
	AVC
	HEVC
	MP2
	ADTS
	LATM
	AC3
	SMPTE302M
	DVBSub
	Teletext
	VBI
	Data
)

var formatNames = map[string]Format{
	codecutil.MPEG2:     MPEG2Video,
	codecutil.H264:      AVC,
	codecutil.H265:      HEVC,
	codecutil.MP2:       MP2,
	codecutil.ADTS:      ADTS,
	codecutil.LATM:      LATM,
	codecutil.AC3:       AC3,
	codecutil.SMPTE302M: SMPTE302M,
	codecutil.DVBSub:    DVBSub,
	codecutil.Teletext:  Teletext,
	codecutil.VBI:       VBI,
	codecutil.Data:      Data,
}

// ParseFormat returns the format of a codec name from the codecutil list.
func ParseFormat(s string) (Format, error) {
	f, ok := formatNames[s]
	if !ok {
		return FormatInvalid, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return f, nil
}

// IsVideo returns true for the video formats.
func (f Format) IsVideo() bool {
	return f == MPEG2Video || f == AVC || f == HEVC
}

// IsAudio returns true for the audio formats.
func (f Format) IsAudio() bool {
	switch f {
	case MP2, ADTS, LATM, AC3, SMPTE302M:
		return true
	}
	return false
}

// Stream types, ITU-T H.222.0 table 2-34 and ATSC A/52.
const (
	streamTypeMPEG2Video = 0x02
	streamTypeMPEG2Audio = 0x03
	streamTypeADTS       = 0x0f
	streamTypeLATM       = 0x11
	streamTypeAVC        = 0x1b
	streamTypeHEVC       = 0x24
	streamTypePrivate    = 0x06 // PES private data.
	streamTypeATSCAC3    = 0x81
)

// Registration format identifiers.
const (
	formatIDAC3       = "AC-3"
	formatIDSMPTE302M = "BSSD"
	formatIDATSC      = "GA94"
)

// chroma420 is the chroma_format of 4:2:0 video.
const chroma420 = 1

// hdrWCGUnknown is the HDR_WCG_idc of unspecified video.
const hdrWCGUnknown = 3

// StreamConfig describes an elementary stream to be added to a program.
// Only the fields of the stream's Format are used.
type StreamConfig struct {
	PID    uint16
	Format Format

	// MPEG-2 video.
	MPEG2Level    tstd.MPEG2Level
	MPEG2Profile  tstd.MPEG2Profile
	FrameRateCode uint8

	// AVC and HEVC video. HEVCLevel is ten times the level number.
	AVCProfile  tstd.AVCProfile
	AVCLevel    uint8 // level_idc.
	HEVCProfile tstd.HEVCProfile
	HEVCLevel   uint8
	HighTier    bool

	// Audio.
	Channels          int
	AudioProfileLevel uint8              // MPEG-4 audio profile and level, 0 for none.
	AC3               *psi.AC3Audio      // AC-3 bitstream parameters, required for ATSC.
	BitsPerSample     int                // SMPTE 302M sample size.
	Language          string             // ISO 639-2 code, empty for none.
	AudioType         uint8              // ISO 639 audio type.
	Captions          []psi.CaptionEntry // ATSC caption services carried in video.

	// DVB.
	HasComponentTag bool
	ComponentTag    uint8
	Subtitles       []psi.Subtitle
	TeletextPages   []psi.TeletextPage

	// MaxBitrate, if non-zero, is signalled with a maximum bitrate descriptor.
	MaxBitrate uint64
}

// streamInfo is what a StreamConfig derives to.
type streamInfo struct {
	streamType  byte
	streamID    byte
	descriptors []psi.Descriptor
	params      tstd.Params
}

// describe derives the PMT entry, PES stream ID and buffer model of sc under
// the given transport stream profile. Failed table lookups are returned
// wrapped, never replaced by defaults.
func (sc *StreamConfig) describe(profile uint8) (*streamInfo, error) {
	info := &streamInfo{streamType: streamTypePrivate, streamID: pes.PrivateStream1SID}
	var encs []psi.DescriptorEncoder
	var err error

	switch sc.Format {
	case MPEG2Video:
		info.streamType, info.streamID = streamTypeMPEG2Video, pes.VideoSID
		lim, err := tstd.MPEG2Limits(sc.MPEG2Level, sc.MPEG2Profile)
		if err != nil {
			return nil, err
		}
		info.params = tstd.VideoParams(lim)
		// The video stream descriptor is optional and is omitted for levels
		// without a profile_and_level_indication.
		if pl, ok := tstd.MPEG2ProfileAndLevel(sc.MPEG2Level, sc.MPEG2Profile); ok {
			encs = append(encs, &psi.VideoStream{FrameRateCode: sc.FrameRateCode, ProfileAndLevel: pl, ChromaFormat: chroma420})
		}

	case AVC:
		info.streamType, info.streamID = streamTypeAVC, pes.VideoSID
		lim, err := tstd.AVCLimits(sc.AVCLevel, sc.AVCProfile)
		if err != nil {
			return nil, err
		}
		idc, err := tstd.AVCProfileIDC(sc.AVCProfile)
		if err != nil {
			return nil, err
		}
		info.params = tstd.VideoParams(lim)
		encs = append(encs, &psi.AVCVideo{ProfileIDC: idc, LevelIDC: sc.AVCLevel})

	case HEVC:
		info.streamType, info.streamID = streamTypeHEVC, pes.VideoSID
		lim, err := tstd.HEVCLimits(sc.HEVCLevel, sc.HEVCProfile, sc.HighTier)
		if err != nil {
			return nil, err
		}
		idc, err := tstd.HEVCProfileIDC(sc.HEVCProfile)
		if err != nil {
			return nil, err
		}
		level, err := tstd.HEVCLevelIDC(sc.HEVCLevel)
		if err != nil {
			return nil, err
		}
		info.params = tstd.VideoParams(lim)
		encs = append(encs, &psi.HEVCVideo{
			HighTier:            sc.HighTier,
			ProfileIDC:          idc,
			CompatibilityFlags:  1 << (31 - idc),
			ProgressiveSource:   true,
			FrameOnlyConstraint: true,
			LevelIDC:            level,
			HDRWCG:              hdrWCGUnknown,
		})

	case MP2:
		info.streamType, info.streamID = streamTypeMPEG2Audio, pes.AudioSID
		info.params = tstd.MiscAudio

	case ADTS, LATM:
		info.streamType, info.streamID = streamTypeADTS, pes.AudioSID
		if sc.Format == LATM {
			info.streamType = streamTypeLATM
		}
		info.params, err = tstd.AACParams(sc.Channels)
		if err != nil {
			return nil, err
		}
		if sc.AudioProfileLevel != 0 {
			encs = append(encs, &psi.MPEG4Audio{ProfileAndLevel: sc.AudioProfileLevel})
		}

	case AC3:
		atsc := profile == config.ProfileATSC
		info.params = tstd.AC3Params(atsc)
		if atsc {
			if sc.AC3 == nil {
				return nil, fmt.Errorf("%w: AC-3 parameters required for ATSC", ErrInvalidFormat)
			}
			info.streamType = streamTypeATSCAC3
			encs = append(encs, &psi.Registration{FormatIdentifier: formatIDAC3}, sc.AC3)
			break
		}
		d := &psi.DVBAC3{}
		if sc.AC3 != nil {
			d.HasBSID, d.BSID = true, sc.AC3.BSID
		}
		encs = append(encs, d)

	case SMPTE302M:
		info.params, err = tstd.SMPTE302MParams(sc.Channels, sc.BitsPerSample)
		if err != nil {
			return nil, err
		}
		encs = append(encs, &psi.Registration{FormatIdentifier: formatIDSMPTE302M})

	case DVBSub:
		info.params = tstd.DVBSubtitles
		encs = append(encs, &psi.Subtitling{Subtitles: sc.Subtitles})

	case Teletext:
		info.params = tstd.Teletext
		encs = append(encs, &psi.Teletext{Pages: sc.TeletextPages})

	case VBI:
		info.params = tstd.SCTEVBI

	case Data:
		info.params = tstd.Generic

	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidFormat, sc.Format)
	}

	if sc.Language != "" {
		encs = append(encs, &psi.ISO639Language{Languages: []psi.Language{{Code: sc.Language, AudioType: sc.AudioType}}})
	}
	if len(sc.Captions) != 0 {
		if !sc.Format.IsVideo() {
			return nil, fmt.Errorf("%w: caption services on non-video stream", ErrInvalidFormat)
		}
		encs = append(encs, &psi.CaptionService{Services: sc.Captions})
	}
	if sc.HasComponentTag {
		encs = append(encs, &psi.StreamIdentifier{ComponentTag: sc.ComponentTag})
	}
	if sc.MaxBitrate != 0 {
		encs = append(encs, &psi.MaxBitrate{BitsPerSecond: sc.MaxBitrate})
	}

	info.descriptors, err = psi.EncodeAll(encs...)
	if err != nil {
		return nil, err
	}
	return info, nil
}
