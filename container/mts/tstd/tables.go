/*
NAME
  tables.go

DESCRIPTION
  tables.go provides the codec level and buffer reference tables used to
  derive transport system target decoder parameters.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package tstd

import (
	"errors"
	"fmt"
)

// ErrNoEntry is returned when a reference table has no entry for a key.
var ErrNoEntry = errors.New("no reference table entry")

// MPEG2Level is an MPEG-2 video level.
type MPEG2Level int

// MPEG-2 video levels.
const (
	MPEG2LevelLow MPEG2Level = iota
	MPEG2LevelMain
	MPEG2LevelHigh1440
	MPEG2LevelHigh
	MPEG2LevelHighP
)

// MPEG2Profile is an MPEG-2 video profile.
type MPEG2Profile int

// MPEG-2 video profiles.
const (
	MPEG2ProfileSimple MPEG2Profile = iota
	MPEG2ProfileMain
	MPEG2Profile422
)

// AVCProfile is an AVC profile.
type AVCProfile int

// AVC profiles.
const (
	AVCBaseline AVCProfile = iota
	AVCMain
	AVCHigh
	AVCHigh10
	AVCHigh422
	AVCHigh444Predictive
	AVCHigh10Intra
	AVCHigh422Intra
	AVCHigh444Intra
	AVCCAVLC444Intra
)

// HEVCProfile is an HEVC profile.
type HEVCProfile int

// HEVC profiles.
const (
	HEVCMain HEVCProfile = iota
	HEVCHighThroughput444
)

// VideoLimits are the maximum bit rate and coded picture buffer size of a
// video profile and level.
type VideoLimits struct {
	BitRate    uint64 // bit/s.
	BufferSize uint64 // bits.
}

type mpeg2Key struct {
	level   MPEG2Level
	profile MPEG2Profile
}

type mpeg2Entry struct {
	VideoLimits
	indication uint8 // profile_and_level_indication, 0 if undefined.
}

var mpeg2Levels = map[mpeg2Key]mpeg2Entry{
	{MPEG2LevelLow, MPEG2ProfileMain}:      {VideoLimits{4000000, 475136}, 0x4a},
	{MPEG2LevelMain, MPEG2ProfileSimple}:   {VideoLimits{15000000, 1835008}, 0x58},
	{MPEG2LevelMain, MPEG2ProfileMain}:     {VideoLimits{15000000, 1835008}, 0x48},
	{MPEG2LevelMain, MPEG2Profile422}:      {VideoLimits{50000000, 9437184}, 0x85},
	{MPEG2LevelHigh1440, MPEG2ProfileMain}: {VideoLimits{60000000, 7340732}, 0x46},
	{MPEG2LevelHigh, MPEG2ProfileMain}:     {VideoLimits{80000000, 9781248}, 0x44},
	// High-P has no 8-bit profile_and_level_indication, so streams at this
	// level carry no video stream descriptor.
	{MPEG2LevelHighP, MPEG2ProfileMain}: {VideoLimits{80000000, 9781248}, 0},
}

// avcLevels maps level_idc to maximum bit rate (kbit/s) and CPB size (kbit)
// before scaling by the profile NAL factor. Level 1b is level_idc 9.
var avcLevels = map[uint8]struct{ bitRate, cpb uint64 }{
	10: {64, 64},
	9:  {128, 350},
	11: {192, 500},
	12: {384, 1000},
	13: {768, 2000},
	20: {2000, 2000},
	21: {4000, 4000},
	22: {4000, 4000},
	30: {10000, 10000},
	31: {14000, 14000},
	32: {20000, 20000},
	40: {20000, 25000},
	41: {50000, 62500},
	42: {50000, 62500},
	50: {135000, 135000},
	51: {240000, 240000},
	52: {240000, 240000},
}

type avcProfileEntry struct {
	idc       uint8
	nalFactor uint64
}

var avcProfiles = map[AVCProfile]avcProfileEntry{
	AVCBaseline:          {66, 1200},
	AVCMain:              {77, 1200},
	AVCHigh:              {100, 1500},
	AVCHigh10:            {110, 3600},
	AVCHigh422:           {122, 4800},
	AVCHigh444Predictive: {244, 4800},
	AVCHigh10Intra:       {110, 3600},
	AVCHigh422Intra:      {122, 4800},
	AVCHigh444Intra:      {244, 4800},
	AVCCAVLC444Intra:     {44, 4800},
}

// noTier marks a tier not defined for a level.
const noTier = 0

// hevcLevels maps ten times the level number to main and high tier bit rate
// and CPB size, in units of the profile NAL factor.
var hevcLevels = map[uint8]struct{ mainRate, highRate, mainCPB, highCPB uint64 }{
	10: {128, noTier, 350, noTier},
	20: {1500, noTier, 1500, noTier},
	21: {3000, noTier, 3000, noTier},
	30: {6000, noTier, 6000, noTier},
	31: {10000, noTier, 10000, noTier},
	40: {12000, 30000, 12000, 30000},
	41: {20000, 50000, 20000, 50000},
	50: {25000, 100000, 25000, 100000},
	51: {40000, 160000, 40000, 160000},
	52: {60000, 240000, 60000, 240000},
	60: {60000, 240000, 60000, 240000},
	61: {120000, 480000, 120000, 480000},
	62: {240000, 800000, 240000, 800000},
}

type hevcProfileEntry struct {
	idc       uint8
	nalFactor uint64
}

var hevcProfiles = map[HEVCProfile]hevcProfileEntry{
	HEVCMain:              {1, 1100},
	HEVCHighThroughput444: {5, 2200},
}

// aacBuffers is ordered by channel count.
var aacBuffers = []struct {
	maxChannels int
	Params
}{
	{2, Params{Rxn: 2000000, Bsn: 3584 * 8}},
	{8, Params{Rxn: 5529600, Bsn: 8976 * 8}},
	{12, Params{Rxn: 8294400, Bsn: 12804 * 8}},
	{48, Params{Rxn: 33177600, Bsn: 51216 * 8}},
}

// Buffer constants of the remaining formats.
const (
	ac3BufferATSC = 2592 * 8
	ac3BufferDVB  = 5696 * 8

	smpte302MBuffer     = 65024 * 8
	SMPTE302MSampleRate = 48000

	miscAudioBuffer = 3584 * 8
	miscAudioRxn    = 2000000

	dvbSubRxn    = 192000
	dvbSubBuffer = 24000

	teletextRxn    = 6750000
	teletextBuffer = 1504 * 8

	scteVBIRxn    = 324539
	scteVBIBuffer = 2256 * 8
)

// Parameters of formats with a single model.
var (
	Generic      = Params{Rxn: miscAudioRxn, Bsn: miscAudioBuffer}
	MiscAudio    = Params{Rxn: miscAudioRxn, Bsn: miscAudioBuffer}
	DVBSubtitles = Params{Rxn: dvbSubRxn, Bsn: dvbSubBuffer}
	Teletext     = Params{Rxn: teletextRxn, Bsn: teletextBuffer}
	SCTEVBI      = Params{Rxn: scteVBIRxn, Bsn: scteVBIBuffer}
)

// MPEG2Limits returns the limits of an MPEG-2 level and profile.
func MPEG2Limits(l MPEG2Level, p MPEG2Profile) (VideoLimits, error) {
	e, ok := mpeg2Levels[mpeg2Key{l, p}]
	if !ok {
		return VideoLimits{}, fmt.Errorf("%w: MPEG-2 level %d profile %d", ErrNoEntry, l, p)
	}
	return e.VideoLimits, nil
}

// MPEG2ProfileAndLevel returns the profile_and_level_indication of an MPEG-2
// level and profile, if one is defined.
func MPEG2ProfileAndLevel(l MPEG2Level, p MPEG2Profile) (uint8, bool) {
	e, ok := mpeg2Levels[mpeg2Key{l, p}]
	if !ok || e.indication == 0 {
		return 0, false
	}
	return e.indication, true
}

// AVCLimits returns the NAL HRD limits of an AVC level_idc and profile.
func AVCLimits(levelIDC uint8, p AVCProfile) (VideoLimits, error) {
	l, ok := avcLevels[levelIDC]
	if !ok {
		return VideoLimits{}, fmt.Errorf("%w: AVC level_idc %d", ErrNoEntry, levelIDC)
	}
	prof, ok := avcProfiles[p]
	if !ok {
		return VideoLimits{}, fmt.Errorf("%w: AVC profile %d", ErrNoEntry, p)
	}
	return VideoLimits{BitRate: l.bitRate * prof.nalFactor, BufferSize: l.cpb * prof.nalFactor}, nil
}

// AVCProfileIDC returns the profile_idc of an AVC profile.
func AVCProfileIDC(p AVCProfile) (uint8, error) {
	prof, ok := avcProfiles[p]
	if !ok {
		return 0, fmt.Errorf("%w: AVC profile %d", ErrNoEntry, p)
	}
	return prof.idc, nil
}

// HEVCLimits returns the NAL HRD limits of an HEVC level, given as ten times
// the level number, profile and tier.
func HEVCLimits(level uint8, p HEVCProfile, highTier bool) (VideoLimits, error) {
	l, ok := hevcLevels[level]
	if !ok {
		return VideoLimits{}, fmt.Errorf("%w: HEVC level %d", ErrNoEntry, level)
	}
	prof, ok := hevcProfiles[p]
	if !ok {
		return VideoLimits{}, fmt.Errorf("%w: HEVC profile %d", ErrNoEntry, p)
	}
	rate, cpb := l.mainRate, l.mainCPB
	if highTier {
		rate, cpb = l.highRate, l.highCPB
	}
	if rate == noTier {
		return VideoLimits{}, fmt.Errorf("%w: HEVC level %d has no high tier", ErrNoEntry, level)
	}
	return VideoLimits{BitRate: rate * prof.nalFactor, BufferSize: cpb * prof.nalFactor}, nil
}

// HEVCProfileIDC returns the general_profile_idc of an HEVC profile.
func HEVCProfileIDC(p HEVCProfile) (uint8, error) {
	prof, ok := hevcProfiles[p]
	if !ok {
		return 0, fmt.Errorf("%w: HEVC profile %d", ErrNoEntry, p)
	}
	return prof.idc, nil
}

// HEVCLevelIDC returns the general_level_idc of a level given as ten times
// the level number.
func HEVCLevelIDC(level uint8) (uint8, error) {
	if _, ok := hevcLevels[level]; !ok {
		return 0, fmt.Errorf("%w: HEVC level %d", ErrNoEntry, level)
	}
	return level * 3, nil
}

// VideoParams returns the buffer model of a video stream with the given
// limits. The leak rate is 1.2 times the maximum bit rate and the buffer
// adds multiplex buffering of 4 ms at that rate to the coded picture buffer.
func VideoParams(lim VideoLimits) Params {
	return Params{
		Rxn: lim.BitRate * 12 / 10,
		Bsn: lim.BufferSize + lim.BitRate*4/1000,
	}
}

// AACParams returns the buffer model of an AAC stream.
func AACParams(channels int) (Params, error) {
	if channels < 1 {
		return Params{}, fmt.Errorf("%w: %d AAC channels", ErrNoEntry, channels)
	}
	for _, b := range aacBuffers {
		if channels <= b.maxChannels {
			return b.Params, nil
		}
	}
	return Params{}, fmt.Errorf("%w: %d AAC channels", ErrNoEntry, channels)
}

// AC3Params returns the buffer model of an AC-3 stream, which differs
// between ATSC and DVB.
func AC3Params(atsc bool) Params {
	if atsc {
		return Params{Rxn: miscAudioRxn, Bsn: ac3BufferATSC}
	}
	return Params{Rxn: miscAudioRxn, Bsn: ac3BufferDVB}
}

// SMPTE302MParams returns the buffer model of a SMPTE 302M stream with the
// given channel count and sample size. The leak rate is 1.2 times the
// stream rate including the 4 bits of framing per sample.
func SMPTE302MParams(channels, bitsPerSample int) (Params, error) {
	switch channels {
	case 2, 4, 6, 8:
	default:
		return Params{}, fmt.Errorf("%w: %d SMPTE 302M channels", ErrNoEntry, channels)
	}
	switch bitsPerSample {
	case 16, 20, 24:
	default:
		return Params{}, fmt.Errorf("%w: %d bit SMPTE 302M samples", ErrNoEntry, bitsPerSample)
	}
	rate := uint64(SMPTE302MSampleRate * channels * (bitsPerSample + 4))
	return Params{Rxn: rate * 12 / 10, Bsn: smpte302MBuffer}, nil
}
