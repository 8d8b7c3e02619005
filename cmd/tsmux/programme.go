/*
NAME
  programme.go

DESCRIPTION
  programme.go generates a synthetic programme of H.264 video and ADTS audio
  access units with arrival and presentation times.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"fmt"
	"math/rand"

	"github.com/ausocean/tsmux/codec/aac"
	"github.com/ausocean/tsmux/codec/h264"
	"github.com/ausocean/tsmux/container/mts"
)

// Programme parameters.
const (
	gopLen        = 25    // Video frames between IDR pictures.
	audioRate     = 48000 // Hz.
	audioChannels = 2
	audioBytes    = 300 // Raw AAC bytes per frame.
	maxVideoRate  = 4000000
	ptsOffset     = 90000 // Presentation delay in 90kHz units.
	systemClock   = 27000000
)

// programme generates the access units of one video and one audio stream.
type programme struct {
	videoPID, audioPID uint16

	rate     int64 // Video frames per second.
	avgBytes int   // Mean coded video frame size.

	video, audio int64 // Access units generated so far.

	adts aac.Header
	rng  *rand.Rand
}

// newProgramme returns a programme at rate video frames per second whose
// video takes at most a fifth of the mux rate.
func newProgramme(videoPID, audioPID uint16, rate, muxRate uint, seed int64) (*programme, error) {
	if rate == 0 {
		return nil, fmt.Errorf("invalid frame rate: %d", rate)
	}
	idx, err := aac.SampleRateIndex(audioRate)
	if err != nil {
		return nil, err
	}
	bitRate := min(muxRate/5, maxVideoRate)
	return &programme{
		videoPID: videoPID,
		audioPID: audioPID,
		rate:     int64(rate),
		avgBytes: int(bitRate / 8 / rate),
		adts:     aac.Header{Profile: 1, SampleRateIndex: idx, Channels: audioChannels},
		rng:      rand.New(rand.NewSource(seed)),
	}, nil
}

// next returns the video frames of the next second of the programme and
// the audio frames arriving with them.
func (p *programme) next() ([]mts.Frame, error) {
	var frames []mts.Frame
	for i := int64(0); i < p.rate; i++ {
		start := p.video * systemClock / p.rate
		end := (p.video + 1) * systemClock / p.rate
		pts := ptsOffset + p.video*90000/p.rate
		frames = append(frames, mts.Frame{
			PID:            p.videoPID,
			Data:           p.accessUnit(p.video%gopLen == 0),
			PTS:            pts,
			DTS:            pts,
			InitialArrival: start,
			FinalArrival:   end,
		})
		p.video++

		for {
			t := p.audio * aac.SamplesPerFrame * systemClock / audioRate
			if t >= end {
				break
			}
			f, err := p.adts.Frame(p.fill(audioBytes))
			if err != nil {
				return nil, fmt.Errorf("could not make audio frame: %w", err)
			}
			pts := ptsOffset + p.audio*aac.SamplesPerFrame*90000/audioRate
			frames = append(frames, mts.Frame{
				PID:            p.audioPID,
				Data:           f,
				PTS:            pts,
				DTS:            pts,
				InitialArrival: t,
				FinalArrival:   t + aac.SamplesPerFrame*systemClock/audioRate,
			})
			p.audio++
		}
	}
	return frames, nil
}

// accessUnit returns an Annex B access unit. IDR access units carry an SPS
// and PPS and are twice the mean size; others are between half and the
// whole mean size.
func (p *programme) accessUnit(idr bool) []byte {
	startCode := []byte{0x00, 0x00, 0x00, 0x01}
	au := append([]byte{}, startCode...)
	au = append(au, h264.NALTypeAccessUnitDelimiter, 0xf0)
	if !idr {
		au = append(au, startCode...)
		au = append(au, 0x41) // nal_ref_idc 2, non-IDR slice.
		return append(au, p.fill(p.avgBytes/2+p.rng.Intn(p.avgBytes/2+1))...)
	}
	au = append(au, startCode...)
	au = append(au, 0x67, 0x4d, 0x00, 0x28) // SPS, Main profile, level 4.0.
	au = append(au, p.fill(8)...)
	au = append(au, startCode...)
	au = append(au, 0x68) // PPS.
	au = append(au, p.fill(4)...)
	au = append(au, startCode...)
	au = append(au, 0x65) // IDR slice.
	return append(au, p.fill(2*p.avgBytes)...)
}

// fill returns n random non-zero bytes, which can never form a start code.
func (p *programme) fill(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(1 + p.rng.Intn(255))
	}
	return b
}
