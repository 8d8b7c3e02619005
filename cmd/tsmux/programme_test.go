/*
NAME
  programme_test.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/ausocean/utils/realtime"

	"github.com/ausocean/tsmux/codec/aac"
	"github.com/ausocean/tsmux/codec/h264"
	"github.com/ausocean/tsmux/config"
	"github.com/ausocean/tsmux/container/mts"
)

func TestProgramme(t *testing.T) {
	p, err := newProgramme(videoPID, audioPID, 25, 10000000, 1)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	for sec := 0; sec < 2; sec++ {
		frames, err := p.next()
		if err != nil {
			t.Fatalf("did not expect error: %v", err)
		}
		var video, audio int
		for _, f := range frames {
			switch f.PID {
			case videoPID:
				n := sec*25 + video
				if got, want := h264.IsRandomAccess(f.Data), n%gopLen == 0; got != want {
					t.Errorf("did not get expected random access for frame %d.\n Got: %v\n Want: %v\n", n, got, want)
				}
				if want := int64(ptsOffset + 3600*n); f.PTS != want {
					t.Errorf("did not get expected video PTS.\n Got: %v\n Want: %v\n", f.PTS, want)
				}
				video++
			case audioPID:
				h, _, err := aac.ReadFrame(bytes.NewReader(f.Data))
				if err != nil {
					t.Errorf("could not read audio frame: %v", err)
					continue
				}
				if h.Channels != audioChannels || h.FrameLength != len(f.Data) {
					t.Errorf("unexpected audio header: %+v", h)
				}
				audio++
			}
			if f.FinalArrival <= f.InitialArrival {
				t.Errorf("frame on PID %d has no arrival interval", f.PID)
			}
		}
		if video != 25 {
			t.Errorf("did not get expected video frames.\n Got: %v\n Want: %v\n", video, 25)
		}
		// 46.875 audio frames per second.
		if audio != 46 && audio != 47 {
			t.Errorf("did not get expected audio frames.\n Got: %v\n Want: 46 or 47\n", audio)
		}
	}
}

func TestMultiplexProgramme(t *testing.T) {
	tests := []struct {
		name string
		cbr  bool
	}{
		{name: "CBR", cbr: true},
		{name: "VBR", cbr: false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := config.Config{
				Logger:    (*logging.TestLogger)(t),
				Profile:   config.ProfileDVB,
				CBR:       test.cbr,
				MuxRate:   10000000,
				FrameRate: 25,
			}
			if err := cfg.Validate(); err != nil {
				t.Fatalf("could not validate config: %v", err)
			}
			rt := realtime.NewRealTime()
			rt.Set(time.Now())
			m, err := newMuxer(cfg, (*logging.TestLogger)(t), rt)
			if err != nil {
				t.Fatalf("could not create muxer: %v", err)
			}
			p, err := newProgramme(videoPID, audioPID, cfg.FrameRate, cfg.MuxRate, 1)
			if err != nil {
				t.Fatalf("could not create programme: %v", err)
			}

			var d []byte
			for i := 0; i < 3; i++ {
				frames, err := p.next()
				if err != nil {
					t.Fatalf("did not expect error: %v", err)
				}
				out, err := m.WriteFrames(frames)
				if err != nil {
					t.Fatalf("did not expect error multiplexing second %d: %v", i, err)
				}
				d = append(d, out.Data...)
			}

			err = mts.NewContinuityChecker().CheckAll(d)
			if err != nil {
				t.Errorf("did not expect continuity error: %v", err)
			}
			clip, err := mts.Extract(d)
			if err != nil {
				t.Fatalf("could not extract clip: %v", err)
			}
			var rap int
			for _, u := range clip.ForPID(videoPID).Units() {
				if u.RandomAccess {
					rap++
				}
			}
			if rap != 3 {
				t.Errorf("did not get expected random access units.\n Got: %v\n Want: %v\n", rap, 3)
			}
		})
	}
}
