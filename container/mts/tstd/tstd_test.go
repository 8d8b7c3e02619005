/*
NAME
  tstd_test.go

DESCRIPTION
  tstd_test.go provides testing for the reference tables and buffer model.

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
	"math/rand"
	"testing"
)

func TestVideoLimits(t *testing.T) {
	tests := []struct {
		name string
		get  func() (VideoLimits, error)
		want VideoLimits
		err  error
	}{
		{
			name: "mpeg2 main main",
			get:  func() (VideoLimits, error) { return MPEG2Limits(MPEG2LevelMain, MPEG2ProfileMain) },
			want: VideoLimits{BitRate: 15000000, BufferSize: 1835008},
		},
		{
			name: "mpeg2 high simple",
			get:  func() (VideoLimits, error) { return MPEG2Limits(MPEG2LevelHigh, MPEG2ProfileSimple) },
			err:  ErrNoEntry,
		},
		{
			name: "avc main 3.1",
			get:  func() (VideoLimits, error) { return AVCLimits(31, AVCMain) },
			want: VideoLimits{BitRate: 14000 * 1200, BufferSize: 14000 * 1200},
		},
		{
			name: "avc high 4.0",
			get:  func() (VideoLimits, error) { return AVCLimits(40, AVCHigh) },
			want: VideoLimits{BitRate: 20000 * 1500, BufferSize: 25000 * 1500},
		},
		{
			name: "avc bad level",
			get:  func() (VideoLimits, error) { return AVCLimits(33, AVCMain) },
			err:  ErrNoEntry,
		},
		{
			name: "hevc main 4.1 high tier",
			get:  func() (VideoLimits, error) { return HEVCLimits(41, HEVCMain, true) },
			want: VideoLimits{BitRate: 50000 * 1100, BufferSize: 50000 * 1100},
		},
		{
			name: "hevc main 3.1 high tier",
			get:  func() (VideoLimits, error) { return HEVCLimits(31, HEVCMain, true) },
			err:  ErrNoEntry,
		},
		{
			name: "hevc bad level",
			get:  func() (VideoLimits, error) { return HEVCLimits(70, HEVCMain, false) },
			err:  ErrNoEntry,
		},
	}

	for _, test := range tests {
		got, err := test.get()
		if !errors.Is(err, test.err) {
			t.Errorf("unexpected error for test %s.\n Got: %v\n Want: %v\n", test.name, err, test.err)
			continue
		}
		if got != test.want {
			t.Errorf("did not get expected result for test %s.\n Got: %+v\n Want: %+v\n", test.name, got, test.want)
		}
	}
}

func TestIndications(t *testing.T) {
	if got, ok := MPEG2ProfileAndLevel(MPEG2LevelMain, MPEG2ProfileMain); !ok || got != 0x48 {
		t.Errorf("did not get expected MPEG-2 indication.\n Got: %x, %v\n Want: 48, true\n", got, ok)
	}
	if _, ok := MPEG2ProfileAndLevel(MPEG2LevelHighP, MPEG2ProfileMain); ok {
		t.Error("expected no indication for high-p level")
	}
	if got, err := AVCProfileIDC(AVCHigh); err != nil || got != 100 {
		t.Errorf("did not get expected AVC profile_idc.\n Got: %d, %v\n Want: 100\n", got, err)
	}
	if got, err := HEVCProfileIDC(HEVCMain); err != nil || got != 1 {
		t.Errorf("did not get expected HEVC profile_idc.\n Got: %d, %v\n Want: 1\n", got, err)
	}
	if got, err := HEVCLevelIDC(41); err != nil || got != 123 {
		t.Errorf("did not get expected HEVC level_idc.\n Got: %d, %v\n Want: 123\n", got, err)
	}
}

func TestAudioParams(t *testing.T) {
	tests := []struct {
		name string
		get  func() (Params, error)
		want Params
		err  error
	}{
		{"aac stereo", func() (Params, error) { return AACParams(2) }, Params{Rxn: 2000000, Bsn: 3584 * 8}, nil},
		{"aac 5.1", func() (Params, error) { return AACParams(6) }, Params{Rxn: 5529600, Bsn: 8976 * 8}, nil},
		{"aac none", func() (Params, error) { return AACParams(0) }, Params{}, ErrNoEntry},
		{"aac too many", func() (Params, error) { return AACParams(49) }, Params{}, ErrNoEntry},
		{"ac3 atsc", func() (Params, error) { return AC3Params(true), nil }, Params{Rxn: 2000000, Bsn: 2592 * 8}, nil},
		{"ac3 dvb", func() (Params, error) { return AC3Params(false), nil }, Params{Rxn: 2000000, Bsn: 5696 * 8}, nil},
		{"302m stereo 16", func() (Params, error) { return SMPTE302MParams(2, 16) }, Params{Rxn: 48000 * 2 * 20 * 12 / 10, Bsn: 65024 * 8}, nil},
		{"302m odd channels", func() (Params, error) { return SMPTE302MParams(3, 16) }, Params{}, ErrNoEntry},
		{"302m bad depth", func() (Params, error) { return SMPTE302MParams(2, 18) }, Params{}, ErrNoEntry},
	}

	for _, test := range tests {
		got, err := test.get()
		if !errors.Is(err, test.err) {
			t.Errorf("unexpected error for test %s.\n Got: %v\n Want: %v\n", test.name, err, test.err)
			continue
		}
		if got != test.want {
			t.Errorf("did not get expected result for test %s.\n Got: %+v\n Want: %+v\n", test.name, got, test.want)
		}
	}
}

func TestVideoParams(t *testing.T) {
	got := VideoParams(VideoLimits{BitRate: 10000000, BufferSize: 5000000})
	want := Params{Rxn: 12000000, Bsn: 5040000}
	if got != want {
		t.Errorf("did not get expected result.\n Got: %+v\n Want: %+v\n", got, want)
	}
}

const farDTS = 1 << 32

func TestBucketAdmit(t *testing.T) {
	b := NewBucket(Params{Rxn: 1000000, Bsn: 100000})

	err := b.Admit(Arrival{Initial: 0, Final: 0, PTS: farDTS, DTS: farDTS, Bits: 50000})
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got := b.Fullness(0); got != 50000 {
		t.Errorf("did not get expected fullness.\n Got: %d\n Want: 50000\n", got)
	}
	if got := b.Fullness(270000); got != 40000 {
		t.Errorf("did not get expected fullness after leak.\n Got: %d\n Want: 40000\n", got)
	}

	big := Arrival{Initial: 0, Final: 0, PTS: farDTS, DTS: farDTS, Bits: 60000}
	err = b.Admit(big)
	var oe *OverflowError
	if !errors.As(err, &oe) || !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow error, got: %v", err)
	}
	if oe.MinArrival != 270000 {
		t.Errorf("did not get expected minimum arrival.\n Got: %d\n Want: 270000\n", oe.MinArrival)
	}
	if got := b.Fullness(0); got != 50000 {
		t.Errorf("rejected frame changed fullness.\n Got: %d\n Want: 50000\n", got)
	}

	big.Initial, big.Final = oe.MinArrival, oe.MinArrival
	if err := b.Admit(big); err != nil {
		t.Errorf("did not expect error at minimum arrival: %v", err)
	}
	if got := b.Fullness(oe.MinArrival); got != 100000 {
		t.Errorf("did not get expected fullness.\n Got: %d\n Want: 100000\n", got)
	}
}

func TestBucketNeverFits(t *testing.T) {
	b := NewBucket(Params{Rxn: 1000000, Bsn: 100000})
	err := b.Check(Arrival{PTS: farDTS, DTS: farDTS, Bits: 200000})
	var oe *OverflowError
	if !errors.As(err, &oe) {
		t.Fatalf("expected overflow error, got: %v", err)
	}
	if oe.MinArrival != -1 {
		t.Errorf("did not get expected minimum arrival.\n Got: %d\n Want: -1\n", oe.MinArrival)
	}
}

func TestBucketErrors(t *testing.T) {
	tests := []struct {
		name string
		a    Arrival
		want error
	}{
		{"final before initial", Arrival{Initial: 10, Final: 5, PTS: farDTS, DTS: farDTS}, ErrTimestamp},
		{"before previous", Arrival{Initial: 50, Final: 60, PTS: farDTS, DTS: farDTS}, ErrTimestamp},
		{"dts after pts", Arrival{Initial: 200, Final: 300, PTS: 10, DTS: 20}, ErrTimestamp},
		{"late", Arrival{Initial: 200, Final: 301, PTS: 1, DTS: 1}, ErrUnderflow},
		{"on time", Arrival{Initial: 200, Final: 300, PTS: 1, DTS: 1, Bits: 8}, nil},
	}

	b := NewBucket(Params{Rxn: 1000000, Bsn: 100000})
	if err := b.Admit(Arrival{Initial: 0, Final: 100, PTS: farDTS, DTS: farDTS, Bits: 8}); err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	for _, test := range tests {
		err := b.Check(test.a)
		if !errors.Is(err, test.want) || (test.want == nil && err != nil) {
			t.Errorf("unexpected error for test %s.\n Got: %v\n Want: %v\n", test.name, err, test.want)
		}
	}
}

// TestMinArrival checks over random frame sequences that an overflowing
// frame fits when moved to its minimum arrival and not one tick earlier.
func TestMinArrival(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	b := NewBucket(Params{Rxn: 2000000, Bsn: 3584 * 8})

	var now int64
	var overflows int
	for i := 0; i < 2000; i++ {
		dur := rng.Int63n(20000)
		a := Arrival{
			Initial: now,
			Final:   now + dur,
			PTS:     farDTS,
			DTS:     farDTS,
			Bits:    uint64(rng.Intn(20000)),
		}
		err := b.Check(a)
		if err == nil {
			b.Admit(a)
			now = a.Final + rng.Int63n(50000)
			continue
		}

		var oe *OverflowError
		if !errors.As(err, &oe) {
			t.Fatalf("unexpected error: %v", err)
		}
		overflows++
		if oe.MinArrival < 0 {
			continue
		}

		early := a
		early.Initial, early.Final = oe.MinArrival-1, oe.MinArrival-1+dur
		if b.Check(early) == nil {
			t.Fatalf("frame fits before minimum arrival %d", oe.MinArrival)
		}
		a.Initial, a.Final = oe.MinArrival, oe.MinArrival+dur
		if err := b.Admit(a); err != nil {
			t.Fatalf("frame does not fit at minimum arrival %d: %v", oe.MinArrival, err)
		}
		if f := b.Fullness(a.Final); f > b.Params().Bsn {
			t.Fatalf("fullness %d exceeds buffer size", f)
		}
		now = a.Final
	}
	if overflows == 0 {
		t.Error("expected some overflows")
	}
}
