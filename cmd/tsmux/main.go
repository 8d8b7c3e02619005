/*
NAME
  main.go

DESCRIPTION
  tsmux multiplexes a synthetic programme of H.264 video and AAC audio into
  an MPEG transport stream file. Every configuration variable may be given
  as a flag of the same name.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/ausocean/utils/realtime"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/tsmux/config"
	"github.com/ausocean/tsmux/container/mts"
	"github.com/ausocean/tsmux/container/mts/tstd"
	"github.com/ausocean/tsmux/sender"
)

// Current software version.
const version = "v0.1.0"

// Logging configuration.
const (
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
)

// Programme layout.
const (
	programNumber = 1
	pmtPID        = 0x1000
	videoPID      = 0x100
	audioPID      = 0x101
	serviceName   = "tsmux"
	providerName  = "AusOcean"
)

// Output configuration.
const (
	clipDuration    = time.Second
	poolElementSize = 10000 // Bytes.
	pendingBatches  = 4
)

func main() {
	showVersion := flag.Bool("version", false, "show version")
	vars := make(map[string]string)
	for _, v := range config.Variables {
		name := v.Name
		flag.Func(name, "set "+name+" ("+v.Type+")", func(s string) error {
			vars[name] = s
			return nil
		})
	}
	flag.Parse()
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Configuration is parsed with a stderr logger until the log path is known.
	cfg := config.Config{Logger: logging.New(logging.Info, os.Stderr, false)}
	cfg.Update(vars)
	err := cfg.Validate()
	if err != nil {
		panic(fmt.Sprintf("could not validate config: %v", err))
	}

	// Create lumberjack logger to handle logging to file.
	fileLog := &lumberjack.Logger{
		Filename:   cfg.LogPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	defer fileLog.Close()
	log := logging.New(cfg.LogLevel, io.MultiWriter(os.Stderr, fileLog), cfg.Suppress)
	cfg.Logger = log

	log.Info("starting tsmux", "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg, log)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("multiplexing failed", "error", err.Error())
	}
	log.Info("finished", "output", cfg.OutputPath)
}

// run multiplexes cfg.Duration of the synthetic programme to the output
// file. A producer routine owns the muxer and passes its output to a writer
// routine, which segments it into clips for the file sender.
func run(ctx context.Context, cfg config.Config, log logging.Logger) error {
	rt := realtime.NewRealTime()
	rt.Set(time.Now())

	m, err := newMuxer(cfg, log, rt)
	if err != nil {
		return err
	}

	p, err := newProgramme(videoPID, audioPID, cfg.FrameRate, cfg.MuxRate, time.Now().UnixNano())
	if err != nil {
		return err
	}

	dst := sender.NewClipSender(
		sender.NewFileSender(log, cfg.OutputPath, 0),
		log,
		int(cfg.PoolCapacity),
		poolElementSize,
		time.Duration(cfg.PoolWriteTimeout)*time.Second,
		clipDuration,
	)

	seconds := int(cfg.Duration / time.Second)
	batches := make(chan []byte, pendingBatches)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)
		for i := 0; i < seconds; i++ {
			err := m.SetMeta(programNumber, mts.TimestampKey, strconv.FormatInt(rt.Get().Unix(), 10))
			if err != nil {
				return fmt.Errorf("could not set timestamp: %w", err)
			}
			frames, err := p.next()
			if err != nil {
				return err
			}
			out, err := m.WriteFrames(frames)
			if err != nil {
				return fmt.Errorf("could not multiplex second %d: %w", i, err)
			}
			log.Debug("multiplexed frames", "second", i, "frames", len(frames), "packets", out.Packets())
			select {
			case batches <- out.Data:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		var n int
		for d := range batches {
			_, err := dst.Write(d)
			if err != nil {
				return fmt.Errorf("could not write output: %w", err)
			}
			n += len(d) / mts.PacketSize
		}
		log.Info("wrote packets", "packets", n)
		return nil
	})

	err = g.Wait()
	cerr := dst.Close()
	if err != nil {
		return err
	}
	if cerr != nil {
		return fmt.Errorf("could not close output: %w", cerr)
	}
	if n := dst.ContinuityErrors(); n != 0 {
		log.Warning("output has continuity errors", "clips", n)
	}
	if n := dst.DroppedClips(); n != 0 {
		log.Warning("output lost clips to a full pool buffer", "clips", n)
	}
	return nil
}

// newMuxer returns a muxer carrying the synthetic programme.
func newMuxer(cfg config.Config, log logging.Logger, rt *realtime.RealTime) (*mts.Muxer, error) {
	m, err := mts.NewMuxer(cfg, log, mts.WallClock(rt), mts.DetectRandomAccess())
	if err != nil {
		return nil, fmt.Errorf("could not create muxer: %w", err)
	}
	err = m.AddProgram(mts.ProgramConfig{
		Number:       programNumber,
		PMTPID:       pmtPID,
		ServiceName:  serviceName,
		ProviderName: providerName,
	})
	if err != nil {
		return nil, fmt.Errorf("could not add program: %w", err)
	}
	_, err = m.AddStream(programNumber, mts.StreamConfig{PID: videoPID, Format: mts.AVC, AVCProfile: tstd.AVCMain, AVCLevel: 40})
	if err != nil {
		return nil, fmt.Errorf("could not add video stream: %w", err)
	}
	_, err = m.AddStream(programNumber, mts.StreamConfig{PID: audioPID, Format: mts.ADTS, Channels: audioChannels, Language: "eng"})
	if err != nil {
		return nil, fmt.Errorf("could not add audio stream: %w", err)
	}
	err = m.SetMeta(programNumber, mts.WriteRateKey, strconv.FormatUint(uint64(cfg.FrameRate), 10))
	if err != nil {
		return nil, fmt.Errorf("could not set write rate: %w", err)
	}
	return m, nil
}
