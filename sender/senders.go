/*
NAME
  senders.go

DESCRIPTION
  senders.go provides the destinations of multiplexed output: a file sender
  and a clip sender that segments packets into clips at PAT boundaries and
  forwards them through a pool buffer.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package sender provides destinations for MPEG-TS output.
package sender

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/ausocean/utils/pool"

	"github.com/ausocean/tsmux/container/mts"
)

// Pool buffer parameters.
const (
	poolReadTimeout = 1 * time.Second
	poolMaxAlloc    = 5 << 20 // 5MiB.
)

// minFreeSpace is the disk space a file write leaves free.
const minFreeSpace = 50000000 // 50MB.

var errShortPacket = errors.New("do not have full MTS packet")

// FileSender writes to a local file.
type FileSender struct {
	file        *os.File
	path        string
	maxFileSize uint // In bytes, 0 for no limit.
	log         logging.Logger
}

// NewFileSender returns a new FileSender writing to path. Once a file
// reaches maxFileSize, writes continue in a new file named with the time.
func NewFileSender(l logging.Logger, path string, maxFileSize uint) *FileSender {
	return &FileSender{path: path, log: l, maxFileSize: maxFileSize}
}

// Write implements io.Writer.
func (s *FileSender) Write(d []byte) (int, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs("/", &stat); err != nil {
		return 0, fmt.Errorf("could not read system disk space, abandoning write: %w", err)
	}
	available := stat.Bavail * uint64(stat.Bsize)
	if available < minFreeSpace {
		return 0, fmt.Errorf("reached limit of disk space with a buffer of %v bytes, abandoning write", minFreeSpace)
	}

	if s.maxFileSize != 0 && s.file != nil {
		fileInfo, err := s.file.Stat()
		if err != nil {
			return 0, fmt.Errorf("could not read files stats: %w", err)
		}
		if uint(fileInfo.Size())+uint(len(d)) > s.maxFileSize {
			s.log.Debug("new write would exceed max file size, closing existing file", "maxFileSize", s.maxFileSize)
			s.file.Close()
			s.file = nil
		}
	}

	if s.file == nil {
		name := s.path
		if _, err := os.Stat(name); err == nil && s.maxFileSize != 0 {
			name += "." + time.Now().Format("2006-01-02_15-04-05")
		}
		s.log.Debug("creating new output file", "fileName", name)
		f, err := os.Create(name)
		if err != nil {
			return 0, fmt.Errorf("could not create file to write media to: %w", err)
		}
		s.file = f
	}
	return s.file.Write(d)
}

// Close implements io.Closer.
func (s *FileSender) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

// ClipSender implements io.WriteCloser. Packets written to it are gathered
// into clips that begin with a PAT and last at least the clip duration, then
// passed through a pool buffer to the destination by an output routine.
// The continuity counters of every clip are checked on the way out.
type ClipSender struct {
	dst     io.WriteCloser
	buf     []byte
	checker *mts.ContinuityChecker
	clipDur time.Duration
	timeout time.Duration
	prev    time.Time
	done    chan struct{}
	log     logging.Logger
	wg      sync.WaitGroup

	mu       sync.Mutex
	pool     *pool.Buffer
	elemSize int // Element size of pool.
	capacity int // Bytes the pool occupies.
	errors   int // Continuity errors seen.
	dropped  int // Clips lost to a full pool.
}

// NewClipSender returns a new ClipSender forwarding clips of clipDur through
// a pool buffer of capacity bytes, made of elements of elemSize bytes, to
// dst. A write to a full pool waits for at most timeout.
func NewClipSender(dst io.WriteCloser, log logging.Logger, capacity, elemSize int, timeout, clipDur time.Duration) *ClipSender {
	log.Debug("setting up clip sender", "clip duration", clipDur, "pool capacity", capacity, "element size", elemSize)
	pool.MaxAlloc(poolMaxAlloc)
	s := &ClipSender{
		dst:      dst,
		checker:  mts.NewContinuityChecker(),
		log:      log,
		pool:     pool.NewBuffer(capacity/elemSize, elemSize, timeout),
		elemSize: elemSize,
		capacity: capacity,
		timeout:  timeout,
		done:     make(chan struct{}),
		clipDur:  clipDur,
	}
	s.wg.Add(1)
	go s.output()
	return s
}

// output writes clips from the pool buffer to the destination until the
// sender is closed and the pool drained.
func (s *ClipSender) output() {
	defer s.wg.Done()
	for {
		chunk, err := s.buffer().Next(poolReadTimeout)
		switch err {
		case nil:
		case io.EOF, pool.ErrTimeout:
			select {
			case <-s.done:
				s.log.Info("terminating sender output routine")
				return
			default:
				continue
			}
		default:
			s.log.Error("unexpected error", "error", err.Error())
			continue
		}

		err = s.checker.CheckAll(chunk.Bytes())
		if err != nil {
			s.log.Warning("continuity error in clip", "error", err)
			s.mu.Lock()
			s.errors++
			s.mu.Unlock()
		}
		_, err = s.dst.Write(chunk.Bytes())
		if err != nil {
			s.log.Error("failed clip write", "error", err)
		}
		chunk.Close()
	}
}

// Write implements io.Writer. d must hold whole packets.
func (s *ClipSender) Write(d []byte) (int, error) {
	if len(d)%mts.PacketSize != 0 || len(d) == 0 {
		return 0, errShortPacket
	}
	for i := 0; i < len(d); i += mts.PacketSize {
		pkt := d[i : i+mts.PacketSize]
		pid, _ := mts.PID(pkt)
		if pid == mts.PatPid && len(s.buf) > 0 && time.Since(s.prev) >= s.clipDur {
			err := s.flush()
			if err != nil {
				return i, err
			}
		}
		s.buf = append(s.buf, pkt...)
	}
	return len(d), nil
}

// flush writes the current clip to the pool buffer. A clip that would
// replace older clips in a full pool is still sent; the oldest clips are
// lost and counted.
func (s *ClipSender) flush() error {
	if len(s.buf) == 0 {
		return nil
	}
	s.log.Debug("writing clip to pool buffer for sending", "size", len(s.buf))
	s.prev = time.Now()
	defer func() { s.buf = s.buf[:0] }()

	rb := s.buffer()
	n, err := rb.Write(s.buf)
	if err == pool.ErrTooLong {
		rb = s.grow(len(s.buf))
		n, err = rb.Write(s.buf)
	}
	switch err {
	case nil:
	case pool.ErrDropped:
		s.log.Warning("pool buffer full, dropped oldest clip", "writeSize", len(s.buf))
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	case pool.ErrTimeout:
		s.log.Warning("pool buffer write timed out, dropped clip", "n", n, "writeSize", len(s.buf))
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
		return nil
	default:
		s.log.Warning("pool buffer write error", "error", err.Error(), "n", n, "writeSize", len(s.buf))
		return fmt.Errorf("could not write clip to pool buffer: %w", err)
	}
	rb.Flush()
	return nil
}

// grow replaces the pool with one whose elements fit a clip of size bytes.
// Clips pending in the old pool are lost.
func (s *ClipSender) grow(size int) *pool.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elemSize = size * 2
	s.pool = pool.NewBuffer(max(s.capacity/s.elemSize, 1), s.elemSize, s.timeout)
	s.log.Info("adjusted pool buffer element size", "new size", s.elemSize)
	return s.pool
}

func (s *ClipSender) buffer() *pool.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool
}

// DroppedClips returns the number of clips lost to a full pool buffer.
func (s *ClipSender) DroppedClips() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// ContinuityErrors returns the number of clips that failed continuity checks.
func (s *ClipSender) ContinuityErrors() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors
}

// Close flushes the last clip, waits for the output routine to deliver all
// clips and closes the destination.
func (s *ClipSender) Close() error {
	s.log.Debug("closing sender output routine")
	err := s.flush()
	close(s.done)
	s.wg.Wait()
	s.log.Info("sender output routine closed")
	if err != nil {
		s.dst.Close()
		return err
	}
	return s.dst.Close()
}
