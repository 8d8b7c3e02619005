/*
NAME
  muxer.go

DESCRIPTION
  muxer.go provides Muxer, which multiplexes elementary stream frames of any
  number of programs into an MPEG-TS, inserting service information tables
  and PCRs and enforcing the decoder buffer model.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mts

import (
	"bytes"
	"fmt"
	"math"
	"math/bits"
	"sort"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/ausocean/utils/realtime"

	"github.com/ausocean/tsmux/codec/h264"
	"github.com/ausocean/tsmux/codec/h265"
	"github.com/ausocean/tsmux/config"
	"github.com/ausocean/tsmux/container/mts/pes"
	"github.com/ausocean/tsmux/container/mts/psi"
	"github.com/ausocean/tsmux/container/mts/tstd"
)

// Used to consistently read and write program metadata entries.
const (
	WriteRateKey = "writeRate"
	TimestampKey = "ts"
	LocationKey  = "loc"
)

var nullPayload = bytes.Repeat([]byte{0xff}, PayloadSize)

// clock maps packet slots to departure times in system clock ticks. Packet
// n after the epoch departs at epoch + n*PacketSize*8/rate seconds.
type clock struct {
	rate    uint64 // bit/s
	epoch   int64
	n       uint64
	origin  int64 // Departure time of the first packet.
	started bool
}

func (c *clock) now() int64 { return c.epoch + slotTime(c.n, c.rate) }

func (c *clock) tick() { c.n++ }

func (c *clock) start(t int64) {
	c.epoch, c.origin, c.n, c.started = t, t, 0, true
}

// jump moves the next packet slot to t.
func (c *clock) jump(t int64) { c.epoch, c.n = t, 0 }

// rebase changes the rate from the next packet slot on.
func (c *clock) rebase(rate uint64) {
	c.epoch, c.n, c.rate = c.now(), 0, rate
}

// slotTime returns the ticks taken to send n packets at rate bit/s.
func slotTime(n, rate uint64) int64 {
	hi, lo := bits.Mul64(n, PacketSize*8*tstd.SystemClock)
	if hi >= rate {
		return math.MaxInt64
	}
	q, _ := bits.Div64(hi, lo, rate)
	if q > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(q)
}

// state is the mutable state of a Muxer. Writes work on a copy, which
// replaces the Muxer's state only when the whole write succeeds.
type state struct {
	reg   *Registry
	sched *Scheduler
	clk   clock
}

// Muxer multiplexes frames into an MPEG-TS. It is not safe for concurrent
// use.
type Muxer struct {
	cfg   config.Config
	log   logging.Logger
	reg   *Registry
	sched *Scheduler
	clk   clock

	skipInvalid bool
	detectRAP   bool
	wall        *realtime.RealTime

	pktSpace [PacketSize]byte
	pesSpace []byte
}

// NewMuxer returns a Muxer for the multiplex described by c, which is
// validated and defaulted.
func NewMuxer(c config.Config, log logging.Logger, options ...func(*Muxer) error) (*Muxer, error) {
	if c.Logger == nil {
		c.Logger = log
	}
	err := c.Validate()
	if err != nil {
		return nil, newError(ErrConfiguration, "NewMuxer", err)
	}

	m := &Muxer{
		cfg:   c,
		log:   log,
		reg:   NewRegistry(c.Profile, uint16(c.NetworkPID), c.LegacyConstraints),
		sched: NewScheduler(c),
		clk:   clock{rate: uint64(c.MuxRate)},
	}
	for _, option := range options {
		err := option(m)
		if err != nil {
			return nil, fmt.Errorf("option failed with error: %w", err)
		}
	}
	log.Debug("muxer created", "profile", c.Profile, "mux rate", c.MuxRate, "CBR", c.CBR)
	return m, nil
}

// Config returns the Muxer's validated configuration.
func (m *Muxer) Config() config.Config { return m.cfg }

// AddProgram adds an empty program. The PAT is reinserted at the next
// opportunity.
func (m *Muxer) AddProgram(pc ProgramConfig) error {
	err := m.reg.AddProgram(pc)
	if err != nil {
		return err
	}
	m.sched.forget(Entry{Kind: KindPAT})
	m.sched.forget(Entry{Kind: KindSDT})
	m.log.Info("program added", "program", pc.Number, "PMT PID", pc.PMTPID)
	return nil
}

// AddStream adds a stream to a program and returns a snapshot of it. The
// program's PMT is reinserted at the next opportunity.
func (m *Muxer) AddStream(program uint16, sc StreamConfig) (*Stream, error) {
	s, err := m.reg.AddStream(program, sc)
	if err != nil {
		return nil, err
	}
	m.sched.forget(Entry{Kind: KindPMT, Program: program})
	m.log.Info("stream added", "program", program, "PID", sc.PID, "stream type", s.StreamType)
	return s, nil
}

// RemoveStream removes the stream on pid. The program's PMT is reinserted
// at the next opportunity.
func (m *Muxer) RemoveStream(pid uint16) error {
	s, err := m.reg.Stream(pid)
	if err != nil {
		return newError(ErrNotFound, "RemoveStream", fmt.Errorf("%w: %d", ErrUnknownPID, pid))
	}
	program := s.Program
	err = m.reg.RemoveStream(pid)
	if err != nil {
		return err
	}
	m.sched.forget(Entry{Kind: KindPMT, Program: program})
	m.log.Info("stream removed", "program", program, "PID", pid)
	return nil
}

// Stream returns a snapshot of the stream on pid.
func (m *Muxer) Stream(pid uint16) (*Stream, error) {
	s, err := m.reg.Stream(pid)
	if err != nil {
		return nil, err
	}
	snap := *s
	return &snap, nil
}

// Program returns a snapshot of the program with the given number.
func (m *Muxer) Program(number uint16) (*Program, error) {
	p, err := m.reg.Program(number)
	if err != nil {
		return nil, err
	}
	return p.clone(), nil
}

// SetMeta sets a metadata entry of a program.
func (m *Muxer) SetMeta(program uint16, key, val string) error {
	err := m.reg.SetMeta(program, key, val)
	if err != nil {
		return err
	}
	m.sched.forget(Entry{Kind: KindPMT, Program: program})
	return nil
}

// DeleteMeta deletes a metadata entry of a program.
func (m *Muxer) DeleteMeta(program uint16, key string) error {
	err := m.reg.DeleteMeta(program, key)
	if err != nil {
		return err
	}
	m.sched.forget(Entry{Kind: KindPMT, Program: program})
	return nil
}

// Update replaces the Muxer's configuration. The profile and network PID
// cannot change. Tables affected by a change have their versions bumped
// and are reinserted at the next opportunity. If the mux rate changes,
// the new rate applies from the next packet.
func (m *Muxer) Update(c config.Config) error {
	const op = "Update"
	if c.Logger == nil {
		c.Logger = m.log
	}
	err := c.Validate()
	if err != nil {
		return newError(ErrConfiguration, op, err)
	}
	if c.Profile != m.cfg.Profile || c.NetworkPID != m.cfg.NetworkPID {
		return newError(ErrConfiguration, op, ErrImmutable)
	}

	reg := m.reg.clone()
	reg.setLegacy(c.LegacyConstraints)
	if c.LegacyConstraints && !m.cfg.LegacyConstraints {
		err := m.fitSections(reg, c)
		if err != nil {
			return newError(classify(err), op, err)
		}
	}

	sched := m.sched.clone()
	if c.TSID != m.cfg.TSID {
		reg.bumpPAT()
		sched.forget(Entry{Kind: KindPAT})
		sched.forget(Entry{Kind: KindSDT})
		sched.forget(Entry{Kind: KindNIT})
	}
	if c.NetworkID != m.cfg.NetworkID || c.OriginalNetworkID != m.cfg.OriginalNetworkID || c.NetworkName != m.cfg.NetworkName {
		reg.bumpSI()
		sched.forget(Entry{Kind: KindSDT})
		sched.forget(Entry{Kind: KindNIT})
	}
	sched.setPeriods(c)
	if uint64(c.MuxRate) != m.clk.rate {
		m.clk.rebase(uint64(c.MuxRate))
		m.log.Info("mux rate changed", "rate", c.MuxRate)
	}
	m.reg, m.sched, m.cfg = reg, sched, c
	return nil
}

// fitSections renders every table reg would carry under c so that a
// section exceeding the registry's limit is found before c is applied.
func (m *Muxer) fitSections(reg *Registry, c config.Config) error {
	tsid, onid := uint16(c.TSID), uint16(c.OriginalNetworkID)
	_, err := reg.pat(tsid)
	if err != nil {
		return err
	}
	for _, p := range reg.programs {
		_, err = reg.pmt(p)
		if err != nil {
			return err
		}
	}
	if m.sched.enabled(KindSDT) {
		_, err = reg.sdt(tsid, onid)
		if err != nil {
			return err
		}
	}
	if m.sched.enabled(KindNIT) {
		_, err = reg.nit(uint16(c.NetworkID), tsid, onid, c.NetworkName)
	}
	return err
}

// WriteFrames multiplexes a batch of frames and returns the resulting
// packets. Frames are sent in order of initial arrival. Each frame is
// first checked against the buffer model of its stream; an invalid frame
// fails the whole batch, leaving the Muxer unchanged, unless the Muxer was
// created with SkipInvalid. An empty batch produces no packets.
func (m *Muxer) WriteFrames(frames []Frame) (*Output, error) {
	out := &Output{}
	if len(frames) == 0 {
		return out, nil
	}

	batch := make([]Frame, len(frames))
	copy(batch, frames)
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].InitialArrival < batch[j].InitialArrival
	})

	st := &state{reg: m.reg.clone(), sched: m.sched.clone(), clk: m.clk}
	batch, err := m.validate(st, batch)
	if err != nil {
		return nil, err
	}
	for i := range batch {
		err = m.writeFrame(st, out, &batch[i])
		if err != nil {
			return nil, err
		}
	}

	m.reg, m.sched, m.clk = st.reg, st.sched, st.clk
	m.log.Debug("frames written", "frames", len(batch), "packets", out.Packets())
	return out, nil
}

// validate admits frames to the buffer models of their streams, returning
// the frames that are valid.
func (m *Muxer) validate(st *state, frames []Frame) ([]Frame, error) {
	valid := frames[:0]
	for _, f := range frames {
		err := m.check(st, &f)
		if err == nil {
			valid = append(valid, f)
			continue
		}
		if !m.skipInvalid {
			return nil, err
		}
		m.log.Warning("skipping invalid frame", "PID", f.PID, "PTS", f.PTS, "error", err)
	}
	return valid, nil
}

func (m *Muxer) check(st *state, f *Frame) error {
	const op = "WriteFrames"
	s, ok := st.reg.streams[f.PID]
	if !ok {
		return newError(ErrNotFound, op, fmt.Errorf("%w: %d", ErrUnknownPID, f.PID))
	}
	if f.PTS < 0 || f.DTS < 0 || f.InitialArrival < 0 || f.FinalArrival < 0 {
		return newError(ErrValidation, op, fmt.Errorf("%w: PID %d", ErrTimestamp, f.PID))
	}
	p := pesPacket(s, f)
	n := p.HeaderLen() + len(p.Data)
	if n-6 > pes.MaxPesLen && !pes.Unbounded(s.StreamID) {
		return newError(ErrValidation, op, fmt.Errorf("%w: PID %d, %d bytes", ErrPESTooLong, f.PID, n))
	}
	err := s.Bucket.Admit(tstd.Arrival{
		Initial: f.InitialArrival,
		Final:   f.FinalArrival,
		PTS:     f.PTS,
		DTS:     f.DTS,
		Bits:    uint64(n) * 8,
	})
	if err != nil {
		return newError(ErrValidation, op, fmt.Errorf("PID %d PTS %d: %w", f.PID, f.PTS, err))
	}
	return nil
}

// pesPacket returns the PES packet carrying f.
func pesPacket(s *Stream, f *Frame) pes.Packet {
	p := pes.Packet{
		StreamID: s.StreamID,
		Priority: f.Priority,
		DAI:      true,
		PDI:      pes.HasPTSDTS,
		PTS:      uint64(f.PTS),
		DTS:      uint64(f.DTS),
		Data:     f.Data,
	}
	if f.DTS == f.PTS {
		p.PDI = pes.HasPTS
	}
	return p
}

// randomAccess returns true if the access unit au of a stream of format f
// can be decoded independently.
func randomAccess(f Format, au []byte) bool {
	switch f {
	case AVC:
		return h264.IsRandomAccess(au)
	case HEVC:
		return h265.IsRandomAccess(au)
	}
	return false
}

func (m *Muxer) writeFrame(st *state, out *Output, f *Frame) error {
	if !st.clk.started {
		st.clk.start(f.InitialArrival)
	}
	err := m.fill(st, out, f.InitialArrival)
	if err != nil {
		return err
	}

	s := st.reg.streams[f.PID]
	pp := pesPacket(s, f)
	m.pesSpace = pp.Bytes(m.pesSpace)
	buf := m.pesSpace
	rap := f.RandomAccess || (m.detectRAP && randomAccess(s.Format, f.Data))

	var last int64
	for first := true; len(buf) != 0; first = false {
		pcr, err := m.emitDue(st, out, f.PID)
		if err != nil {
			return err
		}
		pkt := Packet{
			PUSI:     first,
			Priority: f.Priority,
			PID:      f.PID,
			RAI:      first && rap,
			PCRF:     pcr,
		}
		if pcr {
			pkt.PCR = uint64(st.clk.now())
		}
		n := pkt.FillPayload(buf)
		buf = buf[n:]
		pkt.CC = st.reg.nextCC(f.PID)
		last = m.put(st, out, &pkt)
		if pcr {
			st.sched.Mark(Entry{Kind: KindPCR, Program: s.Program}, last)
		}
	}

	// A frame with no arrival window is bounded by its decode time alone.
	if f.FinalArrival > f.InitialArrival && last > f.FinalArrival {
		return newError(ErrValidation, "WriteFrames", fmt.Errorf("%w: PID %d PTS %d departs at %d, final arrival %d", ErrMuxRate, f.PID, f.PTS, last, f.FinalArrival))
	}
	if decode := f.DTS * tstd.TicksPerTimestamp; last > decode {
		return newError(ErrValidation, "WriteFrames", fmt.Errorf("%w: PID %d PTS %d departs at %d, decode time %d", tstd.ErrUnderflow, f.PID, f.PTS, last, decode))
	}
	return nil
}

// fill brings the clock up to t. Due tables and PCRs are inserted on the
// way. Any remaining gap is filled with null packets under CBR, otherwise
// the clock skips it.
func (m *Muxer) fill(st *state, out *Output, t int64) error {
	for st.clk.now() < t {
		n := out.Packets()
		_, err := m.emitDue(st, out, NullPid)
		if err != nil {
			return err
		}
		if out.Packets() != n {
			continue
		}
		if m.cfg.CBR {
			m.put(st, out, &Packet{PID: NullPid, Payload: nullPayload})
			continue
		}
		next := st.sched.Next(st.reg.programs)
		if next > t {
			next = t
		}
		st.clk.jump(next)
	}
	return nil
}

// emitDue inserts the tables and PCRs due now. A PCR due on pid is not
// inserted; emitDue returns true so that the caller carries it.
func (m *Muxer) emitDue(st *state, out *Output, pid uint16) (bool, error) {
	var carry bool
	for _, e := range st.sched.Due(st.clk.now(), st.reg.programs) {
		if e.Kind != KindPCR {
			err := m.writeTable(st, out, e)
			if err != nil {
				return false, err
			}
			continue
		}
		p, err := st.reg.Program(e.Program)
		if err != nil {
			return false, err
		}
		if p.PCRPID == pid {
			carry = true
			continue
		}
		pkt := Packet{PID: p.PCRPID, CC: st.reg.lastCC(p.PCRPID), PCRF: true, PCR: uint64(st.clk.now())}
		st.sched.Mark(e, m.put(st, out, &pkt))
	}
	return carry, nil
}

// writeTable inserts the section of e, split across as many packets as it
// needs.
func (m *Muxer) writeTable(st *state, out *Output, e Entry) error {
	section, pid, err := m.section(st, e)
	if err != nil {
		return newError(classify(err), "WriteFrames", fmt.Errorf("%v: %w", e.Kind, err))
	}
	data := psi.AddPadding(psi.AddPointer(section))
	t := st.clk.now()
	for i := 0; i < len(data); i += PayloadSize {
		m.put(st, out, &Packet{
			PUSI:    i == 0,
			PID:     pid,
			CC:      st.reg.nextCC(pid),
			Payload: data[i : i+PayloadSize],
		})
	}
	st.sched.Mark(e, t)
	return nil
}

// section renders the section of e and returns it with its PID.
func (m *Muxer) section(st *state, e Entry) ([]byte, uint16, error) {
	tsid := uint16(m.cfg.TSID)
	onid := uint16(m.cfg.OriginalNetworkID)
	switch e.Kind {
	case KindPAT:
		b, err := st.reg.pat(tsid)
		return b, PatPid, err
	case KindPMT:
		p, err := st.reg.Program(e.Program)
		if err != nil {
			return nil, 0, err
		}
		b, err := st.reg.pmt(p)
		return b, p.PMTPID, err
	case KindSDT:
		b, err := st.reg.sdt(tsid, onid)
		return b, SdtPid, err
	case KindNIT:
		b, err := st.reg.nit(uint16(m.cfg.NetworkID), tsid, onid, m.cfg.NetworkName)
		return b, st.reg.networkPID, err
	case KindTDT:
		b, err := (&psi.TDT{UTC: m.utc(st)}).Encode(st.reg.maxSection)
		return b, TdtPid, err
	case KindTOT:
		tot := &psi.TOT{UTC: m.utc(st)}
		if m.cfg.Country != "" {
			d, err := (&psi.LocalTimeOffset{Regions: []psi.TimeOffsetRegion{{
				Country:    m.cfg.Country,
				Offset:     m.cfg.LocalOffset,
				ChangeTime: tot.UTC,
				NextOffset: m.cfg.LocalOffset,
			}}}).Encode()
			if err != nil {
				return nil, 0, err
			}
			tot.Descriptors = []psi.Descriptor{d}
		}
		b, err := tot.Encode(st.reg.maxSection)
		return b, TdtPid, err
	default:
		panic(fmt.Sprintf("no section for %v", e.Kind))
	}
}

// utc returns the time carried by the TDT and TOT: the wall clock if it is
// set, otherwise the start time advanced by the multiplex clock.
func (m *Muxer) utc(st *state) time.Time {
	if m.wall != nil && m.wall.IsSet() {
		return m.wall.Get().UTC()
	}
	elapsed := time.Duration((st.clk.now()-st.clk.origin)/(tstd.SystemClock/1e6)) * time.Microsecond
	return m.cfg.StartTime.Add(elapsed).UTC()
}

// put appends pkt to out at the current slot and returns its departure
// time.
func (m *Muxer) put(st *state, out *Output, pkt *Packet) int64 {
	t := st.clk.now()
	pcr := int64(NoPCR)
	if pkt.PCRF {
		pcr = int64(pkt.PCR)
	}
	out.append(pkt.Bytes(m.pktSpace[:]), pcr, t)
	st.clk.tick()
	return t
}
