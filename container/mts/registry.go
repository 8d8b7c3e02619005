/*
NAME
  registry.go

DESCRIPTION
  registry.go provides the registry of programs and elementary streams of a
  multiplex, with their continuity counters, table versions and buffer
  model state.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mts

import (
	"errors"
	"fmt"

	"github.com/ausocean/tsmux/config"
	"github.com/ausocean/tsmux/container/mts/meta"
	"github.com/ausocean/tsmux/container/mts/psi"
	"github.com/ausocean/tsmux/container/mts/tstd"
)

const (
	ccMask     = 0xf
	versionMod = 32
)

// ProgramConfig describes a program to be added to a multiplex.
type ProgramConfig struct {
	Number uint16 // Program number, non-zero.
	PMTPID uint16

	// PCRPID is the PID carrying the program's PCR. It may be the PID of a
	// stream added later, or a PID used only for PCR. If zero, the first
	// stream added carries the PCR.
	PCRPID uint16

	Is3D         bool
	ServiceName  string // SDT service name.
	ProviderName string // SDT service provider name.
}

// Program is a program of the multiplex.
type Program struct {
	Number       uint16
	PMTPID       uint16
	PCRPID       uint16 // NullPid while the program has nothing to carry a PCR.
	Is3D         bool
	ServiceName  string
	ProviderName string
	Meta         *meta.Data // Carried in the PMT metadata descriptor, may be nil.
	Version      byte       // PMT version.

	streams      []uint16
	dedicatedPCR bool // PCRPID carries no stream.
	firstPCR     bool // PCRPID follows the first stream added.
}

// Streams returns the PIDs of the program's streams in PMT order.
func (p *Program) Streams() []uint16 {
	return append([]uint16(nil), p.streams...)
}

func (p *Program) clone() *Program {
	c := *p
	c.streams = append([]uint16(nil), p.streams...)
	if p.Meta != nil {
		c.Meta = p.Meta.Clone()
	}
	return &c
}

// Stream is an elementary stream of the multiplex.
type Stream struct {
	PID         uint16
	Format      Format
	Program     uint16
	StreamType  byte
	StreamID    byte // PES stream_id.
	Descriptors []psi.Descriptor
	Bucket      tstd.Bucket

	cc byte // Next continuity counter.
}

// CC returns the continuity counter of the next payload packet of s.
func (s *Stream) CC() byte { return s.cc }

// Registry holds the programs and streams of a multiplex. It is not safe
// for concurrent use.
type Registry struct {
	profile    uint8
	networkPID uint16
	maxSection int

	programs []*Program
	streams  map[uint16]*Stream
	cc       map[uint16]byte // Next continuity counters of table PIDs.

	patVersion byte
	sdtVersion byte
	nitVersion byte
}

// NewRegistry returns an empty registry for a multiplex of the given
// profile, with the NIT on networkPID.
func NewRegistry(profile uint8, networkPID uint16, legacy bool) *Registry {
	r := &Registry{
		profile:    profile,
		networkPID: networkPID,
		maxSection: psi.MaxSectionLen,
		streams:    make(map[uint16]*Stream),
		cc:         make(map[uint16]byte),
	}
	r.setLegacy(legacy)
	return r
}

func (r *Registry) setLegacy(legacy bool) {
	r.maxSection = psi.MaxSectionLen
	if legacy {
		r.maxSection = psi.LegacySectionLen
	}
}

// clone returns a deep copy of r.
func (r *Registry) clone() *Registry {
	c := *r
	c.programs = make([]*Program, len(r.programs))
	for i, p := range r.programs {
		c.programs[i] = p.clone()
	}
	c.streams = make(map[uint16]*Stream, len(r.streams))
	for pid, s := range r.streams {
		cs := *s
		c.streams[pid] = &cs
	}
	c.cc = make(map[uint16]byte, len(r.cc))
	for pid, cc := range r.cc {
		c.cc[pid] = cc
	}
	return &c
}

// Programs returns the programs in the order they were added.
func (r *Registry) Programs() []*Program {
	return append([]*Program(nil), r.programs...)
}

// Program returns the program with the given number.
func (r *Registry) Program(number uint16) (*Program, error) {
	for _, p := range r.programs {
		if p.Number == number {
			return p, nil
		}
	}
	return nil, newError(ErrNotFound, "Program", fmt.Errorf("%w: %d", ErrUnknownProgram, number))
}

// Stream returns the stream on pid.
func (r *Registry) Stream(pid uint16) (*Stream, error) {
	s, ok := r.streams[pid]
	if !ok {
		return nil, newError(ErrNotFound, "Stream", fmt.Errorf("%w: %d", ErrUnknownPID, pid))
	}
	return s, nil
}

// reserved returns true if pid is fixed by the standards or the network.
func (r *Registry) reserved(pid uint16) bool {
	switch {
	case pid < MinPID, pid > MaxPID, pid == r.networkPID, pid == SdtPid, pid == TdtPid:
		return true
	}
	return false
}

// inUse returns true if pid carries a stream, a PMT or a dedicated PCR.
func (r *Registry) inUse(pid uint16) bool {
	if _, ok := r.streams[pid]; ok {
		return true
	}
	for _, p := range r.programs {
		if p.PMTPID == pid || (p.dedicatedPCR && p.PCRPID == pid) {
			return true
		}
	}
	return false
}

// AddProgram adds an empty program. The PAT and SDT versions are bumped.
func (r *Registry) AddProgram(pc ProgramConfig) error {
	const op = "AddProgram"
	if pc.Number == 0 {
		return newError(ErrConfiguration, op, ErrInvalidProgram)
	}
	for _, p := range r.programs {
		if p.Number == pc.Number {
			return newError(ErrConfiguration, op, fmt.Errorf("%w: %d", ErrDuplicateProgram, pc.Number))
		}
	}
	if r.reserved(pc.PMTPID) {
		return newError(ErrConfiguration, op, fmt.Errorf("%w: PMT PID %#x", ErrInvalidPID, pc.PMTPID))
	}
	if r.inUse(pc.PMTPID) {
		return newError(ErrConfiguration, op, fmt.Errorf("%w: PMT PID %#x", ErrDuplicatePID, pc.PMTPID))
	}

	p := &Program{
		Number:       pc.Number,
		PMTPID:       pc.PMTPID,
		PCRPID:       pc.PCRPID,
		Is3D:         pc.Is3D,
		ServiceName:  pc.ServiceName,
		ProviderName: pc.ProviderName,
	}
	switch {
	case pc.PCRPID == 0:
		p.PCRPID = NullPid
		p.firstPCR = true
	case r.reserved(pc.PCRPID):
		return newError(ErrConfiguration, op, fmt.Errorf("%w: PCR PID %#x", ErrInvalidPID, pc.PCRPID))
	case pc.PCRPID == pc.PMTPID || r.inUse(pc.PCRPID):
		return newError(ErrConfiguration, op, fmt.Errorf("%w: PCR PID %#x", ErrDuplicatePID, pc.PCRPID))
	default:
		p.dedicatedPCR = true
	}

	r.programs = append(r.programs, p)
	r.bumpPAT()
	return nil
}

func (r *Registry) bumpPAT() {
	r.patVersion = (r.patVersion + 1) % versionMod
	r.bumpSI()
}

// bumpSI bumps the versions of the tables describing services.
func (r *Registry) bumpSI() {
	r.sdtVersion = (r.sdtVersion + 1) % versionMod
	r.nitVersion = (r.nitVersion + 1) % versionMod
}

// AddStream adds a stream to a program, deriving its PMT entry and buffer
// model from sc. The new stream's continuity counter and buffer start empty
// and the program's PMT version is bumped. The returned stream is a
// snapshot.
func (r *Registry) AddStream(program uint16, sc StreamConfig) (*Stream, error) {
	const op = "AddStream"
	p, err := r.Program(program)
	if err != nil {
		return nil, newError(ErrNotFound, op, errors.Unwrap(err))
	}
	if r.reserved(sc.PID) {
		return nil, newError(ErrConfiguration, op, fmt.Errorf("%w: %#x", ErrInvalidPID, sc.PID))
	}
	if r.inUse(sc.PID) && !(p.dedicatedPCR && p.PCRPID == sc.PID) {
		return nil, newError(ErrConfiguration, op, fmt.Errorf("%w: %#x", ErrDuplicatePID, sc.PID))
	}

	info, err := sc.describe(r.profile)
	if err != nil {
		return nil, newError(classify(err), op, err)
	}
	s := &Stream{
		PID:         sc.PID,
		Format:      sc.Format,
		Program:     program,
		StreamType:  info.streamType,
		StreamID:    info.streamID,
		Descriptors: info.descriptors,
		Bucket:      tstd.NewBucket(info.params),
	}

	// Render the PMT as it will be to catch size violations before
	// anything changes.
	next := p.clone()
	next.streams = append(next.streams, s.PID)
	if next.firstPCR && next.PCRPID == NullPid {
		next.PCRPID = s.PID
	}
	if next.PCRPID == s.PID {
		next.dedicatedPCR = false
	}
	next.Version = (p.Version + 1) % versionMod
	r.streams[s.PID] = s
	_, err = r.pmt(next)
	if err != nil {
		delete(r.streams, s.PID)
		return nil, newError(classify(err), op, err)
	}

	*p = *next
	delete(r.cc, s.PID)
	r.bumpSI()
	snap := *s
	return &snap, nil
}

// RemoveStream removes the stream on pid and bumps its program's PMT
// version. If the stream carried the PCR, the program's first remaining
// stream takes over.
func (r *Registry) RemoveStream(pid uint16) error {
	const op = "RemoveStream"
	s, ok := r.streams[pid]
	if !ok {
		return newError(ErrNotFound, op, fmt.Errorf("%w: %d", ErrUnknownPID, pid))
	}
	p, err := r.Program(s.Program)
	if err != nil {
		return err
	}
	for i, spid := range p.streams {
		if spid == pid {
			p.streams = append(p.streams[:i], p.streams[i+1:]...)
			break
		}
	}
	if p.PCRPID == pid {
		p.PCRPID = NullPid
		if len(p.streams) != 0 {
			p.PCRPID = p.streams[0]
		}
	}
	p.Version = (p.Version + 1) % versionMod
	delete(r.streams, pid)
	r.bumpSI()
	return nil
}

// SetMeta sets a program metadata entry, carried in the PMT, and bumps the
// PMT version.
func (r *Registry) SetMeta(program uint16, key, val string) error {
	const op = "SetMeta"
	p, err := r.Program(program)
	if err != nil {
		return newError(ErrNotFound, op, errors.Unwrap(err))
	}
	next := p.clone()
	if next.Meta == nil {
		next.Meta = meta.New()
	}
	err = next.Meta.Add(key, val)
	if err != nil {
		return newError(ErrConfiguration, op, err)
	}
	next.Version = (p.Version + 1) % versionMod
	_, err = r.pmt(next)
	if err != nil {
		return newError(classify(err), op, err)
	}
	*p = *next
	return nil
}

// DeleteMeta deletes a program metadata entry and bumps the PMT version.
func (r *Registry) DeleteMeta(program uint16, key string) error {
	const op = "DeleteMeta"
	p, err := r.Program(program)
	if err != nil {
		return newError(ErrNotFound, op, errors.Unwrap(err))
	}
	if p.Meta == nil || !p.Meta.Delete(key) {
		return newError(ErrNotFound, op, fmt.Errorf("%w: %q", ErrUnknownMeta, key))
	}
	p.Version = (p.Version + 1) % versionMod
	return nil
}

// nextCC returns the continuity counter for the next payload packet on pid
// and advances it.
func (r *Registry) nextCC(pid uint16) byte {
	if s, ok := r.streams[pid]; ok {
		cc := s.cc
		s.cc = (cc + 1) & ccMask
		return cc
	}
	cc := r.cc[pid]
	r.cc[pid] = (cc + 1) & ccMask
	return cc
}

// lastCC returns the continuity counter of the last payload packet on pid,
// which packets without payload repeat.
func (r *Registry) lastCC(pid uint16) byte {
	if s, ok := r.streams[pid]; ok {
		return (s.cc - 1) & ccMask
	}
	return (r.cc[pid] - 1) & ccMask
}

// classify returns the error kind of a failure deriving or rendering
// tables.
func classify(err error) Kind {
	switch {
	case errors.Is(err, tstd.ErrNoEntry), errors.Is(err, ErrInvalidFormat):
		return ErrConfiguration
	case errors.Is(err, psi.ErrSectionTooLong), errors.Is(err, psi.ErrLoopTooLong):
		return ErrValidation
	default:
		return ErrEncoding
	}
}

// Service types of the SDT service descriptor and NIT service list.
const (
	serviceAVC3D = 0x1c
)

// serviceType returns the DVB service type of a program.
func (r *Registry) serviceType(p *Program) uint8 {
	var video, avc, hevc bool
	for _, pid := range p.streams {
		s := r.streams[pid]
		switch s.Format {
		case AVC:
			avc = true
		case HEVC:
			hevc = true
		}
		video = video || s.Format.IsVideo()
	}
	switch {
	case p.Is3D:
		return serviceAVC3D
	case hevc:
		return psi.ServiceHEVCTV
	case avc:
		return psi.ServiceAVCHDTV
	case !video && len(p.streams) != 0:
		return psi.ServiceDigitalRadio
	default:
		return psi.ServiceDigitalTV
	}
}

// pmt renders the PMT section of p.
func (r *Registry) pmt(p *Program) ([]byte, error) {
	var descs []psi.Descriptor
	if r.profile == config.ProfileATSC {
		d, err := (&psi.Registration{FormatIdentifier: formatIDATSC}).Encode()
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}
	if p.Meta != nil && p.Meta.Len() != 0 {
		data, err := p.Meta.Encode()
		if err != nil {
			return nil, err
		}
		descs = append(descs, psi.Descriptor{Tag: psi.MetadataTag, Data: data})
	}

	body := &psi.PMT{PCRPID: p.PCRPID, Descriptors: descs}
	for _, pid := range p.streams {
		s := r.streams[pid]
		body.Streams = append(body.Streams, psi.ElementaryStream{
			StreamType:  s.StreamType,
			PID:         s.PID,
			Descriptors: s.Descriptors,
		})
	}
	return psi.NewPMT(p.Number, p.Version, body).Encode(r.maxSection)
}

// pat renders the PAT. DVB multiplexes map program 0 to the network PID.
func (r *Registry) pat(tsid uint16) ([]byte, error) {
	var progs []psi.Program
	if r.profile == config.ProfileDVB {
		progs = append(progs, psi.Program{Number: 0, PID: r.networkPID})
	}
	for _, p := range r.programs {
		progs = append(progs, psi.Program{Number: p.Number, PID: p.PMTPID})
	}
	return psi.NewPAT(tsid, r.patVersion, progs).Encode(r.maxSection)
}

// sdt renders the SDT of the actual transport stream.
func (r *Registry) sdt(tsid, onid uint16) ([]byte, error) {
	body := &psi.SDT{OriginalNetworkID: onid}
	for _, p := range r.programs {
		d, err := (&psi.ServiceDescriptor{
			Type:     r.serviceType(p),
			Provider: p.ProviderName,
			Name:     p.ServiceName,
		}).Encode()
		if err != nil {
			return nil, err
		}
		body.Services = append(body.Services, psi.Service{
			ServiceID:     p.Number,
			RunningStatus: psi.RunningRunning,
			Descriptors:   []psi.Descriptor{d},
		})
	}
	return psi.NewSDT(tsid, r.sdtVersion, body).Encode(r.maxSection)
}

// nit renders the NIT of the actual network.
func (r *Registry) nit(networkID, tsid, onid uint16, name string) ([]byte, error) {
	var list psi.ServiceList
	for _, p := range r.programs {
		list.Services = append(list.Services, psi.ServiceListEntry{ServiceID: p.Number, Type: r.serviceType(p)})
	}
	encs := []psi.DescriptorEncoder{}
	if name != "" {
		encs = append(encs, &psi.NetworkName{Name: name})
	}
	nds, err := psi.EncodeAll(encs...)
	if err != nil {
		return nil, err
	}
	tds, err := psi.EncodeAll(&list)
	if err != nil {
		return nil, err
	}
	body := &psi.NIT{
		Descriptors: nds,
		TransportStreams: []psi.TransportStream{
			{TSID: tsid, OriginalNetworkID: onid, Descriptors: tds},
		},
	}
	return psi.NewNIT(networkID, r.nitVersion, body).Encode(r.maxSection)
}
