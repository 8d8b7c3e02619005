/*
NAME
  scheduler.go

DESCRIPTION
  scheduler.go decides which service information tables and PCRs are due
  for insertion into the multiplex.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mts

import (
	"math"
	"time"

	"github.com/ausocean/tsmux/config"
	"github.com/ausocean/tsmux/container/mts/tstd"
)

// TableKind identifies a periodically inserted item.
type TableKind int

// Table kinds in priority order.
const (
	KindPAT TableKind = iota
	KindPMT
	KindPCR
	KindSDT
	KindNIT
	KindTDT
	KindTOT
)

func (k TableKind) String() string {
	return [...]string{"PAT", "PMT", "PCR", "SDT", "NIT", "TDT", "TOT"}[k]
}

// maxPCRPeriod is the longest interval allowed between PCRs of a program.
const maxPCRPeriod = 100 * time.Millisecond

// Entry is an item due for insertion. Program is set for PMT and PCR
// entries.
type Entry struct {
	Kind    TableKind
	Program uint16
}

// Scheduler tracks when tables and PCRs were last inserted. Times are in
// 27MHz system clock ticks. It is not safe for concurrent use.
type Scheduler struct {
	profile uint8
	periods [KindTOT + 1]int64
	last    map[Entry]int64
}

// NewScheduler returns a scheduler using the periods of c.
func NewScheduler(c config.Config) *Scheduler {
	s := &Scheduler{profile: c.Profile, last: make(map[Entry]int64)}
	s.setPeriods(c)
	return s
}

func (s *Scheduler) setPeriods(c config.Config) {
	pcr := c.PCRPeriod
	if pcr <= 0 || pcr > maxPCRPeriod {
		pcr = maxPCRPeriod
	}
	s.periods = [...]int64{
		KindPAT: ticks(c.PATPeriod),
		KindPMT: ticks(c.PMTPeriod),
		KindPCR: ticks(pcr),
		KindSDT: ticks(c.SDTPeriod),
		KindNIT: ticks(c.NITPeriod),
		KindTDT: ticks(c.TDTPeriod),
		KindTOT: ticks(c.TOTPeriod),
	}
}

// ticks converts d to system clock ticks.
func ticks(d time.Duration) int64 {
	return int64(d/time.Microsecond) * tstd.SystemClock / int64(time.Second/time.Microsecond)
}

func (s *Scheduler) clone() *Scheduler {
	c := *s
	c.last = make(map[Entry]int64, len(s.last))
	for e, t := range s.last {
		c.last[e] = t
	}
	return &c
}

// enabled returns true if tables of kind k belong in the multiplex.
func (s *Scheduler) enabled(k TableKind) bool {
	switch k {
	case KindSDT:
		return s.profile == config.ProfileGeneric || s.profile == config.ProfileDVB
	case KindNIT, KindTDT, KindTOT:
		return s.profile == config.ProfileDVB
	}
	return true
}

// entries returns every entry belonging in the multiplex, in priority
// order.
func (s *Scheduler) entries(programs []*Program) []Entry {
	es := []Entry{{Kind: KindPAT}}
	for _, p := range programs {
		es = append(es, Entry{Kind: KindPMT, Program: p.Number})
	}
	for _, p := range programs {
		if p.PCRPID != NullPid {
			es = append(es, Entry{Kind: KindPCR, Program: p.Number})
		}
	}
	for _, k := range []TableKind{KindSDT, KindNIT, KindTDT, KindTOT} {
		if s.enabled(k) {
			es = append(es, Entry{Kind: k})
		}
	}
	return es
}

// Due returns the entries due at time now, in priority order. Entries never
// inserted are due immediately.
func (s *Scheduler) Due(now int64, programs []*Program) []Entry {
	var due []Entry
	for _, e := range s.entries(programs) {
		t, ok := s.last[e]
		if !ok || now-t >= s.periods[e.Kind] {
			due = append(due, e)
		}
	}
	return due
}

// Next returns the earliest time at which an entry falls due, or
// math.MinInt64 if an entry has never been inserted.
func (s *Scheduler) Next(programs []*Program) int64 {
	next := int64(math.MaxInt64)
	for _, e := range s.entries(programs) {
		t, ok := s.last[e]
		if !ok {
			return math.MinInt64
		}
		if t+s.periods[e.Kind] < next {
			next = t + s.periods[e.Kind]
		}
	}
	return next
}

// Mark records that e was inserted at now.
func (s *Scheduler) Mark(e Entry, now int64) { s.last[e] = now }

// forget drops the history of e, making it due immediately.
func (s *Scheduler) forget(e Entry) { delete(s.last, e) }
