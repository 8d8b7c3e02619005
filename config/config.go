/*
NAME
  config.go

DESCRIPTION
  config.go provides the multiplex-wide configuration of a tsmux Muxer and
  the harness that drives it.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config contains the configuration settings for a transport stream
// multiplex.
package config

import (
	"errors"
	"time"

	"github.com/ausocean/utils/logging"
)

// Transport stream profiles. The profile decides which service information
// tables are carried and how some stream types are signalled.
const (
	// Indicates no option has been set.
	NothingDefined = iota

	ProfileGeneric // PAT, PMT and SDT.
	ProfileATSC    // PAT and PMT, ATSC stream types and descriptors.
	ProfileDVB     // PAT, PMT, SDT, NIT, TDT and TOT.
	ProfileLegacy  // PAT and PMT only.
)

// ErrNoLogger is returned by Validate when no Logger is set.
var ErrNoLogger = errors.New("no logger")

// Config provides the parameters of a multiplex. A Config must be validated
// before use, which defaults any unset fields.
type Config struct {
	// Logger holds an implementation of the Logger interface. This must be set.
	Logger logging.Logger

	// LogLevel is the logging verbosity level.
	// Valid values are defined by enums from the logger package: logging.Debug,
	// logging.Info, logging.Warning logging.Error, logging.Fatal.
	LogLevel int8

	Suppress bool // Holds logger suppression state.

	TSID    uint // transport_stream_id.
	MuxRate uint // Multiplex rate in bit/s.

	// CBR selects constant bitrate output. Gaps between frames are then
	// filled with null packets so that packets depart at exactly MuxRate.
	// Otherwise the packet clock jumps forward to each frame's arrival.
	CBR bool

	// Profile is one of ProfileGeneric, ProfileATSC, ProfileDVB or
	// ProfileLegacy.
	Profile uint8

	// LegacyConstraints restricts each table section to a single packet.
	LegacyConstraints bool

	NetworkPID        uint   // PID of the NIT.
	NetworkID         uint   // network_id of the NIT.
	OriginalNetworkID uint   // original_network_id of the SDT and NIT.
	NetworkName       string // Carried in the NIT network name descriptor.

	// Table and PCR periods.
	PATPeriod time.Duration
	PMTPeriod time.Duration
	SDTPeriod time.Duration
	NITPeriod time.Duration
	TDTPeriod time.Duration
	TOTPeriod time.Duration
	PCRPeriod time.Duration

	// StartTime is the UTC time of the first packet, used for the TDT and
	// TOT when no wall clock is available.
	StartTime time.Time

	// Country and LocalOffset describe the local time offset carried in the
	// TOT. No offset is carried if Country is empty.
	Country     string
	LocalOffset time.Duration

	OutputPath       string        // Output file of the harness.
	LogPath          string        // Log file of the harness.
	Duration         time.Duration // Length of the generated programme.
	FrameRate        uint          // Video frame rate of the generated programme.
	PoolCapacity     uint          // The number of bytes the pool buffer will occupy.
	PoolWriteTimeout uint          // The pool buffer write timeout in seconds.
}

// Validate checks for any errors in the config fields and defaults settings
// if particular parameters have not been defined.
func (c *Config) Validate() error {
	if c.Logger == nil {
		return ErrNoLogger
	}
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(c)
		}
	}
	return nil
}

// Update takes a map of configuration variable names and their corresponding
// values, parses the string values and converting into correct type, and then
// sets the config struct fields as appropriate.
func (c *Config) Update(vars map[string]string) {
	for _, value := range Variables {
		if v, ok := vars[value.Name]; ok && value.Update != nil {
			value.Update(c, v)
		}
	}
}

func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}
