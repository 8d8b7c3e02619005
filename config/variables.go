/*
NAME
  variables.go

DESCRIPTION
  variables.go contains a list of structs that provide a variable Name, type in
  a string format, a function for updating the variable in the Config struct
  from a string, and finally, a validation function to check the validity of the
  corresponding field value in the Config.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ausocean/utils/logging"
)

// Config map Keys.
const (
	KeyCBR               = "CBR"
	KeyCountry           = "Country"
	KeyDuration          = "Duration"
	KeyFrameRate         = "FrameRate"
	KeyLegacyConstraints = "LegacyConstraints"
	KeyLocalOffset       = "LocalOffset"
	KeyLogging           = "logging"
	KeyLogPath           = "LogPath"
	KeyMuxRate           = "MuxRate"
	KeyNetworkID         = "NetworkID"
	KeyNetworkName       = "NetworkName"
	KeyNetworkPID        = "NetworkPID"
	KeyNITPeriod         = "NITPeriod"
	KeyOriginalNetworkID = "OriginalNetworkID"
	KeyOutputPath        = "OutputPath"
	KeyPATPeriod         = "PATPeriod"
	KeyPCRPeriod         = "PCRPeriod"
	KeyPMTPeriod         = "PMTPeriod"
	KeyPoolCapacity      = "PoolCapacity"
	KeyPoolWriteTimeout  = "PoolWriteTimeout"
	KeyProfile           = "Profile"
	KeySDTPeriod         = "SDTPeriod"
	KeyStartTime         = "StartTime"
	KeySuppress          = "Suppress"
	KeyTDTPeriod         = "TDTPeriod"
	KeyTOTPeriod         = "TOTPeriod"
	KeyTSID              = "TSID"
)

// Config map parameter types.
const (
	typeString = "string"
	typeInt    = "int"
	typeUint   = "uint"
	typeBool   = "bool"
)

// Default variable values.
const (
	defaultVerbosity  = logging.Error
	defaultTSID       = 1
	defaultMuxRate    = 10000000 // bit/s.
	defaultProfile    = ProfileGeneric
	defaultNetworkPID = 0x10
	defaultNetworkID  = 1

	// Periods, the longest each standard permits unless noted.
	defaultPATPeriod = 100 * time.Millisecond
	defaultPMTPeriod = 100 * time.Millisecond
	defaultPCRPeriod = 40 * time.Millisecond // Below the 100 ms limit.
	defaultSDTPeriod = 2 * time.Second
	defaultNITPeriod = 10 * time.Second
	defaultTDTPeriod = 30 * time.Second
	defaultTOTPeriod = 30 * time.Second

	maxLocalOffset = 14 * time.Hour

	// Harness defaults.
	defaultOutputPath = "out.ts"
	defaultLogPath    = "tsmux.log"
	defaultDuration   = 10 * time.Second
	defaultFrameRate  = 25

	// Ring buffer defaults.
	defaultPoolCapacity     = 10000000 // => 10MB
	defaultPoolWriteTimeout = 5        // Seconds.

	maxPID = 0x1ffe
	minPID = 0x10
	max16  = 0xffff
)

// defaultStartTime is the time of the first packet when none is configured.
var defaultStartTime = time.Unix(0, 0).UTC()

// Variables describes the variables that can be used for multiplex control.
// These structs provide the name and type of variable, a function for updating
// this variable in a Config, and a function for validating the value of the variable.
var Variables = []struct {
	Name     string
	Type     string
	Update   func(*Config, string)
	Validate func(*Config)
}{
	{
		Name:   KeyCBR,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.CBR = parseBool(KeyCBR, v, c) },
	},
	{
		Name: KeyCountry,
		Type: typeString,
		Update: func(c *Config, v string) {
			c.Country = strings.ToUpper(v)
		},
		Validate: func(c *Config) {
			if c.Country != "" && len(c.Country) != 3 {
				c.LogInvalidField(KeyCountry, "")
				c.Country = ""
			}
		},
	},
	{
		Name: KeyDuration,
		Type: typeUint,
		Update: func(c *Config, v string) {
			c.Duration = time.Duration(parseUint(KeyDuration, v, c)) * time.Second
		},
		Validate: func(c *Config) {
			if c.Duration <= 0 {
				c.LogInvalidField(KeyDuration, defaultDuration)
				c.Duration = defaultDuration
			}
		},
	},
	{
		Name:   KeyFrameRate,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.FrameRate = parseUint(KeyFrameRate, v, c) },
		Validate: func(c *Config) {
			if c.FrameRate <= 0 || c.FrameRate > 60 {
				c.LogInvalidField(KeyFrameRate, defaultFrameRate)
				c.FrameRate = defaultFrameRate
			}
		},
	},
	{
		Name:   KeyLegacyConstraints,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.LegacyConstraints = parseBool(KeyLegacyConstraints, v, c) },
	},
	{
		Name: KeyLocalOffset,
		Type: typeInt,
		Update: func(c *Config, v string) {
			c.LocalOffset = time.Duration(parseInt(KeyLocalOffset, v, c)) * time.Minute
		},
		Validate: func(c *Config) {
			if c.LocalOffset > maxLocalOffset || c.LocalOffset < -maxLocalOffset {
				c.LogInvalidField(KeyLocalOffset, time.Duration(0))
				c.LocalOffset = 0
			}
		},
	},
	{
		Name: KeyLogging,
		Type: "enum:Debug,Info,Warning,Error,Fatal",
		Update: func(c *Config, v string) {
			switch v {
			case "Debug":
				c.LogLevel = logging.Debug
			case "Info":
				c.LogLevel = logging.Info
			case "Warning":
				c.LogLevel = logging.Warning
			case "Error":
				c.LogLevel = logging.Error
			case "Fatal":
				c.LogLevel = logging.Fatal
			default:
				c.Logger.Warning("invalid Logging param", "value", v)
			}
		},
		Validate: func(c *Config) {
			switch c.LogLevel {
			case logging.Debug, logging.Info, logging.Warning, logging.Error, logging.Fatal:
			default:
				c.LogInvalidField("LogLevel", defaultVerbosity)
				c.LogLevel = defaultVerbosity
			}
		},
	},
	{
		Name:   KeyLogPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.LogPath = v },
		Validate: func(c *Config) {
			if c.LogPath == "" {
				c.LogInvalidField(KeyLogPath, defaultLogPath)
				c.LogPath = defaultLogPath
			}
		},
	},
	{
		Name:   KeyMuxRate,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.MuxRate = parseUint(KeyMuxRate, v, c) },
		Validate: func(c *Config) {
			if c.MuxRate <= 0 {
				c.LogInvalidField(KeyMuxRate, defaultMuxRate)
				c.MuxRate = defaultMuxRate
			}
		},
	},
	{
		Name:   KeyNetworkID,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.NetworkID = parseUint(KeyNetworkID, v, c) },
		Validate: func(c *Config) {
			if c.NetworkID <= 0 || c.NetworkID > max16 {
				c.LogInvalidField(KeyNetworkID, defaultNetworkID)
				c.NetworkID = defaultNetworkID
			}
		},
	},
	{
		Name:   KeyNetworkName,
		Type:   typeString,
		Update: func(c *Config, v string) { c.NetworkName = v },
	},
	{
		Name:   KeyNetworkPID,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.NetworkPID = parseUint(KeyNetworkPID, v, c) },
		Validate: func(c *Config) {
			if c.NetworkPID < minPID || c.NetworkPID > maxPID {
				c.LogInvalidField(KeyNetworkPID, defaultNetworkPID)
				c.NetworkPID = defaultNetworkPID
			}
		},
	},
	{
		Name:     KeyNITPeriod,
		Type:     typeUint,
		Update:   func(c *Config, v string) { c.NITPeriod = parseMillis(KeyNITPeriod, v, c) },
		Validate: func(c *Config) { c.NITPeriod = positive(KeyNITPeriod, c.NITPeriod, c, defaultNITPeriod) },
	},
	{
		Name:   KeyOriginalNetworkID,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.OriginalNetworkID = parseUint(KeyOriginalNetworkID, v, c) },
		Validate: func(c *Config) {
			if c.OriginalNetworkID <= 0 || c.OriginalNetworkID > max16 {
				c.LogInvalidField(KeyOriginalNetworkID, defaultNetworkID)
				c.OriginalNetworkID = defaultNetworkID
			}
		},
	},
	{
		Name:   KeyOutputPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.OutputPath = v },
		Validate: func(c *Config) {
			if c.OutputPath == "" {
				c.LogInvalidField(KeyOutputPath, defaultOutputPath)
				c.OutputPath = defaultOutputPath
			}
		},
	},
	{
		Name:     KeyPATPeriod,
		Type:     typeUint,
		Update:   func(c *Config, v string) { c.PATPeriod = parseMillis(KeyPATPeriod, v, c) },
		Validate: func(c *Config) { c.PATPeriod = positive(KeyPATPeriod, c.PATPeriod, c, defaultPATPeriod) },
	},
	{
		Name:     KeyPCRPeriod,
		Type:     typeUint,
		Update:   func(c *Config, v string) { c.PCRPeriod = parseMillis(KeyPCRPeriod, v, c) },
		Validate: func(c *Config) { c.PCRPeriod = positive(KeyPCRPeriod, c.PCRPeriod, c, defaultPCRPeriod) },
	},
	{
		Name:     KeyPMTPeriod,
		Type:     typeUint,
		Update:   func(c *Config, v string) { c.PMTPeriod = parseMillis(KeyPMTPeriod, v, c) },
		Validate: func(c *Config) { c.PMTPeriod = positive(KeyPMTPeriod, c.PMTPeriod, c, defaultPMTPeriod) },
	},
	{
		Name:   KeyPoolCapacity,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.PoolCapacity = parseUint(KeyPoolCapacity, v, c) },
		Validate: func(c *Config) {
			c.PoolCapacity = lessThanOrEqual(KeyPoolCapacity, c.PoolCapacity, 0, c, defaultPoolCapacity)
		},
	},
	{
		Name:   KeyPoolWriteTimeout,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.PoolWriteTimeout = parseUint(KeyPoolWriteTimeout, v, c) },
		Validate: func(c *Config) {
			c.PoolWriteTimeout = lessThanOrEqual(KeyPoolWriteTimeout, c.PoolWriteTimeout, 0, c, defaultPoolWriteTimeout)
		},
	},
	{
		Name: KeyProfile,
		Type: "enum:generic,atsc,dvb,legacy",
		Update: func(c *Config, v string) {
			c.Profile = parseEnum(
				KeyProfile,
				v,
				map[string]uint8{
					"generic": ProfileGeneric,
					"atsc":    ProfileATSC,
					"dvb":     ProfileDVB,
					"legacy":  ProfileLegacy,
				},
				c,
			)
		},
		Validate: func(c *Config) {
			switch c.Profile {
			case ProfileGeneric, ProfileATSC, ProfileDVB, ProfileLegacy:
			default:
				c.LogInvalidField(KeyProfile, defaultProfile)
				c.Profile = defaultProfile
			}
		},
	},
	{
		Name:     KeySDTPeriod,
		Type:     typeUint,
		Update:   func(c *Config, v string) { c.SDTPeriod = parseMillis(KeySDTPeriod, v, c) },
		Validate: func(c *Config) { c.SDTPeriod = positive(KeySDTPeriod, c.SDTPeriod, c, defaultSDTPeriod) },
	},
	{
		Name: KeyStartTime,
		Type: typeUint,
		Update: func(c *Config, v string) {
			c.StartTime = time.Unix(int64(parseUint(KeyStartTime, v, c)), 0).UTC()
		},
		Validate: func(c *Config) {
			if c.StartTime.IsZero() {
				c.LogInvalidField(KeyStartTime, defaultStartTime)
				c.StartTime = defaultStartTime
			}
		},
	},
	{
		Name:   KeySuppress,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.Suppress = parseBool(KeySuppress, v, c) },
	},
	{
		Name:     KeyTDTPeriod,
		Type:     typeUint,
		Update:   func(c *Config, v string) { c.TDTPeriod = parseMillis(KeyTDTPeriod, v, c) },
		Validate: func(c *Config) { c.TDTPeriod = positive(KeyTDTPeriod, c.TDTPeriod, c, defaultTDTPeriod) },
	},
	{
		Name:     KeyTOTPeriod,
		Type:     typeUint,
		Update:   func(c *Config, v string) { c.TOTPeriod = parseMillis(KeyTOTPeriod, v, c) },
		Validate: func(c *Config) { c.TOTPeriod = positive(KeyTOTPeriod, c.TOTPeriod, c, defaultTOTPeriod) },
	},
	{
		Name:   KeyTSID,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.TSID = parseUint(KeyTSID, v, c) },
		Validate: func(c *Config) {
			if c.TSID <= 0 || c.TSID > max16 {
				c.LogInvalidField(KeyTSID, defaultTSID)
				c.TSID = defaultTSID
			}
		},
	},
}

func parseUint(n, v string, c *Config) uint {
	_v, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected unsigned int for param %s", n), "value", v)
	}
	return uint(_v)
}

func parseInt(n, v string, c *Config) int {
	_v, err := strconv.Atoi(v)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected integer for param %s", n), "value", v)
	}
	return _v
}

func parseBool(n, v string, c *Config) (b bool) {
	switch strings.ToLower(v) {
	case "true":
		b = true
	case "false":
		b = false
	default:
		c.Logger.Warning(fmt.Sprintf("expect bool for param %s", n), "value", v)
	}
	return
}

func parseEnum(n, v string, enums map[string]uint8, c *Config) uint8 {
	_v, ok := enums[strings.ToLower(v)]
	if !ok {
		c.Logger.Warning(fmt.Sprintf("invalid value for %s param", n), "value", v)
	}
	return _v
}

// parseMillis parses a period given in milliseconds.
func parseMillis(n, v string, c *Config) time.Duration {
	return time.Duration(parseUint(n, v, c)) * time.Millisecond
}

func lessThanOrEqual(n string, v, cmp uint, c *Config, def uint) uint {
	if v <= cmp {
		c.LogInvalidField(n, def)
		return def
	}
	return v
}

func positive(n string, d time.Duration, c *Config, def time.Duration) time.Duration {
	if d <= 0 {
		c.LogInvalidField(n, def)
		return def
	}
	return d
}
