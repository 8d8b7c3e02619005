/*
NAME
  errors.go

DESCRIPTION
  errors.go provides the error kinds reported by the multiplexer.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mts

import "errors"

// Kind classifies a multiplexer error. Kinds are errors themselves so that
// errors.Is(err, ErrValidation) matches any validation failure.
type Kind int

// Error kinds.
const (
	ErrConfiguration Kind = iota + 1 // Invalid PID, duplicate stream or unmatched reference table lookup.
	ErrValidation                    // Buffer model violation, inconsistent timestamps or oversized section.
	ErrNotFound                      // Unknown PID or program.
	ErrEncoding                      // Malformed descriptor or table field.
)

func (k Kind) Error() string {
	switch k {
	case ErrConfiguration:
		return "configuration error"
	case ErrValidation:
		return "validation error"
	case ErrNotFound:
		return "not found"
	case ErrEncoding:
		return "encoding error"
	default:
		return "unknown error"
	}
}

// Error is returned by Muxer and Registry operations. Its cause is reachable
// with errors.Is and errors.As.
type Error struct {
	Kind Kind
	Op   string // Failing operation.
	Err  error  // Cause.
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is e's Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func newError(k Kind, op string, err error) error {
	return &Error{Kind: k, Op: op, Err: err}
}

// Causes reported inside an Error.
var (
	ErrDuplicatePID     = errors.New("PID already in use")
	ErrInvalidPID       = errors.New("PID out of range")
	ErrInvalidFormat    = errors.New("invalid stream format")
	ErrDuplicateProgram = errors.New("program already exists")
	ErrInvalidProgram   = errors.New("invalid program number")
	ErrUnknownPID       = errors.New("unknown PID")
	ErrUnknownProgram   = errors.New("unknown program")
	ErrUnknownMeta      = errors.New("unknown metadata key")
	ErrTimestamp        = errors.New("negative timestamp")
	ErrPESTooLong       = errors.New("PES packet too long for stream")
	ErrMuxRate          = errors.New("mux rate exceeded")
	ErrImmutable        = errors.New("field cannot be changed after creation")
	ErrNoWallClock      = errors.New("nil wall clock")
)
