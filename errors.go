package modsynth

import "errors"

var (
	// ErrUnknownModule is returned when an operation references a module id
	// that is not present.
	ErrUnknownModule = errors.New("unknown module")
	// ErrUnknownKind is returned when a module of an unrecognized kind is
	// requested.
	ErrUnknownKind = errors.New("unknown module kind")
	// ErrUnknownParameter is returned when a parameter update or a CV
	// connection names a parameter the module kind does not expose.
	ErrUnknownParameter = errors.New("unknown parameter")
	// ErrRuntimeUnavailable is returned when the signal-processing runtime
	// failed to initialize or has been closed.
	ErrRuntimeUnavailable = errors.New("runtime unavailable")

	ErrUnknownPort     = errors.New("unknown port")
	ErrDuplicateModule = errors.New("module already exists")
	ErrInvalidValue    = errors.New("invalid parameter value")
	ErrKindMismatch    = errors.New("module kind does not support operation")
)
