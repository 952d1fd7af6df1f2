package engine

import "errors"

// Common engine errors
var (
	ErrBadDescription  = errors.New("bad pipeline description")
	ErrNoSuchFactory   = errors.New("no such element factory")
	ErrNoSuchAttribute = errors.New("no such attribute")
	ErrNotWritable     = errors.New("attribute is not writable")
	ErrNotReadable     = errors.New("attribute is not readable")
	ErrBadValue        = errors.New("bad value")
	ErrNoSuchSignal    = errors.New("no such signal")
	ErrStateChange     = errors.New("state change failed")
	ErrEventRejected   = errors.New("event rejected")
	ErrClosed          = errors.New("pipeline closed")
)
