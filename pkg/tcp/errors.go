package tcp

import "errors"

var (
	ErrAlreadyStarted = errors.New("tcp server already started")
	ErrNoPorts        = errors.New("tcp server needs at least one port")
	ErrNoHandler      = errors.New("tcp server needs a command handler")
	ErrNoPath         = errors.New("unix server needs a socket path")
	ErrBadNetwork     = errors.New("network must be tcp or unix")
)
