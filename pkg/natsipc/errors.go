package natsipc

import "errors"

var (
	ErrAlreadyStarted = errors.New("nats ipc already started")
	ErrNoSubject      = errors.New("nats ipc needs a subject")
	ErrNoHandler      = errors.New("nats ipc needs a command handler")
)
