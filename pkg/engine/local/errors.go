package local

import (
	"errors"
	"fmt"

	"gstd/pkg/engine"
)

var (
	errSyntax       = fmt.Errorf("%w: syntax error", engine.ErrBadDescription)
	errInducedError = errors.New("induced error")
	errNotRunning   = fmt.Errorf("%w: pipeline is not running", engine.ErrEventRejected)
)
