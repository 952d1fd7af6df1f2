package parser

import (
	"gstd/pkg/core"
)

// Envelope renders a command result as the response sent to clients:
//
//	{
//	  "code": 0,
//	  "description": "Success",
//	  "response": {...}
//	}
//
// A missing response renders as null.
func Envelope(code core.Code, response *core.Document) string {
	return core.NewDocument().
		Set("code", int(code)).
		Set("description", code.Description()).
		Set("response", response).
		String()
}
