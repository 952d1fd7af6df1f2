package core

import "strconv"

// Code is the result of every resource tree operation.
type Code int

const (
	EOK Code = iota
	NullArgument
	BadDescription
	ExistingName
	MissingInitialization
	NoPipeline
	NoResource
	NoCreate
	ExistingResource
	NoUpdate
	BadCommand
	NoRead
	NoConnection
	BadValue
	StateError
	IpcError
	EventError
	MissingArgument
	MissingName
	Timeout
	NoDelete
)

var codeNames = [...]string{
	EOK:                   "EOK",
	NullArgument:          "NullArgument",
	BadDescription:        "BadDescription",
	ExistingName:          "ExistingName",
	MissingInitialization: "MissingInitialization",
	NoPipeline:            "NoPipeline",
	NoResource:            "NoResource",
	NoCreate:              "NoCreate",
	ExistingResource:      "ExistingResource",
	NoUpdate:              "NoUpdate",
	BadCommand:            "BadCommand",
	NoRead:                "NoRead",
	NoConnection:          "NoConnection",
	BadValue:              "BadValue",
	StateError:            "StateError",
	IpcError:              "IpcError",
	EventError:            "EventError",
	MissingArgument:       "MissingArgument",
	MissingName:           "MissingName",
	Timeout:               "Timeout",
	NoDelete:              "NoDelete",
}

var codeDescriptions = [...]string{
	EOK:                   "Success",
	NullArgument:          "Required argument is NULL",
	BadDescription:        "Bad pipeline description",
	ExistingName:          "Name already exists",
	MissingInitialization: "Missing initialization",
	NoPipeline:            "Pipeline requested doesn't exist",
	NoResource:            "Resource requested doesn't exist",
	NoCreate:              "Cannot create in this resource",
	ExistingResource:      "Resource already exists",
	NoUpdate:              "Cannot update this resource",
	BadCommand:            "Bad command",
	NoRead:                "Resource not readable",
	NoConnection:          "Cannot connect",
	BadValue:              "Bad value",
	StateError:            "State error",
	IpcError:              "IPC error",
	EventError:            "Event error",
	MissingArgument:       "One or more arguments are missing",
	MissingName:           "Name is missing",
	Timeout:               "Timeout waiting for resource",
	NoDelete:              "Cannot delete this resource",
}

// String returns the constant name of the code
func (c Code) String() string {
	if c >= 0 && int(c) < len(codeNames) {
		return codeNames[c]
	}
	return "Code(" + strconv.Itoa(int(c)) + ")"
}

// Description returns the human readable text sent to clients
func (c Code) Description() string {
	if c >= 0 && int(c) < len(codeDescriptions) {
		return codeDescriptions[c]
	}
	return "Unknown return code"
}

// OK reports whether the code is EOK
func (c Code) OK() bool { return c == EOK }
