package engine

import "strconv"

// State is the play state of an element or pipeline.
type State int

const (
	StateVoidPending State = iota
	StateNull
	StateReady
	StatePaused
	StatePlaying
)

// StateClass is the enum class backing State attributes.
var StateClass = &EnumClass{
	TypeName: "GstState",
	Values: []EnumValue{
		{Value: int64(StateVoidPending), Name: "GST_STATE_VOID_PENDING", Nick: "void-pending"},
		{Value: int64(StateNull), Name: "GST_STATE_NULL", Nick: "null"},
		{Value: int64(StateReady), Name: "GST_STATE_READY", Nick: "ready"},
		{Value: int64(StatePaused), Name: "GST_STATE_PAUSED", Nick: "paused"},
		{Value: int64(StatePlaying), Name: "GST_STATE_PLAYING", Nick: "playing"},
	},
}

// String returns the short upper-case state name
func (s State) String() string {
	switch s {
	case StateNull:
		return "NULL"
	case StateReady:
		return "READY"
	case StatePaused:
		return "PAUSED"
	case StatePlaying:
		return "PLAYING"
	default:
		return "VOID_PENDING"
	}
}

// ParseState accepts "PLAYING", "playing", "GST_STATE_PLAYING" or a number
// from 1 (NULL) to 4 (PLAYING)
func ParseState(text string) (State, bool) {
	switch text {
	case "NULL":
		return StateNull, true
	case "READY":
		return StateReady, true
	case "PAUSED":
		return StatePaused, true
	case "PLAYING":
		return StatePlaying, true
	}
	if v, ok := StateClass.ByName(text); ok && v.Value != int64(StateVoidPending) {
		return State(v.Value), true
	}
	if v, ok := StateClass.ByNick(text); ok && v.Value != int64(StateVoidPending) {
		return State(v.Value), true
	}
	if n, err := strconv.Atoi(text); err == nil && n >= int(StateNull) && n <= int(StatePlaying) {
		return State(n), true
	}
	return StateVoidPending, false
}

// Next returns the state one step closer to target
func (s State) Next(target State) State {
	switch {
	case s < target:
		return s + 1
	case s > target:
		return s - 1
	default:
		return s
	}
}
