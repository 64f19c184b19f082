package types

// ---- Device lifecycle (retained on device/stage) ----

// Stage is the bring-up stage of the device. It only moves forward; Faulted
// is terminal.
type Stage uint8

const (
	StageInitializing Stage = iota
	StageConnecting
	StageConnected
	StageServingStarted
	StageFaulted
)

func (s Stage) String() string {
	switch s {
	case StageInitializing:
		return "initializing"
	case StageConnecting:
		return "connecting"
	case StageConnected:
		return "connected"
	case StageServingStarted:
		return "serving"
	case StageFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is defined out of s.
func (s Stage) Terminal() bool { return s == StageFaulted }

// StageState is the retained payload published on every transition.
type StageState struct {
	Stage Stage  `json:"-"`
	Name  string `json:"stage"`
	Cause string `json:"cause,omitempty"` // errcode of the fault, if any
	TS    int64  `json:"ts_ms"`
}

// ---- Capability kinds & info ----

type Kind string

const KindActuator Kind = "actuator"

// Info envelope each capability exposes (retained).
type Info struct {
	SchemaVersion int         `json:"schema_version"`
	Driver        string      `json:"driver"`
	Detail        interface{} `json:"detail,omitempty"`
}
