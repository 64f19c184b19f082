package types

// ------------------------
// Actuator (PWM servo)
// ------------------------

type ActuatorInfo struct {
	Pin       int    `json:"pin"`
	FreqHz    uint32 `json:"freq_hz"`
	PeriodUs  uint32 `json:"period_us"`
	NeutralUs uint32 `json:"neutral_us"`
	Path      string `json:"path"`
}

// ActuatorValue is the observable channel state. PulseUs is the last
// commanded width (0 = signal off sentinel); Enabled reports whether pulses
// are being emitted.
type ActuatorValue struct {
	ID      string `json:"id"`
	PulseUs uint32 `json:"pulse_us"`
	Enabled bool   `json:"enabled"`
	TS      int64  `json:"ts_ms"`
}

// ------------------------
// Status page
// ------------------------

type StatusReport struct {
	Stage     string          `json:"stage"`
	Cause     string          `json:"cause,omitempty"`
	Actuators []ActuatorValue `json:"actuators"`
}
