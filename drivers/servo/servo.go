// Package servo drives a hobby servo from one PWM channel.
//
// The channel is configured so one counter step equals one microsecond:
// at 50 Hz the counter runs 0..20000 and the output level is the pulse
// width in µs. A level of 0 with the generator enabled is a valid (idle)
// position; TurnOff stops the generator instead, so the servo sees no pulses
// at all and releases.
package servo

import (
	"sync"

	"servocode-go/errcode"
	"servocode-go/types"
	"servocode-go/x/timex"
)

const (
	DefaultFreqHz    = 50
	DefaultPeriodUs  = 20000
	DefaultNeutralUs = 1500
)

// PWM is a single timing-generator channel as provided by the HAL.
type PWM interface {
	// Configure sets the frequency and the logical counter range [0..top].
	Configure(freqHz uint32, top uint32) error
	// Set drives the logical level (0..top).
	Set(level uint32)
	// Enable starts or stops pulse emission without forgetting the level.
	Enable(on bool)
}

// Channel is one actuator output. Safe for concurrent use.
type Channel struct {
	mu sync.Mutex

	id        string
	pwm       PWM
	neutralUs uint32

	ready    bool
	freqHz   uint32
	periodUs uint32
	pulseUs  uint32
	enabled  bool
}

// New returns an uninitialised channel. neutralUs==0 selects 1500 µs.
func New(id string, pwm PWM, neutralUs uint32) *Channel {
	if neutralUs == 0 {
		neutralUs = DefaultNeutralUs
	}
	return &Channel{id: id, pwm: pwm, neutralUs: neutralUs}
}

func (c *Channel) ID() string { return c.id }

// Initialize configures the generator at freqHz with periodUs counts per
// cycle, drives level 0 and leaves it disabled. Repeating the call with the
// same parameters is a no-op; changing them is only allowed while disabled.
func (c *Channel) Initialize(freqHz, periodUs uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if freqHz == 0 || periodUs == 0 || periodUs > timex.PeriodUsFromHz(freqHz) || c.neutralUs > periodUs {
		return &errcode.E{C: errcode.InvalidParams, Op: "servo.initialize", Msg: c.id}
	}
	if c.ready {
		if c.freqHz == freqHz && c.periodUs == periodUs {
			return nil
		}
		if c.enabled {
			return &errcode.E{C: errcode.Busy, Op: "servo.initialize", Msg: c.id}
		}
	}
	if err := c.pwm.Configure(freqHz, periodUs); err != nil {
		return errcode.Wrap(errcode.ActuatorInitFailed, "servo.initialize", err)
	}
	c.pwm.Set(0)
	c.pwm.Enable(false)

	c.ready = true
	c.freqHz, c.periodUs = freqHz, periodUs
	c.pulseUs, c.enabled = 0, false
	return nil
}

// SetPosition enables the generator if needed and drives pulseUs.
// pulseUs must lie in [0, period]; out-of-range input is rejected and leaves
// the output untouched.
func (c *Channel) SetPosition(pulseUs uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setLocked(pulseUs)
}

func (c *Channel) setLocked(pulseUs uint32) error {
	if !c.ready {
		return &errcode.E{C: errcode.NotInitialized, Op: "servo.set_position", Msg: c.id}
	}
	if pulseUs > c.periodUs {
		return &errcode.E{C: errcode.OutOfRange, Op: "servo.set_position", Msg: c.id}
	}
	if !c.enabled {
		c.pwm.Enable(true)
		c.enabled = true
	}
	c.pwm.Set(pulseUs)
	c.pulseUs = pulseUs
	return nil
}

// TurnOn moves to the neutral position with the generator running.
func (c *Channel) TurnOn() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setLocked(c.neutralUs)
}

// TurnOff stops pulse emission. The last pulse width is kept.
func (c *Channel) TurnOff() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return &errcode.E{C: errcode.NotInitialized, Op: "servo.turn_off", Msg: c.id}
	}
	c.pwm.Enable(false)
	c.enabled = false
	return nil
}

func (c *Channel) Position() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pulseUs
}

func (c *Channel) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

func (c *Channel) PeriodUs() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.periodUs
}

func (c *Channel) NeutralUs() uint32 { return c.neutralUs }

// Snapshot returns the observable state with a timestamp.
func (c *Channel) Snapshot() types.ActuatorValue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return types.ActuatorValue{
		ID:      c.id,
		PulseUs: c.pulseUs,
		Enabled: c.enabled,
		TS:      timex.NowMs(),
	}
}
