package indicator

import (
	"time"

	"servocode-go/x/conv"
)

// Step is one (level, duration) pair.
type Step struct {
	On  bool
	Dur time.Duration
}

// Pattern is a named step sequence. Repeating patterns never finish on
// their own.
type Pattern struct {
	Name   string
	Steps  []Step
	Repeat bool
}

// Duration of one pass through the steps.
func (p Pattern) Duration() time.Duration {
	var d time.Duration
	for _, s := range p.Steps {
		d += s.Dur
	}
	return d
}

const (
	bootOn    = 200 * time.Millisecond
	bootOff   = 200 * time.Millisecond
	bootPause = 1000 * time.Millisecond
)

// Boot blinks n times then pauses; used to count bring-up milestones.
func Boot(n int) Pattern {
	steps := make([]Step, 0, 2*n+1)
	for i := 0; i < n; i++ {
		steps = append(steps, Step{On: true, Dur: bootOn}, Step{On: false, Dur: bootOff})
	}
	steps = append(steps, Step{On: false, Dur: bootPause})
	return Pattern{Name: string(conv.AppendInt([]byte("boot"), int64(n))), Steps: steps}
}

var (
	// ErrorHalt is the single fatal indication. Fast blink forever.
	ErrorHalt = Pattern{
		Name:   "error_halt",
		Steps:  []Step{{On: true, Dur: 100 * time.Millisecond}, {On: false, Dur: 100 * time.Millisecond}},
		Repeat: true,
	}

	// Heartbeat is the idle/serving indication.
	Heartbeat = Pattern{
		Name:   "heartbeat",
		Steps:  []Step{{On: true, Dur: 50 * time.Millisecond}, {On: false, Dur: 2000 * time.Millisecond}},
		Repeat: true,
	}

	// Ack confirms an actuation command.
	Ack = Pattern{
		Name:  "ack",
		Steps: []Step{{On: true, Dur: 100 * time.Millisecond}, {On: false, Dur: 100 * time.Millisecond}},
	}

	Initialized    = Boot(1)
	Connecting     = Boot(2)
	Connected      = Boot(3)
	ServingStarted = Boot(4)
)
