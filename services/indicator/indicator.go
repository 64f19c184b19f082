// Package indicator communicates lifecycle state on one binary output.
package indicator

import (
	"context"
	"sync"

	"servocode-go/x/logx"
	"servocode-go/x/timex"
)

// Line is the single physical output (an LED).
type Line interface {
	Set(on bool)
}

// Indicator plays patterns on a Line. Level writes are serialised, so an
// Ack from a request goroutine can interleave with a parked Heartbeat.
type Indicator struct {
	mu   sync.Mutex
	line Line
	tick timex.Tick
}

// New returns an Indicator. tick==nil uses timex.Sleep.
func New(line Line, tick timex.Tick) *Indicator {
	if tick == nil {
		tick = timex.Sleep
	}
	return &Indicator{line: line, tick: tick}
}

func (i *Indicator) set(on bool) {
	i.mu.Lock()
	i.line.Set(on)
	i.mu.Unlock()
}

// Signal plays p and blocks for its duration. Repeating patterns (ErrorHalt,
// Heartbeat) do not return while ctx is live; in the firmware ctx is never
// cancelled, so they are terminal.
func (i *Indicator) Signal(ctx context.Context, p Pattern) {
	logx.Debug("indicator", "pattern", p.Name)
	for {
		for _, s := range p.Steps {
			i.set(s.On)
			if !i.tick(ctx, s.Dur) {
				i.set(false)
				return
			}
		}
		if !p.Repeat {
			return
		}
	}
}
