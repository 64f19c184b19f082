// Package bringup runs the fixed start-up sequence: radio, actuators,
// network join, HTTP. Every failure is fatal and ends in ErrorHalt.
package bringup

import (
	"context"
	"sync"

	"tinygo.org/x/drivers/netlink"

	"servocode-go/bus"
	"servocode-go/errcode"
	"servocode-go/services/actuation"
	"servocode-go/services/indicator"
	"servocode-go/services/topics"
	"servocode-go/types"
	"servocode-go/x/logx"
	"servocode-go/x/timex"
)

type Radio interface {
	Init() error
	EnableStationMode()
	Connect(params *netlink.ConnectParams) error
}

type Signaler interface {
	Signal(ctx context.Context, p indicator.Pattern)
}

// Actuator is the initialisation half of the servo driver.
type Actuator interface {
	ID() string
	Initialize(freqHz, periodUs uint32) error
}

// Server is the HTTP front-end. Start must return once the listener is up.
type Server interface {
	RegisterCGI(routes []actuation.Route)
	Start(ctx context.Context) error
}

// Target is one actuator to bring up and the route that will drive it.
type Target struct {
	Actuator Actuator
	FreqHz   uint32
	PeriodUs uint32
	Route    actuation.Route
}

type Options struct {
	Radio    Radio
	Signaler Signaler
	Server   Server
	Targets  []Target
	Connect  *netlink.ConnectParams

	Conn    *bus.Connection   // optional; stage is retained on device/stage
	OnStage func(types.Stage) // optional
}

// Sequencer owns the device stage. It is run once per process.
type Sequencer struct {
	opts Options

	mu    sync.Mutex
	stage types.Stage
	cause error
}

func New(opts Options) *Sequencer {
	return &Sequencer{opts: opts, stage: types.StageInitializing}
}

func (s *Sequencer) Stage() types.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Run walks the stages and parks in the terminal pattern: Heartbeat on
// success, ErrorHalt on the first failure. It only returns once ctx is
// cancelled, reporting where it stopped and why. A cancel before a terminal
// pattern is reached stops the sequence at the current stage with ctx.Err().
//
// Radio, Signaler, Server and Connect are required; a missing Connect is a
// bring-up failure.
func (s *Sequencer) Run(ctx context.Context) (types.Stage, error) {
	o := &s.opts
	s.advance(types.StageInitializing, nil)

	if o.Connect == nil {
		return s.halt(ctx, &errcode.E{C: errcode.InvalidParams, Op: "bringup.run", Msg: "no connect params"})
	}
	if err := o.Radio.Init(); err != nil {
		return s.halt(ctx, errcode.Wrap(errcode.RadioInitFailed, "bringup.radio_init", err))
	}
	logx.Info("radio up")
	o.Signaler.Signal(ctx, indicator.Initialized)
	if err := ctx.Err(); err != nil {
		return s.stopped(err)
	}

	// Hardware first, so a request arriving right after join finds it ready.
	for _, t := range o.Targets {
		if err := t.Actuator.Initialize(t.FreqHz, t.PeriodUs); err != nil {
			return s.halt(ctx, errcode.Wrap(errcode.ActuatorInitFailed, "bringup.actuator_init", err))
		}
		logx.Info("actuator ready", "id", t.Actuator.ID(), "freq_hz", t.FreqHz, "period_us", t.PeriodUs)
	}

	o.Radio.EnableStationMode()
	s.advance(types.StageConnecting, nil)
	o.Signaler.Signal(ctx, indicator.Connecting)
	if err := ctx.Err(); err != nil {
		return s.stopped(err)
	}

	logx.Info("joining", "ssid", o.Connect.Ssid, "timeout_ms", o.Connect.ConnectTimeout.Milliseconds())
	if err := o.Radio.Connect(o.Connect); err != nil {
		return s.halt(ctx, errcode.Wrap(errcode.JoinFailed, "bringup.join", err))
	}
	s.advance(types.StageConnected, nil)
	o.Signaler.Signal(ctx, indicator.Connected)
	if err := ctx.Err(); err != nil {
		return s.stopped(err)
	}

	routes := make([]actuation.Route, 0, len(o.Targets))
	for _, t := range o.Targets {
		routes = append(routes, t.Route)
	}
	o.Server.RegisterCGI(routes)
	if err := o.Server.Start(ctx); err != nil {
		return s.halt(ctx, errcode.Wrap(errcode.ListenFailed, "bringup.http_start", err))
	}
	s.advance(types.StageServingStarted, nil)
	o.Signaler.Signal(ctx, indicator.ServingStarted)
	if err := ctx.Err(); err != nil {
		return s.stopped(err)
	}

	o.Signaler.Signal(ctx, indicator.Heartbeat)
	return s.Stage(), nil
}

func (s *Sequencer) stopped(err error) (types.Stage, error) {
	st := s.Stage()
	logx.Info("bring-up cancelled", "stage", st.String())
	return st, err
}

func (s *Sequencer) halt(ctx context.Context, err error) (types.Stage, error) {
	logx.Error("bring-up failed", "stage", s.Stage().String(), "err", err)
	s.advance(types.StageFaulted, err)
	s.opts.Signaler.Signal(ctx, indicator.ErrorHalt)
	return types.StageFaulted, err
}

// advance moves the stage forward. Backward moves and moves out of Faulted
// are ignored.
func (s *Sequencer) advance(next types.Stage, cause error) {
	s.mu.Lock()
	if s.stage.Terminal() || next < s.stage {
		s.mu.Unlock()
		return
	}
	s.stage = next
	if cause != nil {
		s.cause = cause
	}
	st := types.StageState{Stage: next, Name: next.String(), TS: timex.NowMs()}
	if s.cause != nil {
		st.Cause = string(errcode.Of(s.cause))
	}
	s.mu.Unlock()

	logx.Debug("stage", "stage", st.Name)
	if s.opts.Conn != nil {
		s.opts.Conn.Publish(s.opts.Conn.NewMessage(topics.Stage(), st, true))
	}
	if s.opts.OnStage != nil {
		s.opts.OnStage(next)
	}
}
