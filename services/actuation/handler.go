// Package actuation turns HTTP request parameters into actuator commands.
package actuation

import (
	"context"
	"sync"

	"servocode-go/bus"
	"servocode-go/services/indicator"
	"servocode-go/services/topics"
	"servocode-go/types"
	"servocode-go/x/logx"
)

// Actuator is the part of the servo driver a request can reach.
type Actuator interface {
	ID() string
	TurnOn() error
	TurnOff() error
	Snapshot() types.ActuatorValue
}

// Signaler plays indicator patterns.
type Signaler interface {
	Signal(ctx context.Context, p indicator.Pattern)
}

// Recorder observes handled commands (metrics).
type Recorder interface {
	Actuation(id string, cmd Command, err error)
	Position(v types.ActuatorValue)
}

// ActuationHandler is what the HTTP front-end calls for a registered path.
type ActuationHandler interface {
	Handle(ctx context.Context, params []Param) string
}

type Options struct {
	Redirect string          // page returned after every request
	Conn     *bus.Connection // optional; actuator state is retained here
	Recorder Recorder        // optional
}

// Handler drives one actuator. Commands and the retained state they publish
// are applied one request at a time, so the bus never holds an older
// snapshot than the channel. The Ack pulse runs outside that section.
type Handler struct {
	mu       sync.Mutex
	act      Actuator
	sig      Signaler
	redirect string
	conn     *bus.Connection
	rec      Recorder
}

var _ ActuationHandler = (*Handler)(nil)

func NewHandler(act Actuator, sig Signaler, opts Options) *Handler {
	if opts.Redirect == "" {
		opts.Redirect = "/index.html"
	}
	h := &Handler{act: act, sig: sig, redirect: opts.Redirect, conn: opts.Conn, rec: opts.Recorder}
	h.publish()
	return h
}

// Handle applies the request and returns the page to send the client to.
// It never fails: unknown input and driver errors are logged and absorbed.
func (h *Handler) Handle(ctx context.Context, params []Param) string {
	cmd := ParseCommand(params)
	if cmd == Unrecognized {
		logx.Debug("actuation ignored", "actuator", h.act.ID(), "params", len(params))
		return h.redirect
	}

	if err := h.apply(cmd); err != nil {
		logx.Warn("actuation failed", "actuator", h.act.ID(), "cmd", cmd.String(), "err", err)
		return h.redirect
	}
	logx.Info("actuation", "actuator", h.act.ID(), "cmd", cmd.String())
	h.sig.Signal(ctx, indicator.Ack)
	return h.redirect
}

func (h *Handler) apply(cmd Command) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if cmd == TurnOn {
		err = h.act.TurnOn()
	} else {
		err = h.act.TurnOff()
	}
	if h.rec != nil {
		h.rec.Actuation(h.act.ID(), cmd, err)
	}
	if err == nil {
		h.publish()
	}
	return err
}

// HandleCGI adapts the lwIP-style (index, names[], values[]) call shape.
func (h *Handler) HandleCGI(_ int, names, values []string) string {
	return h.Handle(context.Background(), Zip(names, values))
}

// caller holds h.mu, or is NewHandler
func (h *Handler) publish() {
	v := h.act.Snapshot()
	if h.rec != nil {
		h.rec.Position(v)
	}
	if h.conn != nil {
		h.conn.Publish(h.conn.NewMessage(topics.ActuatorValue(v.ID), v, true))
	}
}

// Route binds a URL path to the handler that serves it.
type Route struct {
	Path    string
	Handler ActuationHandler
}
