// Package device assembles the firmware from a config and a HAL platform.
// Both the RP2040 image and the host simulator start here.
package device

import (
	"context"

	"servocode-go/bus"
	"servocode-go/drivers/servo"
	"servocode-go/services/actuation"
	"servocode-go/services/bringup"
	"servocode-go/services/config"
	"servocode-go/services/hal"
	"servocode-go/services/heartbeat"
	"servocode-go/services/httpd"
	"servocode-go/services/indicator"
	"servocode-go/services/topics"
	"servocode-go/types"
	"servocode-go/x/logx"
	"servocode-go/x/timex"
)

type Options struct {
	Recorder actuation.Recorder    // optional
	OnStage  func(types.Stage)     // optional
	Mount    func(s *httpd.Server) // optional; extra HTTP handlers
	Tick     timex.Tick            // indicator clock; nil is real time
}

type Device struct {
	Config    config.Config
	Bus       *bus.Bus
	Indicator *indicator.Indicator
	Channels  []*servo.Channel
	HTTP      *httpd.Server
	Sequencer *bringup.Sequencer
}

// Assemble claims every pin the config names and wires the services. It
// does not touch the radio or the PWM hardware; that is bring-up's job.
func Assemble(cfg config.Config, p *hal.Platform, opts Options) (*Device, error) {
	b := bus.NewBus(8)
	conn := b.NewConnection("device")
	config.Publish(conn, cfg)

	line, err := p.StatusLine(cfg.Indicator.Pin)
	if err != nil {
		return nil, err
	}
	ind := indicator.New(line, opts.Tick)

	srv := httpd.New(httpd.Options{Addr: cfg.HTTP.Addr, Conn: b.NewConnection("httpd")})
	if opts.Mount != nil {
		opts.Mount(srv)
	}

	d := &Device{Config: cfg, Bus: b, Indicator: ind, HTTP: srv}
	targets := make([]bringup.Target, 0, len(cfg.Actuators))
	for _, a := range cfg.Actuators {
		pwm, err := p.PWM(a.ID, a.Pin)
		if err != nil {
			return nil, err
		}
		ch := servo.New(a.ID, pwm, a.NeutralUs)
		d.Channels = append(d.Channels, ch)

		conn.Publish(conn.NewMessage(topics.ActuatorInfo(a.ID), types.Info{
			SchemaVersion: 1,
			Driver:        "servo",
			Detail: types.ActuatorInfo{
				Pin: a.Pin, FreqHz: a.FreqHz, PeriodUs: a.PeriodUs, NeutralUs: a.NeutralUs, Path: a.Path,
			},
		}, true))

		h := actuation.NewHandler(ch, ind, actuation.Options{
			Redirect: cfg.HTTP.Redirect,
			Conn:     b.NewConnection("actuation/" + a.ID),
			Recorder: opts.Recorder,
		})
		targets = append(targets, bringup.Target{
			Actuator: ch,
			FreqHz:   a.FreqHz,
			PeriodUs: a.PeriodUs,
			Route:    actuation.Route{Path: a.Path, Handler: h},
		})
	}

	d.Sequencer = bringup.New(bringup.Options{
		Radio:    p.Radio,
		Signaler: ind,
		Server:   srv,
		Targets:  targets,
		Connect:  cfg.ConnectParams(),
		Conn:     conn,
		OnStage:  opts.OnStage,
	})
	return d, nil
}

// Run starts the heartbeat log and runs bring-up. It returns only when ctx
// ends (never, on the device).
func (d *Device) Run(ctx context.Context) (types.Stage, error) {
	hb := &heartbeat.Service{}
	if err := hb.Start(ctx, d.Bus.NewConnection("heartbeat")); err != nil {
		logx.Warn("heartbeat not started", "err", err)
	}
	return d.Sequencer.Run(ctx)
}

// Halt plays ErrorHalt on the board LED. Used when assembly itself fails,
// before an Indicator exists.
func Halt(ctx context.Context, p *hal.Platform, err error) {
	logx.Error("halt", "err", err)
	line, lerr := p.StatusLine(-1)
	if lerr != nil {
		<-ctx.Done()
		return
	}
	indicator.New(line, nil).Signal(ctx, indicator.ErrorHalt)
}
