// services/hal/factories_rp2xxx.go
//go:build rp2040 || rp2350

package hal

import (
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/netlink"
	"tinygo.org/x/drivers/netlink/probe"

	"servocode-go/drivers/servo"
	"servocode-go/errcode"
	"servocode-go/x/logx"
	"servocode-go/x/mathx"
	"servocode-go/x/timex"
)

// Open wires the RP2 factories for the chip selected by the build target. The radio is probed lazily in Init so
// the bring-up sequence controls when the chip is powered.
func Open(opts Options) (*Platform, error) {
	if opts.ConsoleBaud != 0 {
		u := uartx.UART0
		if err := u.Configure(uartx.UARTConfig{
			BaudRate: opts.ConsoleBaud,
			TX:       machine.UART0_TX_PIN,
			RX:       machine.UART0_RX_PIN,
		}); err == nil {
			logx.SetOutput(u)
		}
	}
	return newPlatform(targetBoard, &rp2Radio{}, int(machine.LED), rp2Line, rp2PWMFor), nil
}

// ---- Status line ----

type rp2Pin struct{ p machine.Pin }

func (r rp2Pin) Set(on bool) { r.p.Set(on) }

func rp2Line(n int) (Line, error) {
	p := machine.Pin(n)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Low()
	return rp2Pin{p: p}, nil
}

// ---- PWM ----

// Local interface to avoid depending on an unexported concrete type in machine.
type pwmCtrl interface {
	Configure(cfg machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// Select controller handle for a given slice number (0..7).
func pwmGroupBySlice(slice uint8) pwmCtrl {
	switch slice {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}

// rp2PWM is one slice channel. The servo driver thinks in µs counts
// [0..reqTop]; the slice counter runs [0..hwTop] as chosen by the machine
// package for the requested period, so every write is rescaled.
type rp2PWM struct {
	pin     machine.Pin
	ctrl    pwmCtrl
	ch      uint8
	reqTop  uint32
	hwTop   uint32
	level   uint32
	enabled bool
}

func rp2PWMFor(n int) (servo.PWM, error) {
	slice, err := machine.PWMPeripheral(machine.Pin(n))
	if err != nil || slice > 7 {
		return nil, errcode.Unsupported
	}
	return &rp2PWM{pin: machine.Pin(n), ctrl: pwmGroupBySlice(slice)}, nil
}

func (p *rp2PWM) Configure(freqHz, top uint32) error {
	if err := p.ctrl.Configure(machine.PWMConfig{Period: timex.PeriodFromHz(freqHz)}); err != nil {
		return err
	}
	ch, err := p.ctrl.Channel(p.pin)
	if err != nil {
		return err
	}
	p.ch = ch
	p.reqTop = mathx.Max(top, 1)
	p.hwTop = p.ctrl.Top()
	p.apply()
	logx.Debug("pwm configured", "pin", int(p.pin), "freq_hz", freqHz, "hw_top", p.hwTop)
	return nil
}

func (p *rp2PWM) apply() {
	if !p.enabled {
		p.ctrl.Set(p.ch, 0)
		return
	}
	p.ctrl.Set(p.ch, mathx.Rescale(p.level, p.reqTop, p.hwTop))
}

func (p *rp2PWM) Set(level uint32) {
	p.level = level
	p.apply()
}

func (p *rp2PWM) Enable(on bool) {
	p.enabled = on
	p.apply()
}

// ---- Radio ----

// rp2Radio wraps whichever netlink driver the probe finds for the target
// (e.g. the NINA module on the Nano RP2040 Connect).
type rp2Radio struct {
	link netlink.Netlinker
	mode netlink.ConnectMode
}

func (r *rp2Radio) Init() error {
	link, _ := probe.Probe()
	if link == nil {
		return errcode.Unsupported
	}
	link.NetNotify(func(e netlink.Event) {
		switch e {
		case netlink.EventNetUp:
			logx.Info("link up")
		case netlink.EventNetDown:
			logx.Warn("link down")
		}
	})
	r.link = link
	return nil
}

func (r *rp2Radio) EnableStationMode() { r.mode = netlink.ConnectModeSTA }

func (r *rp2Radio) Connect(params *netlink.ConnectParams) error {
	if r.link == nil {
		return netlink.ErrConnectFailed
	}
	params.ConnectMode = r.mode
	return r.link.NetConnect(params)
}
