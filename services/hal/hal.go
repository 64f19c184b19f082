// Package hal exposes the board resources the firmware needs: a status
// line, PWM channels for actuators, the WiFi radio and a console. Concrete
// factories are selected by build tags (RP2040/RP2350 target vs host simulation).
package hal

import (
	"sync"

	"tinygo.org/x/drivers/netlink"

	"servocode-go/drivers/servo"
	"servocode-go/errcode"
	"servocode-go/x/logx"
)

// Line is a binary output (the status LED).
type Line interface {
	Set(on bool)
}

// Radio is the WiFi link driver in bring-up order.
type Radio interface {
	Init() error
	EnableStationMode()
	Connect(params *netlink.ConnectParams) error
}

// Board describes what the SoC offers. Wiring lives in config.
type Board struct {
	Name             string
	GPIOMin, GPIOMax int
}

// RP2040 user GPIOs are GP0..GP29.
var RP2040 = Board{Name: "rp2040", GPIOMin: 0, GPIOMax: 29}

// RP2350 covers the B package (GP0..GP47); the A package stops at GP29.
var RP2350 = Board{Name: "rp2350", GPIOMin: 0, GPIOMax: 47}

type Options struct {
	// ConsoleBaud enables the UART log console when non-zero (device only).
	ConsoleBaud uint32
}

// ---- Pin ownership ----

type PinFunc uint8

const (
	FuncGPIOOut PinFunc = iota + 1
	FuncPWM
)

type pinOwner struct {
	devID string
	fn    PinFunc
}

// Registry records which device owns which pin.
type Registry struct {
	mu     sync.Mutex
	board  Board
	owners map[int]pinOwner
}

func NewRegistry(b Board) *Registry {
	return &Registry{board: b, owners: make(map[int]pinOwner)}
}

// Claim reserves pin n for devID. Re-claiming by the same owner and function
// succeeds.
func (r *Registry) Claim(devID string, n int, fn PinFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n < r.board.GPIOMin || n > r.board.GPIOMax {
		return errcode.UnknownPin
	}
	if o, ok := r.owners[n]; ok {
		if o.devID == devID && o.fn == fn {
			return nil
		}
		return errcode.PinInUse
	}
	r.owners[n] = pinOwner{devID: devID, fn: fn}
	return nil
}

func (r *Registry) Release(devID string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.owners[n]; ok && o.devID == devID {
		delete(r.owners, n)
	}
}

// Owner reports the device holding pin n.
func (r *Registry) Owner(n int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.owners[n]
	return o.devID, ok
}

// ---- Platform ----

// Platform bundles the board resources for one process.
type Platform struct {
	Board Board
	Radio Radio

	reg     *Registry
	lineFn  func(pin int) (Line, error)
	pwmFn   func(pin int) (servo.PWM, error)
	ledPin  int
	pwmByID map[string]servo.PWM
}

func (p *Platform) Registry() *Registry { return p.reg }

// StatusLine claims the indicator output.
func (p *Platform) StatusLine(pin int) (Line, error) {
	if pin < 0 {
		pin = p.ledPin
	}
	if err := p.reg.Claim("indicator", pin, FuncGPIOOut); err != nil {
		return nil, &errcode.E{C: errcode.Of(err), Op: "hal.status_line"}
	}
	return p.lineFn(pin)
}

// PWM claims pin for devID and returns its timing-generator channel.
func (p *Platform) PWM(devID string, pin int) (servo.PWM, error) {
	if err := p.reg.Claim(devID, pin, FuncPWM); err != nil {
		return nil, &errcode.E{C: errcode.Of(err), Op: "hal.pwm", Msg: devID}
	}
	if h, ok := p.pwmByID[devID]; ok {
		return h, nil
	}
	h, err := p.pwmFn(pin)
	if err != nil {
		p.reg.Release(devID, pin)
		return nil, err
	}
	p.pwmByID[devID] = h
	logx.Debug("pwm claimed", "dev", devID, "pin", pin)
	return h, nil
}

func newPlatform(b Board, radio Radio, ledPin int,
	lineFn func(int) (Line, error), pwmFn func(int) (servo.PWM, error)) *Platform {
	return &Platform{
		Board:   b,
		Radio:   radio,
		reg:     NewRegistry(b),
		lineFn:  lineFn,
		pwmFn:   pwmFn,
		ledPin:  ledPin,
		pwmByID: make(map[string]servo.PWM),
	}
}
