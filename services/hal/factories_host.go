// services/hal/factories_host.go
//go:build !rp2040 && !rp2350

package hal

import (
	"sync"
	"time"

	"tinygo.org/x/drivers/netlink"

	"servocode-go/drivers/servo"
	"servocode-go/errcode"
	"servocode-go/x/logx"
	"servocode-go/x/mathx"
)

// HostBoard mirrors the RP2040 GPIO range so configs stay portable.
var HostBoard = Board{Name: "host_sim", GPIOMin: 0, GPIOMax: 29}

// hostLEDPin stands in for the on-board LED (GP25 on a Pico).
const hostLEDPin = 25

// hostPWMTop is the counter top the simulated slice settles on; it differs
// from the logical range so level scaling is exercised.
const hostPWMTop = 62500

// Open returns a host platform with a radio that always succeeds.
func Open(opts Options) (*Platform, error) {
	return OpenSim(opts, &SimRadio{})
}

// OpenSim returns a host platform driven by the given simulated radio.
func OpenSim(opts Options, radio *SimRadio) (*Platform, error) {
	sim := &simBoard{lines: map[int]*SimLine{}, pwms: map[int]*SimPWM{}}
	return newPlatform(HostBoard, radio, hostLEDPin, sim.line, sim.pwm), nil
}

type simBoard struct {
	mu    sync.Mutex
	lines map[int]*SimLine
	pwms  map[int]*SimPWM
}

func (b *simBoard) line(pin int) (Line, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.lines[pin]
	if !ok {
		l = &SimLine{pin: pin}
		b.lines[pin] = l
	}
	return l, nil
}

func (b *simBoard) pwm(pin int) (servo.PWM, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pwms[pin]
	if !ok {
		p = &SimPWM{pin: pin}
		b.pwms[pin] = p
	}
	return p, nil
}

// ----------------------------- Status line -----------------------------------

// SimLine is a host-side LED. It logs edges at debug level.
type SimLine struct {
	mu      sync.Mutex
	pin     int
	on      bool
	toggles int
}

func (l *SimLine) Set(on bool) {
	l.mu.Lock()
	changed := l.on != on
	l.on = on
	if changed {
		l.toggles++
	}
	l.mu.Unlock()
	if changed {
		logx.Debug("led", "pin", l.pin, "on", on)
	}
}

func (l *SimLine) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

func (l *SimLine) Toggles() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.toggles
}

// ----------------------------- PWM -------------------------------------------

// SimPWM models one RP2040 PWM channel: the logical range [0..top] is scaled
// onto the hardware counter top, and "disabled" drives duty 0.
type SimPWM struct {
	mu      sync.Mutex
	pin     int
	freqHz  uint32
	reqTop  uint32
	hwTop   uint32
	level   uint32
	hw      uint32
	enabled bool
}

func (p *SimPWM) Configure(freqHz, top uint32) error {
	if freqHz == 0 || top == 0 {
		return errcode.InvalidParams
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.freqHz, p.reqTop, p.hwTop = freqHz, top, hostPWMTop
	p.apply()
	return nil
}

// caller holds lock
func (p *SimPWM) apply() {
	if !p.enabled {
		p.hw = 0
		return
	}
	p.hw = mathx.Rescale(p.level, p.reqTop, p.hwTop)
}

func (p *SimPWM) Set(level uint32) {
	p.mu.Lock()
	p.level = level
	p.apply()
	p.mu.Unlock()
}

func (p *SimPWM) Enable(on bool) {
	p.mu.Lock()
	p.enabled = on
	p.apply()
	p.mu.Unlock()
}

// Level is the logical level (µs); HWLevel the scaled counter compare value.
func (p *SimPWM) Level() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *SimPWM) HWLevel() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hw
}

func (p *SimPWM) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// ----------------------------- Radio -----------------------------------------

// SimRadio stands in for the WiFi chip. Failure knobs are read at call time.
type SimRadio struct {
	mu sync.Mutex

	FailInit  bool
	JoinErr   error         // returned by Connect after JoinDelay
	JoinDelay time.Duration // time to associate

	calls []string
	sta   bool
}

func (r *SimRadio) record(c string) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
}

// Calls lists the driver calls in order ("init", "sta", "connect").
func (r *SimRadio) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *SimRadio) Init() error {
	r.record("init")
	if r.FailInit {
		return errcode.Error
	}
	return nil
}

func (r *SimRadio) EnableStationMode() {
	r.record("sta")
	r.mu.Lock()
	r.sta = true
	r.mu.Unlock()
}

func (r *SimRadio) Connect(params *netlink.ConnectParams) error {
	r.record("connect")
	r.mu.Lock()
	sta := r.sta
	r.mu.Unlock()
	if !sta {
		return netlink.ErrConnectFailed
	}
	if params.Ssid == "" {
		return netlink.ErrMissingSSID
	}
	if params.AuthType != netlink.AuthTypeOpen && len(params.Passphrase) < 8 {
		return netlink.ErrShortPassphrase
	}
	timeout := params.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if r.JoinDelay > timeout {
		time.Sleep(timeout)
		return netlink.ErrConnectTimeout
	}
	time.Sleep(r.JoinDelay)
	return r.JoinErr
}
