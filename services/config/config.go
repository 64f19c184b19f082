package config

import (
	"errors"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"tinygo.org/x/drivers/netlink"

	"servocode-go/bus"
	"servocode-go/errcode"
	"servocode-go/x/timex"
)

// Config is the complete build-time configuration of one device.
type Config struct {
	Device    string     `yaml:"device"`
	WiFi      WiFi       `yaml:"wifi"`
	HTTP      HTTP       `yaml:"http"`
	Indicator Indicator  `yaml:"indicator"`
	Actuators []Actuator `yaml:"actuators"`
	Heartbeat Heartbeat  `yaml:"heartbeat"`
	Log       Log        `yaml:"log"`
}

type WiFi struct {
	SSID          string `yaml:"ssid"`
	Passphrase    string `yaml:"passphrase"`
	Auth          string `yaml:"auth"` // open, wpa, wpa2, wpa2-mixed
	JoinTimeoutMs uint32 `yaml:"join_timeout_ms"`
}

type HTTP struct {
	Addr     string `yaml:"addr"`
	Redirect string `yaml:"redirect"`
}

type Indicator struct {
	Pin int `yaml:"pin"` // negative: board LED
}

// Actuator describes one PWM servo output and the URL path that drives it.
type Actuator struct {
	ID        string `yaml:"id"`
	Pin       int    `yaml:"pin"`
	Path      string `yaml:"path"`
	FreqHz    uint32 `yaml:"freq_hz"`
	PeriodUs  uint32 `yaml:"period_us"`
	NeutralUs uint32 `yaml:"neutral_us"`
}

type Heartbeat struct {
	IntervalS int `yaml:"interval_s"`
}

type Log struct {
	Level string `yaml:"level"`
}

const (
	DefaultJoinTimeout = 30 * time.Second
	DefaultRedirect    = "/index.html"
	DefaultPath        = "/servo"
)

var (
	errNoSSID       = errors.New("wifi ssid must be set")
	errNoActuators  = errors.New("at least one actuator is required")
	errDupActuator  = errors.New("duplicate actuator id or path")
	errBadAuth      = errors.New("unknown wifi auth")
	errBadActuator  = errors.New("actuator neutral must lie within its period")
	errBadFrequency = errors.New("actuator period exceeds one PWM cycle")
)

// Load resolves the embedded document for device, applies link-time
// credential overrides, fills defaults and validates.
func Load(device string) (Config, error) {
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return Config{}, &errcode.E{C: errcode.InvalidParams, Op: "config.load", Msg: "no embedded config for device: " + device}
	}
	var cfg Config
	if err := cfg.Merge(raw); err != nil {
		return Config{}, err
	}
	if SSID != "" {
		cfg.WiFi.SSID = SSID
	}
	if Passphrase != "" {
		cfg.WiFi.Passphrase = Passphrase
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Merge overlays a YAML document onto c. Keys absent from raw keep their
// current value; lists are replaced.
func (c *Config) Merge(raw []byte) error {
	if err := yaml.Unmarshal(raw, c); err != nil {
		return errcode.Wrap(errcode.InvalidParams, "config.merge", err)
	}
	c.applyDefaults()
	return nil
}

func (c *Config) applyDefaults() {
	if c.WiFi.Auth == "" {
		c.WiFi.Auth = "wpa2"
	}
	if c.WiFi.JoinTimeoutMs == 0 {
		c.WiFi.JoinTimeoutMs = uint32(DefaultJoinTimeout / time.Millisecond)
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":80"
	}
	if c.HTTP.Redirect == "" {
		c.HTTP.Redirect = DefaultRedirect
	}
	if c.Heartbeat.IntervalS <= 0 {
		c.Heartbeat.IntervalS = 30
	}
	for i := range c.Actuators {
		a := &c.Actuators[i]
		if a.FreqHz == 0 {
			a.FreqHz = 50
		}
		if a.PeriodUs == 0 {
			a.PeriodUs = timex.PeriodUsFromHz(a.FreqHz)
		}
		if a.NeutralUs == 0 {
			a.NeutralUs = 1500
		}
		if a.Path == "" && i == 0 {
			a.Path = DefaultPath
		}
	}
}

// Validate checks the fields bring-up relies on.
func (c *Config) Validate() error {
	if c.WiFi.SSID == "" {
		return errNoSSID
	}
	if _, ok := authTypes[strings.ToLower(c.WiFi.Auth)]; !ok {
		return errBadAuth
	}
	if len(c.Actuators) == 0 {
		return errNoActuators
	}
	seen := map[string]bool{}
	for _, a := range c.Actuators {
		if a.ID == "" || a.Path == "" || seen["id:"+a.ID] || seen["path:"+a.Path] {
			return errDupActuator
		}
		seen["id:"+a.ID], seen["path:"+a.Path] = true, true
		if a.PeriodUs > timex.PeriodUsFromHz(a.FreqHz) {
			return errBadFrequency
		}
		if a.NeutralUs > a.PeriodUs {
			return errBadActuator
		}
	}
	return nil
}

var authTypes = map[string]netlink.AuthType{
	"open":       netlink.AuthTypeOpen,
	"wpa":        netlink.AuthTypeWPA,
	"wpa2":       netlink.AuthTypeWPA2,
	"wpa2-mixed": netlink.AuthTypeWPA2Mixed,
}

// ConnectParams builds the station-mode join request.
func (c *Config) ConnectParams() *netlink.ConnectParams {
	return &netlink.ConnectParams{
		ConnectMode:    netlink.ConnectModeSTA,
		Ssid:           c.WiFi.SSID,
		Passphrase:     c.WiFi.Passphrase,
		AuthType:       authTypes[strings.ToLower(c.WiFi.Auth)],
		ConnectTimeout: time.Duration(c.WiFi.JoinTimeoutMs) * time.Millisecond,
	}
}

// -----------------------------------------------------------------------------
// Bus publication
// -----------------------------------------------------------------------------

const configPrefix = "config"

// Publish retains each section on config/<section> so services can follow
// their own configuration. The passphrase is never published.
func Publish(conn *bus.Connection, c Config) {
	wifi := c.WiFi
	wifi.Passphrase = ""
	sections := []struct {
		key string
		val any
	}{
		{"device", c.Device},
		{"wifi", wifi},
		{"http", c.HTTP},
		{"indicator", c.Indicator},
		{"actuators", c.Actuators},
		{"heartbeat", c.Heartbeat},
		{"log", c.Log},
	}
	for _, s := range sections {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, s.key), s.val, true))
	}
}
