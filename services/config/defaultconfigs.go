package config

import "embed"

// -----------------------------------------------------------------------------
// Embedded configuration
//
// One YAML document per device ID under devices/. The firmware picks its
// document at start-up; nothing is read from flash at runtime.
// -----------------------------------------------------------------------------

//go:embed devices/*.yaml
var embedded embed.FS

// Link-time overrides, e.g.
//
//	tinygo flash -target nano-rp2040 -ldflags "-X servocode-go/services/config.SSID=lab -X servocode-go/services/config.Passphrase=..."
var (
	SSID       string
	Passphrase string
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, err := embedded.ReadFile("devices/" + device + ".yaml")
	if err != nil {
		return nil, false
	}
	return b, true
}
