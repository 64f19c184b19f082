//go:build rp2040 || rp2350

// Firmware entry point: one servo on a WiFi-attached RP2040 or RP2350 board.
//
//	tinygo flash -target nano-rp2040 -ldflags "-X servocode-go/services/config.SSID=... -X servocode-go/services/config.Passphrase=..." ./cmd/pico-servo
package main

import (
	"context"
	"time"

	"servocode-go/services/config"
	"servocode-go/services/device"
	"servocode-go/services/hal"
	"servocode-go/x/logx"
)

const consoleBaud = 115200

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	ctx := context.Background()

	cfg, cfgErr := config.Load("pico")
	if lvl, ok := logx.ParseLevel(cfg.Log.Level); ok {
		logx.SetLevel(lvl)
	}

	p, err := hal.Open(hal.Options{ConsoleBaud: consoleBaud})
	if err != nil {
		println("hal open failed:", err.Error())
		select {}
	}
	if cfgErr != nil {
		device.Halt(ctx, p, cfgErr)
		return
	}

	d, err := device.Assemble(cfg, p, device.Options{})
	if err != nil {
		device.Halt(ctx, p, err)
		return
	}
	logx.Info("boot", "device", cfg.Device, "actuators", len(d.Channels))
	d.Run(ctx)
}
