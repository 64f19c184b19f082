//go:build rp2350

package hal

var targetBoard = RP2350
