//go:build rp2040

package hal

var targetBoard = RP2040
