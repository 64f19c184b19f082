//go:build !rp2040 && !rp2350

package hal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"tinygo.org/x/drivers/netlink"

	"servocode-go/errcode"
)

func TestRegistry_ClaimRelease(t *testing.T) {
	r := NewRegistry(HostBoard)

	require.NoError(t, r.Claim("servo0", 16, FuncPWM))
	require.NoError(t, r.Claim("servo0", 16, FuncPWM), "same owner may re-claim")
	require.ErrorIs(t, r.Claim("servo1", 16, FuncPWM), errcode.PinInUse)
	require.ErrorIs(t, r.Claim("servo0", 16, FuncGPIOOut), errcode.PinInUse)
	require.ErrorIs(t, r.Claim("servo1", 99, FuncPWM), errcode.UnknownPin)

	owner, ok := r.Owner(16)
	require.True(t, ok)
	require.Equal(t, "servo0", owner)

	r.Release("servo1", 16) // not the owner: ignored
	_, ok = r.Owner(16)
	require.True(t, ok)

	r.Release("servo0", 16)
	require.NoError(t, r.Claim("servo1", 16, FuncPWM))
}

func TestPlatform_StatusLineAndPWM(t *testing.T) {
	p, err := Open(Options{})
	require.NoError(t, err)

	line, err := p.StatusLine(-1)
	require.NoError(t, err)
	owner, _ := p.Registry().Owner(hostLEDPin)
	require.Equal(t, "indicator", owner)

	line.Set(true)
	line.Set(false)
	require.Equal(t, 2, line.(*SimLine).Toggles())

	pwm, err := p.PWM("servo0", 16)
	require.NoError(t, err)
	again, err := p.PWM("servo0", 16)
	require.NoError(t, err)
	require.Same(t, pwm, again)

	_, err = p.PWM("servo1", 16)
	require.ErrorIs(t, err, errcode.PinInUse)
	_, err = p.PWM("servo1", hostLEDPin)
	require.ErrorIs(t, err, errcode.PinInUse)
}

func TestSimPWM_ScalesAndDisables(t *testing.T) {
	p := &SimPWM{}
	require.NoError(t, p.Configure(50, 20000))

	p.Enable(true)
	p.Set(1500)
	require.Equal(t, uint32(1500), p.Level())
	require.Equal(t, uint32(4688), p.HWLevel())

	p.Enable(false)
	require.Equal(t, uint32(0), p.HWLevel())
	require.Equal(t, uint32(1500), p.Level())

	require.ErrorIs(t, p.Configure(0, 20000), errcode.InvalidParams)
}

func TestSimRadio_ConnectOutcomes(t *testing.T) {
	params := func() *netlink.ConnectParams {
		return &netlink.ConnectParams{
			Ssid:           "lab",
			Passphrase:     "correct horse",
			AuthType:       netlink.AuthTypeWPA2,
			ConnectTimeout: 20 * time.Millisecond,
		}
	}

	r := &SimRadio{}
	require.ErrorIs(t, r.Connect(params()), netlink.ErrConnectFailed, "station mode not enabled")

	r.EnableStationMode()
	require.NoError(t, r.Connect(params()))

	short := params()
	short.Passphrase = "123"
	require.ErrorIs(t, r.Connect(short), netlink.ErrShortPassphrase)

	noSSID := params()
	noSSID.Ssid = ""
	require.ErrorIs(t, r.Connect(noSSID), netlink.ErrMissingSSID)

	r.JoinDelay = time.Second
	start := time.Now()
	require.ErrorIs(t, r.Connect(params()), netlink.ErrConnectTimeout)
	require.Less(t, time.Since(start), time.Second)

	r.JoinDelay = 0
	r.JoinErr = netlink.ErrAuthFailure
	require.ErrorIs(t, r.Connect(params()), netlink.ErrAuthFailure)

	require.Equal(t, []string{"connect", "sta", "connect", "connect", "connect", "connect", "connect"}, r.Calls())

	r.FailInit = true
	require.Error(t, r.Init())
}

func TestBoards_PinLimits(t *testing.T) {
	rp2040 := NewRegistry(RP2040)
	require.NoError(t, rp2040.Claim("servo0", 29, FuncPWM))
	require.ErrorIs(t, rp2040.Claim("servo1", 30, FuncPWM), errcode.UnknownPin)

	rp2350 := NewRegistry(RP2350)
	require.NoError(t, rp2350.Claim("servo0", 47, FuncPWM))
	require.ErrorIs(t, rp2350.Claim("servo1", 48, FuncPWM), errcode.UnknownPin)
	require.ErrorIs(t, rp2350.Claim("servo1", -1, FuncPWM), errcode.UnknownPin)
}
