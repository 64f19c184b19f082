package heartbeat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"servocode-go/bus"
	"servocode-go/services/config"
	"servocode-go/services/topics"
	"servocode-go/types"
)

func TestIntervalOf(t *testing.T) {
	d, ok := intervalOf(config.Heartbeat{IntervalS: 5})
	require.True(t, ok)
	require.Equal(t, 5*time.Second, d)

	d, ok = intervalOf(map[string]any{"interval_s": 0.5})
	require.True(t, ok)
	require.Equal(t, 500*time.Millisecond, d)

	_, ok = intervalOf(config.Heartbeat{})
	require.False(t, ok)
	_, ok = intervalOf("nope")
	require.False(t, ok)
}

func TestService_BeatsWithRetainedState(t *testing.T) {
	conn := bus.NewBus(8).NewConnection("test")
	conn.Publish(conn.NewMessage(topics.Stage(), types.StageState{Name: "serving"}, true))
	conn.Publish(conn.NewMessage(topics.ActuatorValue("servo0"),
		types.ActuatorValue{ID: "servo0", PulseUs: 1500, Enabled: true}, true))
	conn.Publish(conn.NewMessage(topics.ConfigHeartbeat(), map[string]any{"interval_s": 0.01}, true))

	type beat struct {
		stage string
		n     int
	}
	beats := make(chan beat, 16)
	s := &Service{Beat: func(stage string, acts []types.ActuatorValue) {
		select {
		case beats <- beat{stage, len(acts)}:
		default:
		}
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx, conn))

	select {
	case b := <-beats:
		require.Equal(t, "serving", b.stage)
		require.Equal(t, 1, b.n)
	case <-time.After(2 * time.Second):
		t.Fatal("no heartbeat")
	}
}
