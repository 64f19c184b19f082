// Package heartbeat logs a periodic liveness line with the device stage and
// actuator state. The interval follows config/heartbeat.
package heartbeat

import (
	"context"
	"time"

	"servocode-go/bus"
	"servocode-go/services/config"
	"servocode-go/services/topics"
	"servocode-go/types"
	"servocode-go/x/logx"
)

const defaultInterval = 30 * time.Second

type Service struct {
	// Beat, if set, receives each line instead of the logger (tests).
	Beat func(stage string, actuators []types.ActuatorValue)
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topics.ConfigHeartbeat())
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			logx.Info("heartbeat service stopping")
			return
		case <-tick.C:
			s.beat(conn)
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			if d, ok := intervalOf(msg.Payload); ok {
				tick.Reset(d)
				logx.Info("heartbeat interval set", "seconds", int(d/time.Second))
			}
		}
	}
}

func (s *Service) beat(conn *bus.Connection) {
	stage := types.StageInitializing.String()
	for _, m := range conn.Retained(topics.Stage()) {
		if st, ok := m.Payload.(types.StageState); ok {
			stage = st.Name
		}
	}
	var acts []types.ActuatorValue
	for _, m := range conn.Retained(topics.ActuatorValues()) {
		if v, ok := m.Payload.(types.ActuatorValue); ok {
			acts = append(acts, v)
		}
	}
	if s.Beat != nil {
		s.Beat(stage, acts)
		return
	}
	logx.Info("heartbeat", "stage", stage, "actuators", len(acts))
	for _, a := range acts {
		logx.Debug("actuator", "id", a.ID, "pulse_us", a.PulseUs, "enabled", a.Enabled)
	}
}

// intervalOf accepts the typed config section or a decoded map.
func intervalOf(p any) (time.Duration, bool) {
	var secs float64
	switch v := p.(type) {
	case config.Heartbeat:
		secs = float64(v.IntervalS)
	case map[string]any:
		switch iv := v["interval_s"].(type) {
		case int:
			secs = float64(iv)
		case float64:
			secs = iv
		default:
			return 0, false
		}
	default:
		return 0, false
	}
	if secs <= 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
