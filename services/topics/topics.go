// Package topics names the retained bus topics shared between services.
package topics

import (
	"servocode-go/bus"
	"servocode-go/types"
)

// device/stage
func Stage() bus.Topic { return bus.T("device", "stage") }

// hal/cap/<kind>/<name>
func capBase(kind types.Kind, name string) bus.Topic {
	return bus.T("hal", "cap", string(kind), name)
}

func ActuatorInfo(id string) bus.Topic  { return capBase(types.KindActuator, id).Append("info") }
func ActuatorValue(id string) bus.Topic { return capBase(types.KindActuator, id).Append("value") }

// hal/cap/actuator/+/value
func ActuatorValues() bus.Topic { return bus.T("hal", "cap", string(types.KindActuator), "+", "value") }

func ConfigHeartbeat() bus.Topic { return bus.T("config", "heartbeat") }
