package events

import (
	. "github.com/berfenger/solaredge2mqtt/internal/core/domain"
	"github.com/berfenger/solaredge2mqtt/internal/core/sensor"
)

// ReadingToUpdateEvents converts a sensor reading into the events the MQTT
// adapter publishes: state, availability and, when the sensor has
// attributes, the attribute map.
func ReadingToUpdateEvents(deviceId string, s *sensor.Sensor, r sensor.Reading) []any {
	var events []any
	mixIn := SensorUpdateEventMixIn{
		Id:       r.UniqueId,
		DeviceId: deviceId,
	}

	events = append(events, stateUpdateEvent(mixIn, s.Unit, r.State))
	events = append(events, SensorAvailabilityUpdateEvent{
		SensorUpdateEventMixIn: mixIn,
		Available:              r.Available,
	})
	if s.HasAttributes() {
		attrs := r.Attributes
		if attrs == nil {
			attrs = map[string]any{}
		}
		events = append(events, SensorAttributesUpdateEvent{
			SensorUpdateEventMixIn: mixIn,
			Attributes:             attrs,
		})
	}

	return events
}

func stateUpdateEvent(mixIn SensorUpdateEventMixIn, unit string, state sensor.State) any {
	if v, ok := state.Float(); ok {
		return FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: mixIn,
			Value:                  v,
			Decimals:               state.Decimals(),
			Unit:                   unit,
		}
	}
	if v, ok := state.Text(); ok {
		return TextSensorUpdateEvent{
			SensorUpdateEventMixIn: mixIn,
			Value:                  v,
		}
	}
	return UnknownSensorUpdateEvent{
		SensorUpdateEventMixIn: mixIn,
		Unit:                   unit,
	}
}
