package domain

import "fmt"

type SensorUpdateEventMixIn struct {
	Id       string
	DeviceId string
}

type SensorUpdateEvent interface {
	SensorUpdateEvent() string
	SensorId() string
}

func (e SensorUpdateEventMixIn) SensorUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

// FloatSensorUpdateEvent carries a numeric state. Negative Decimals means
// shortest representation.
type FloatSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals int
	Unit     string
}

type BinarySensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type TextSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value string
}

// UnknownSensorUpdateEvent clears the state of a sensor.
type UnknownSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Unit string
}

type SensorAttributesUpdateEvent struct {
	SensorUpdateEventMixIn
	Attributes map[string]any
}

type SensorAvailabilityUpdateEvent struct {
	SensorUpdateEventMixIn
	Available bool
}

type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

// DeviceRegisteredEvent is published once per device when its entities are
// built, and again when they are rebuilt.
type DeviceRegisteredEvent struct {
	Device  Device
	Sensors []GenericSensor
}

// SnapshotIngestedEvent is published for every accepted device snapshot.
type SnapshotIngestedEvent struct {
	UIDBase string
	Source  string
}

type SnapshotRejectedEvent struct {
	Source string
	Error  error
}

// DeviceOnlineEvent reports a change of device liveness, either from the
// snapshot online flag or from the stale sweep.
type DeviceOnlineEvent struct {
	UIDBase string
	Online  bool
}
