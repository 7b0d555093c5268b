package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE       = "bridge"
	STATE_CLASS_MEASUREMENT      = "measurement"
	STATE_CLASS_TOTAL_INCREASING = "total_increasing"
	DEVICE_CLASS_APPARENT_POWER  = "apparent_power"
	DEVICE_CLASS_BATTERY         = "battery"
	DEVICE_CLASS_CONNECTIVITY    = "connectivity"
	DEVICE_CLASS_CURRENT         = "current"
	DEVICE_CLASS_ENERGY          = "energy"
	DEVICE_CLASS_FREQUENCY       = "frequency"
	DEVICE_CLASS_POWER           = "power"
	DEVICE_CLASS_POWER_FACTOR    = "power_factor"
	DEVICE_CLASS_REACTIVE_POWER  = "reactive_power"
	DEVICE_CLASS_TEMPERATURE     = "temperature"
	DEVICE_CLASS_VOLTAGE         = "voltage"
	ENTITY_CLASS_DIAGNOSTIC      = "diagnostic"
	SENSOR_TYPE_SENSOR           = "sensor"
	SENSOR_TYPE_BINARY           = "binary_sensor"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("solaredge2mqtt_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "SolarEdge2MQTT",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("SolarEdge2MQTT %s", md5HashShort(baseTopic)),
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {
	return []GenericSensor{
		{
			Device:         bridgeDevice,
			Id:             SENSOR_ID_BRIDGE_STATE,
			SensorType:     SENSOR_TYPE_BINARY,
			Name:           "Bridge state",
			DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:       fmt.Sprintf("uid_%s_%s", bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
		},
	}
}

// PlatformDevice is the Home Assistant device of a SolarEdge platform.
// Children of an inverter hang below the bridge.
func PlatformDevice(p *Platform, bridge Device) Device {
	name := fmt.Sprintf("%s %s", p.Manufacturer, p.Model)
	if p.Serial != "" {
		name = fmt.Sprintf("%s %s", name, md5HashShort(p.Serial))
	}
	return Device{
		Id:           p.UIDBase,
		Name:         name,
		Version:      p.FWVersion,
		Manufacturer: p.Manufacturer,
		Model:        p.Model,
		ViaDevice:    bridge.Id,
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func md5HashShort(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])[:6]
}

func OptionalBool(v bool) *bool {
	return &v
}
