package mqtt

import (
	"testing"

	"github.com/berfenger/solaredge2mqtt/internal/config"
	"github.com/berfenger/solaredge2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *MQTTClient {
	cfg := &config.Config{
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "solaredge2mqtt",
			HADiscoveryTopic: "homeassistant",
		},
		HubConfig: config.HubConfig{
			Topic: "solaredge_hub",
		},
	}
	return CreateMQTTClient(cfg, OptsFromConfig(cfg), nil, nil)
}

func TestSnapshotTopicParse(t *testing.T) {
	c := testClient()

	deviceId, err := c.parseSnapshotTopic("solaredge_hub/se_inv_1/snapshot")
	require.NoError(t, err)
	assert.Equal(t, "se_inv_1", deviceId)
	assert.Equal(t, "solaredge_hub/+/snapshot", c.SnapshotTopic())
}

func TestSnapshotTopicParseFail(t *testing.T) {
	c := testClient()

	for _, topic := range []string{
		"solaredge_hub/se-inv-1/snapshot",
		"solaredge_hub/se_inv_1/state",
		"other_hub/se_inv_1/snapshot",
		"prefix/solaredge_hub/se_inv_1/snapshot",
		"solaredge_hub/a/b/snapshot",
	} {
		_, err := c.parseSnapshotTopic(topic)
		assert.ErrorIs(t, err, ErrInvalidSnapshotTopic, topic)
	}
}

func TestSensorTopics(t *testing.T) {
	c := testClient()

	assert.Equal(t, "solaredge2mqtt/bridge/state", c.BridgeStateTopic())
	assert.Equal(t, "solaredge2mqtt/sensor/se_inv_1_ac_power/state", c.SensorStateTopic("se_inv_1_ac_power"))
	assert.Equal(t, "solaredge2mqtt/sensor/se_inv_1_status/attributes", c.SensorAttributesTopic("se_inv_1_status"))
	assert.Equal(t, "solaredge2mqtt/sensor/se_inv_1_status/availability", c.SensorAvailabilityTopic("se_inv_1_status"))
}

func TestSensorDiscoveryMessage(t *testing.T) {
	c := testClient()
	bridge := domain.BridgeDevice("solaredge2mqtt")
	dev := domain.Device{Id: "se_inv_1", Name: "SolarEdge SE5000H", ViaDevice: bridge.Id}
	sensor := domain.GenericSensor{
		Device:            dev,
		Id:                "se_inv_1_status",
		UniqueId:          "se_inv_1_status",
		SensorType:        domain.SENSOR_TYPE_SENSOR,
		Name:              "Status",
		EntityCategory:    domain.ENTITY_CLASS_DIAGNOSTIC,
		EnabledByDefault:  domain.OptionalBool(true),
		HasAttributes:     true,
		HasAvailability:   true,
		UnitOfMeasurement: "",
	}

	msg := GenericSensorToHADiscoveryMessage(c, sensor)
	assert.Equal(t, "solaredge2mqtt/sensor/se_inv_1_status/state", msg.StateTopic)
	assert.Equal(t, "solaredge2mqtt/sensor/se_inv_1_status/attributes", msg.JsonAttributesTopic)
	assert.Equal(t, "all", msg.AvailabilityMode)
	require.Len(t, msg.Availability, 2)
	assert.Equal(t, c.BridgeStateTopic(), msg.Availability[0].Topic)
	assert.Empty(t, msg.AvTopic)
	assert.Equal(t, []string{"se_inv_1"}, msg.Device.Id)
	assert.Equal(t, bridge.Id, msg.Device.ViaDevice)
	assert.Equal(t, "homeassistant/sensor/se_inv_1/se_inv_1_status/config", HADiscoverySensorTopic(c.DiscoveryPrefix(), sensor))
}

func TestBridgeDiscoveryMessage(t *testing.T) {
	c := testClient()
	bridge := domain.BridgeDevice("solaredge2mqtt")
	sensor := domain.BridgeSensors(bridge)[0]

	msg := GenericSensorToHADiscoveryMessage(c, sensor)
	assert.Equal(t, c.BridgeStateTopic(), msg.StateTopic)
	assert.Equal(t, c.BridgeStateTopic(), msg.AvTopic)
	assert.Equal(t, MQTT_PAYLOAD_ONLINE, msg.PayloadOn)
	assert.Equal(t, MQTT_PAYLOAD_OFFLINE, msg.PayloadOff)
	assert.Empty(t, msg.JsonAttributesTopic)
	assert.Equal(t, "homeassistant/binary_sensor/"+bridge.Id+"/bridge/config", HADiscoverySensorTopic(c.DiscoveryPrefix(), sensor))
}
