package mqtt

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"time"

	"github.com/berfenger/solaredge2mqtt/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	MQTT_PAYLOAD_ONLINE  = "online"
	MQTT_PAYLOAD_OFFLINE = "offline"
	MQTT_PAYLOAD_ON      = "on"
	MQTT_PAYLOAD_OFF     = "off"
)

var ErrInvalidSnapshotTopic = errors.New("invalid snapshot topic")

func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port))
	opts.SetClientID(fmt.Sprintf("solaredge2mqtt_%d", rand.Intn(1000)))
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.WillEnabled = true
	opts.WillPayload = []byte(MQTT_PAYLOAD_OFFLINE)
	opts.WillRetained = true
	opts.WillTopic = bridgeStateTopic(cfg.MQTT.BaseTopic)
	opts.WillQos = 0
	// snapshots are only meaningful while the session is up
	opts.SetCleanSession(true)
	opts.SetOrderMatters(false)

	return opts
}

func CreateMQTTClient(cfg *config.Config, opts *mqtt.ClientOptions, onConnectHandler func(client mqtt.Client),
	onConnectionLostHandler func(mqtt.Client, error)) *MQTTClient {
	if onConnectHandler != nil {
		opts.OnConnect = onConnectHandler
	}
	if onConnectionLostHandler != nil {
		opts.OnConnectionLost = onConnectionLostHandler
	}
	return &MQTTClient{
		client:         mqtt.NewClient(opts),
		cfg:            cfg.MQTT,
		hubTopic:       cfg.HubConfig.Topic,
		snapshotRegexp: snapshotExtractor(cfg.HubConfig.Topic),
	}
}

type MQTTClient struct {
	client         mqtt.Client
	cfg            config.MQTTConfig
	hubTopic       string
	snapshotRegexp *regexp.Regexp
}

// SnapshotMessage is a device snapshot received from the polling hub.
type SnapshotMessage struct {
	DeviceId string
	Payload  []byte
}

func (c *MQTTClient) baseTopic() string {
	return c.cfg.BaseTopic
}

func (c *MQTTClient) DiscoveryPrefix() string {
	return c.cfg.HADiscoveryTopic
}

func (c *MQTTClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.baseTopic())
}

func (c *MQTTClient) SensorStateTopic(sensorId string) string {
	return fmt.Sprintf("%s/sensor/%s/state", c.baseTopic(), sensorId)
}

func (c *MQTTClient) SensorAttributesTopic(sensorId string) string {
	return fmt.Sprintf("%s/sensor/%s/attributes", c.baseTopic(), sensorId)
}

func (c *MQTTClient) SensorAvailabilityTopic(sensorId string) string {
	return fmt.Sprintf("%s/sensor/%s/availability", c.baseTopic(), sensorId)
}

func (c *MQTTClient) BinarySensorStateTopic(sensorId string) string {
	return fmt.Sprintf("%s/binary_sensor/%s/state", c.baseTopic(), sensorId)
}

func (c *MQTTClient) SnapshotTopic() string {
	return fmt.Sprintf("%s/+/snapshot", c.hubTopic)
}

func (c *MQTTClient) ParseSnapshotMessage(msg mqtt.Message) (*SnapshotMessage, error) {
	deviceId, err := c.parseSnapshotTopic(msg.Topic())
	if err != nil {
		return nil, err
	}
	return &SnapshotMessage{
		DeviceId: deviceId,
		Payload:  msg.Payload(),
	}, nil
}

func (c *MQTTClient) parseSnapshotTopic(topic string) (string, error) {
	matches := c.snapshotRegexp.FindAllStringSubmatch(topic, 1)
	if len(matches) == 0 || len(matches[0]) != 2 {
		return "", fmt.Errorf("%w: %s", ErrInvalidSnapshotTopic, topic)
	}
	return matches[0][1], nil
}

func (c *MQTTClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	token := c.client.Publish(topic, qos, retain, payload)
	go waitToken(token, "publish", continuation, timeout)
}

func (c *MQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	token := c.client.Subscribe(topic, qos, handler)
	go waitToken(token, "subscribe", continuation, timeout)
}

func (c *MQTTClient) SubscribeToSnapshotTopic(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	c.Subscribe(c.SnapshotTopic(), 1, handler, continuation, timeout)
}

func (c *MQTTClient) Unsubscribe(topic string, continuation func(error), timeout time.Duration) {
	token := c.client.Unsubscribe(topic)
	go waitToken(token, "unsubscribe", continuation, timeout)
}

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	token := c.client.Connect()
	go waitToken(token, "connect", continuation, timeout)
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

func waitToken(token mqtt.Token, op string, continuation func(error), timeout time.Duration) {
	if !token.WaitTimeout(timeout) {
		continuation(fmt.Errorf("MQTT %s timed out", op))
		return
	}
	continuation(token.Error())
}

func snapshotExtractor(hubTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/([a-zA-Z0-9_]+)/snapshot$", regexp.QuoteMeta(hubTopic)))
}

func bridgeStateTopic(baseTopic string) string {
	return fmt.Sprintf("%s/bridge/state", baseTopic)
}
