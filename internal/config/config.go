package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

var topicRegexp = regexp.MustCompile("^[a-z0-9_]+$")

type Config struct {
	LogLevel      zapcore.Level
	MQTT          MQTTConfig    `mapstructure:"mqtt"`
	HubConfig     HubConfig     `mapstructure:"hub"`
	MonitorConfig MonitorConfig `mapstructure:"monitor"`
	Port          uint          `mapstructure:"port"`
	HttpLog       bool          `mapstructure:"http_log"`
}

// HubConfig describes where the polling hub publishes device snapshots.
type HubConfig struct {
	Topic            string `mapstructure:"topic"`
	StaleAfterMillis uint32 `mapstructure:"stale_after_millis"`
}

type MonitorConfig struct {
	RepublishEvery uint32 `mapstructure:"republish_every"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	lowerBaseTopic := strings.ToLower(baseTopic)
	if !topicRegexp.MatchString(lowerBaseTopic) {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

// Normalize lower-cases the MQTT topics and checks the bounds of the
// numeric settings.
func (c *Config) Normalize() error {
	baseTopic, err := CheckMQTTTopic(c.MQTT.BaseTopic)
	if err != nil {
		return fmt.Errorf("mqtt.base_topic: %w", err)
	}
	c.MQTT.BaseTopic = baseTopic

	hadTopic, err := CheckMQTTTopic(c.MQTT.HADiscoveryTopic)
	if err != nil {
		return fmt.Errorf("mqtt.ha_discovery_topic: %w", err)
	}
	c.MQTT.HADiscoveryTopic = hadTopic

	hubTopic, err := CheckMQTTTopic(c.HubConfig.Topic)
	if err != nil {
		return fmt.Errorf("hub.topic: %w", err)
	}
	c.HubConfig.Topic = hubTopic

	if c.HubConfig.Topic == c.MQTT.BaseTopic {
		return errors.New("hub.topic must differ from mqtt.base_topic")
	}
	if c.MonitorConfig.RepublishEvery < 1 {
		return errors.New("config param monitor.republish_every should be >= 1")
	}
	if c.HubConfig.StaleAfterMillis != 0 && c.HubConfig.StaleAfterMillis < 1000 {
		return errors.New("config param hub.stale_after_millis should be 0 or >= 1000")
	}
	return nil
}

// Redacted returns a copy without broker credentials.
func (c Config) Redacted() Config {
	c.MQTT.Username = "*redacted*"
	c.MQTT.Password = "*redacted*"
	return c
}
