package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		MQTT: MQTTConfig{
			BaseTopic:        "SolarEdge2MQTT",
			HADiscoveryTopic: "homeassistant",
		},
		HubConfig: HubConfig{
			Topic:            "solaredge_hub",
			StaleAfterMillis: 60000,
		},
		MonitorConfig: MonitorConfig{
			RepublishEvery: 10,
		},
	}
}

func TestNormalizeLowersTopics(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, "solaredge2mqtt", cfg.MQTT.BaseTopic)
	assert.Equal(t, "solaredge_hub", cfg.HubConfig.Topic)
}

func TestNormalizeRejects(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"base topic with slash", func(c *Config) { c.MQTT.BaseTopic = "a/b" }},
		{"empty discovery topic", func(c *Config) { c.MQTT.HADiscoveryTopic = "" }},
		{"hub topic with wildcard", func(c *Config) { c.HubConfig.Topic = "hub/+" }},
		{"hub topic equals base topic", func(c *Config) { c.HubConfig.Topic = "solaredge2mqtt" }},
		{"republish every zero", func(c *Config) { c.MonitorConfig.RepublishEvery = 0 }},
		{"stale after too short", func(c *Config) { c.HubConfig.StaleAfterMillis = 500 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)
			assert.Error(t, cfg.Normalize())
		})
	}
}

func TestStaleSweepCanBeDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.HubConfig.StaleAfterMillis = 0
	assert.NoError(t, cfg.Normalize())
}

func TestRedacted(t *testing.T) {
	cfg := validConfig()
	cfg.MQTT.Username = "user"
	cfg.MQTT.Password = "secret"
	r := cfg.Redacted()
	assert.Equal(t, "*redacted*", r.MQTT.Password)
	assert.Equal(t, "secret", cfg.MQTT.Password)
}
