package util

import (
	"github.com/berfenger/solaredge2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		MQTT: config.MQTTConfig{
			Host:              "localhost",
			Port:              1883,
			BaseTopic:         "solaredge2mqtt",
			HADiscoveryEnable: true,
			HADiscoveryTopic:  "homeassistant",
		},
		HubConfig: config.HubConfig{
			Topic:            "solaredge_hub",
			StaleAfterMillis: 60000,
		},
		MonitorConfig: config.MonitorConfig{
			RepublishEvery: 10,
		},
		Port: 8080,
	}
}
