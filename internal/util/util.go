package util

import (
	"github.com/berfenger/receiptpanel/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		HomeAssistant: config.HomeAssistantConfig{
			URL:             "http://127.0.0.1:8123",
			TimeoutMillis:   2000,
			ServiceDomain:   "sensor_pdf_generator",
			ReconnectMillis: 1000,
		},
		Aggregation: config.AggregationConfig{
			SensorDomain:  "sensor",
			ControlDomain: "switch",
			ControlSuffix: "switch",
		},
		Generation: config.GenerationConfig{
			CompletionEvent: "pdf_generator_complete",
			FilenamePrefix:  "receipt",
			Timezone:        "UTC",
		},
		Listing: config.ListingConfig{
			RefreshDelayMillis: 100,
		},
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "receiptpanel",
			HADiscoveryTopic: "homeassistant",
		},
		Port: 8080,
	}
}
