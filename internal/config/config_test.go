package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/berfenger/receiptpanel/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testYAML = `
log_level: debug
homeassistant:
  url: http://ha.test:8123
  token: secret
aggregation:
  suffixes:
    current: phase_a_current
    power: phase_a_power
  allowed_devices:
    - manufacturer: Eastron
      model: SDM120
    - manufacturer: Shelly
mqtt:
  enable: true
  base_topic: Receipts
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {

	require := require.New(t)

	cfg, err := Load(writeConfig(t, "{}"))
	require.NoError(err)
	require.Equal(zap.WarnLevel, cfg.LogLevel)
	require.Equal(uint(8080), cfg.Port)
	require.Equal("sensor_pdf_generator", cfg.HomeAssistant.ServiceDomain)
	require.Equal("pdf_generator_complete", cfg.Generation.CompletionEvent)
	require.Equal("receipt", cfg.Generation.FilenamePrefix)
	require.Equal(uint32(1000), cfg.Listing.RefreshDelayMillis)
	require.Equal("sensor", cfg.Aggregation.SensorDomain)
	require.False(cfg.MQTT.Enable)
}

func TestLoadFileAndEnv(t *testing.T) {

	require := require.New(t)
	t.Setenv("RECEIPTPANEL_HOMEASSISTANT_SERVICE_DOMAIN", "receipts")

	cfg, err := Load(writeConfig(t, testYAML))
	require.NoError(err)
	require.Equal(zap.DebugLevel, cfg.LogLevel)
	require.Equal("http://ha.test:8123", cfg.HomeAssistant.URL)
	require.Equal("receipts", cfg.HomeAssistant.ServiceDomain)
	require.Equal("receipts", cfg.MQTT.BaseTopic, "topic is lower cased")
	require.Len(cfg.Aggregation.AllowedDevices, 2)
	require.Equal("SDM120", cfg.Aggregation.AllowedDevices[0].Model)

	ch, ok := cfg.Vocabulary().Channel(domain.SENSOR_TYPE_CURRENT)
	require.True(ok)
	require.Equal("phase_a_current", ch.Suffix)
	require.Equal("phase a current", ch.Phrase)

	redacted := cfg.Redacted()
	require.Equal("*redacted*", redacted.HomeAssistant.Token)
	require.Equal("secret", cfg.HomeAssistant.Token)
}

func TestValidate(t *testing.T) {

	assert := assert.New(t)

	_, err := Load(writeConfig(t, "aggregation:\n  suffixes:\n    humidity: humidity\n"))
	assert.ErrorContains(err, "unknown sensor type")

	_, err = Load(writeConfig(t, "aggregation:\n  suffixes:\n    power: total_energy\n"))
	assert.ErrorContains(err, "overlaps")

	_, err = Load(writeConfig(t, "aggregation:\n  suffixes:\n    power: a_current\n"))
	assert.ErrorContains(err, "overlaps", "suffix ending another suffix")

	_, err = Load(writeConfig(t, "generation:\n  timezone: Mars/Olympus\n"))
	assert.ErrorContains(err, "timezone")

	_, err = Load(writeConfig(t, "mqtt:\n  enable: true\n  base_topic: bad/topic\n"))
	assert.Error(err)

	_, err = Load(writeConfig(t, "aggregation:\n  allowed_devices:\n    - model: X\n"))
	assert.ErrorContains(err, "manufacturer is required")
}

func TestCheckMQTTTopic(t *testing.T) {

	assert := assert.New(t)

	topic, err := CheckMQTTTopic("Receipt_Panel")
	assert.NoError(err)
	assert.Equal("receipt_panel", topic)

	_, err = CheckMQTTTopic("receipt-panel")
	assert.Error(err)
}
