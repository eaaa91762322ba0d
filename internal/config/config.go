package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/berfenger/receiptpanel/internal/core/domain"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel      zapcore.Level
	HomeAssistant HomeAssistantConfig `mapstructure:"homeassistant"`
	Aggregation   AggregationConfig   `mapstructure:"aggregation"`
	Generation    GenerationConfig    `mapstructure:"generation"`
	Listing       ListingConfig       `mapstructure:"listing"`
	MQTT          MQTTConfig          `mapstructure:"mqtt"`
	History       HistoryConfig       `mapstructure:"history"`
	Port          uint                `mapstructure:"port"`
	HttpLog       bool                `mapstructure:"http_log"`
}

type HomeAssistantConfig struct {
	URL             string `mapstructure:"url"`
	Token           string `mapstructure:"token"`
	TimeoutMillis   uint32 `mapstructure:"timeout_millis"`
	ServiceDomain   string `mapstructure:"service_domain"`
	ReconnectMillis uint32 `mapstructure:"reconnect_millis"`
}

type AggregationConfig struct {
	SensorDomain   string                 `mapstructure:"sensor_domain"`
	ControlDomain  string                 `mapstructure:"control_domain"`
	ControlSuffix  string                 `mapstructure:"control_suffix"`
	Suffixes       map[string]string      `mapstructure:"suffixes"`
	AllowedDevices []domain.DeviceMatcher `mapstructure:"allowed_devices"`
}

type GenerationConfig struct {
	CompletionEvent string `mapstructure:"completion_event"`
	FilenamePrefix  string `mapstructure:"filename_prefix"`
	Timezone        string `mapstructure:"timezone"`
}

type ListingConfig struct {
	RefreshDelayMillis    uint32 `mapstructure:"refresh_delay_millis"`
	RefreshIntervalMillis uint32 `mapstructure:"refresh_interval_millis"`
}

type MQTTConfig struct {
	Enable            bool `mapstructure:"enable"`
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

// Vocabulary is the classification table with the configured suffixes applied.
func (c Config) Vocabulary() domain.Vocabulary {
	return domain.DefaultVocabulary().WithSuffixes(c.Aggregation.Suffixes)
}

func (c Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Generation.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

func (c Config) HomeAssistantTimeout() time.Duration {
	return time.Duration(c.HomeAssistant.TimeoutMillis) * time.Millisecond
}

func (c Config) ReconnectInterval() time.Duration {
	return time.Duration(c.HomeAssistant.ReconnectMillis) * time.Millisecond
}

func (c Config) ListingRefreshDelay() time.Duration {
	return time.Duration(c.Listing.RefreshDelayMillis) * time.Millisecond
}

func (c Config) ListingRefreshInterval() time.Duration {
	return time.Duration(c.Listing.RefreshIntervalMillis) * time.Millisecond
}

// Validate checks the values that would break the panel at runtime and normalizes topics.
func (c *Config) Validate() error {
	for t := range c.Aggregation.Suffixes {
		if !domain.SensorType(t).Valid() {
			return fmt.Errorf("config param aggregation.suffixes.%s: unknown sensor type", t)
		}
	}
	if a, b, overlap := c.Vocabulary().Overlap(); overlap {
		return fmt.Errorf("config param aggregation.suffixes: suffix %q overlaps %q", a, b)
	}
	for i, m := range c.Aggregation.AllowedDevices {
		if strings.TrimSpace(m.Manufacturer) == "" {
			return fmt.Errorf("config param aggregation.allowed_devices[%d]: manufacturer is required", i)
		}
	}
	if c.Aggregation.SensorDomain == "" {
		return errors.New("config param aggregation.sensor_domain is required")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("config param generation.timezone: %w", err)
	}
	if c.Generation.CompletionEvent == "" {
		return errors.New("config param generation.completion_event is required")
	}
	if c.HomeAssistant.TimeoutMillis < 100 {
		return errors.New("config param homeassistant.timeout_millis should be >= 100")
	}
	if c.HomeAssistant.ReconnectMillis < 500 {
		return errors.New("config param homeassistant.reconnect_millis should be >= 500")
	}
	if c.Listing.RefreshIntervalMillis != 0 && c.Listing.RefreshIntervalMillis < 1000 {
		return errors.New("config param listing.refresh_interval_millis should be 0 or >= 1000")
	}

	if c.MQTT.Enable {
		baseTopic, err := CheckMQTTTopic(c.MQTT.BaseTopic)
		if err != nil {
			return errors.New("invalid base topic. can only contain letters, numbers and underscores")
		}
		c.MQTT.BaseTopic = baseTopic

		hadBaseTopic, err := CheckMQTTTopic(c.MQTT.HADiscoveryTopic)
		if err != nil {
			return errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
		}
		c.MQTT.HADiscoveryTopic = hadBaseTopic
	}
	return nil
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.HomeAssistant.Token != "" {
		c.HomeAssistant.Token = "*redacted*"
	}
	c.MQTT.Username = "*redacted*"
	c.MQTT.Password = "*redacted*"
	return c
}
