package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const ENV_PREFIX = "receiptpanel"

// Load reads defaults, the optional yaml file and RECEIPTPANEL_* env vars, in that precedence order.
// An empty cfgFile falls back to the CONFIG_FILE env var.
func Load(cfgFile string) (*Config, error) {

	// alias PORT => RECEIPTPANEL_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("RECEIPTPANEL_PORT", port)
	}

	v := viper.New()
	setConfigDefaults(v)

	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile == "" {
		cfgFile = os.Getenv("CONFIG_FILE")
	}
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			v.SetConfigFile(cfgFile)

			err = v.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
				return nil, err
			}
		}
	}

	var cfg Config

	err := v.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	cfg.LogLevel = ParseLogLevel(v.GetString("log_level"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func ParseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "trace", "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "error":
		return zap.ErrorLevel
	case "warn":
		return zap.WarnLevel
	case "fatal":
		return zap.FatalLevel
	default:
		return zap.InfoLevel
	}
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "warn")
	v.SetDefault("port", 8080)
	v.SetDefault("http_log", false)
	v.SetDefault("homeassistant.url", "http://homeassistant.local:8123")
	v.SetDefault("homeassistant.token", "")
	v.SetDefault("homeassistant.timeout_millis", 10000)
	v.SetDefault("homeassistant.service_domain", "sensor_pdf_generator")
	v.SetDefault("homeassistant.reconnect_millis", 5000)
	v.SetDefault("aggregation.sensor_domain", "sensor")
	v.SetDefault("aggregation.control_domain", "switch")
	v.SetDefault("aggregation.control_suffix", "switch")
	v.SetDefault("generation.completion_event", "pdf_generator_complete")
	v.SetDefault("generation.filename_prefix", "receipt")
	v.SetDefault("generation.timezone", "Local")
	v.SetDefault("listing.refresh_delay_millis", 1000)
	v.SetDefault("listing.refresh_interval_millis", 0)
	v.SetDefault("mqtt.enable", false)
	v.SetDefault("mqtt.host", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.base_topic", "receiptpanel")
	v.SetDefault("mqtt.ha_discovery_enable", false)
	v.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	v.SetDefault("history.path", "")
}
