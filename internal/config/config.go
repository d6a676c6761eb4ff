// Package config loads HUD client settings from an optional JSON file
// plus HUDLINK_ environment overrides, with defaults for every key.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// GestureConfig holds the gesture socket settings.
type GestureConfig struct {
	URL               string `json:"url" mapstructure:"url"`
	ReconnectDelayMs  int    `json:"reconnectDelayMs" mapstructure:"reconnectDelayMs"`
	MaxRetries        int    `json:"maxRetries" mapstructure:"maxRetries"`
	MaxBackoffMs      int    `json:"maxBackoffMs" mapstructure:"maxBackoffMs"`
	ToolTTLMs         int    `json:"toolTtlMs" mapstructure:"toolTtlMs"`
	OptimisticMarkers bool   `json:"optimisticMarkers" mapstructure:"optimisticMarkers"`
}

// ProjectorConfig holds the orthographic globe projection settings.
type ProjectorConfig struct {
	Radius float64 `json:"radius" mapstructure:"radius"`
	Squash float64 `json:"squash" mapstructure:"squash"`
}

// JournalConfig holds the session event journal settings.
type JournalConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Driver  string `json:"driver" mapstructure:"driver"` // sqlite or postgres
	Path    string `json:"path" mapstructure:"path"`     // sqlite file
	DSN     string `json:"dsn" mapstructure:"dsn"`       // postgres only
}

// InfluxConfig holds the session metrics settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
}

// GraylogConfig holds GELF shipping settings.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// OTelConfig holds OpenTelemetry log export settings.
type OTelConfig struct {
	Enabled        bool   `json:"enabled" mapstructure:"enabled"`
	Endpoint       string `json:"endpoint" mapstructure:"endpoint"`
	Insecure       bool   `json:"insecure" mapstructure:"insecure"`
	BatchTimeoutMs int    `json:"batchTimeoutMs" mapstructure:"batchTimeoutMs"`
}

// Load sets defaults, binds HUDLINK_ environment variables and reads the
// optional config file from configDir. A missing file is not an error;
// defaults and environment still apply.
func Load(configDir string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./hudlinklogs")

	viper.SetDefault("gesture.url", "ws://localhost:8765")
	viper.SetDefault("gesture.reconnectDelayMs", 3000)
	viper.SetDefault("gesture.maxRetries", 10)
	viper.SetDefault("gesture.maxBackoffMs", 30000)
	viper.SetDefault("gesture.toolTtlMs", 3000)
	viper.SetDefault("gesture.optimisticMarkers", false)

	viper.SetDefault("projector.radius", 280.0)
	viper.SetDefault("projector.squash", 0.45)

	viper.SetDefault("journal.enabled", false)
	viper.SetDefault("journal.driver", "sqlite")
	viper.SetDefault("journal.path", "./hudlink_journal.db")
	viper.SetDefault("journal.dsn", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "hudlink-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
	viper.SetDefault("otel.batchTimeoutMs", 5000)

	viper.SetEnvPrefix("HUDLINK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("hudlink.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// Gesture returns the gesture socket configuration.
func Gesture() GestureConfig {
	return GestureConfig{
		URL:               viper.GetString("gesture.url"),
		ReconnectDelayMs:  viper.GetInt("gesture.reconnectDelayMs"),
		MaxRetries:        viper.GetInt("gesture.maxRetries"),
		MaxBackoffMs:      viper.GetInt("gesture.maxBackoffMs"),
		ToolTTLMs:         viper.GetInt("gesture.toolTtlMs"),
		OptimisticMarkers: viper.GetBool("gesture.optimisticMarkers"),
	}
}

// ReconnectDelay returns the reconnect delay as a duration.
func (c GestureConfig) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMs) * time.Millisecond
}

// MaxBackoff returns the backoff ceiling as a duration.
func (c GestureConfig) MaxBackoff() time.Duration {
	return time.Duration(c.MaxBackoffMs) * time.Millisecond
}

// ToolTTL returns the tool banner lifetime as a duration.
func (c GestureConfig) ToolTTL() time.Duration {
	return time.Duration(c.ToolTTLMs) * time.Millisecond
}

// Projector returns the globe projection configuration.
func Projector() ProjectorConfig {
	return ProjectorConfig{
		Radius: viper.GetFloat64("projector.radius"),
		Squash: viper.GetFloat64("projector.squash"),
	}
}

// Journal returns the session journal configuration.
func Journal() JournalConfig {
	return JournalConfig{
		Enabled: viper.GetBool("journal.enabled"),
		Driver:  viper.GetString("journal.driver"),
		Path:    viper.GetString("journal.path"),
		DSN:     viper.GetString("journal.dsn"),
	}
}

// Influx returns the session metrics configuration.
func Influx() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
	}
}

// Graylog returns the GELF shipping configuration.
func Graylog() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// OTel returns the OpenTelemetry configuration.
func OTel() OTelConfig {
	return OTelConfig{
		Enabled:        viper.GetBool("otel.enabled"),
		Endpoint:       viper.GetString("otel.endpoint"),
		Insecure:       viper.GetBool("otel.insecure"),
		BatchTimeoutMs: viper.GetInt("otel.batchTimeoutMs"),
	}
}
