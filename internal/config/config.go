// Package config loads mobile-cli settings from defaults, a YAML file,
// MOBILE_CLI_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mj1618/mobile-cli/internal/protocol"
	"github.com/mj1618/mobile-cli/internal/session"
)

// EnvPrefix prefixes every environment override, e.g. MOBILE_CLI_HUB_PORT.
const EnvPrefix = "MOBILE_CLI"

// Config holds application configuration.
type Config struct {
	Hub       HubConfig
	Heartbeat HeartbeatConfig
	Request   RequestConfig
	Log       LogConfig
	Cache     CacheConfig
}

// HubConfig is where the WebSocket hub listens.
type HubConfig struct {
	Host string
	Port int
}

// Addr returns host:port for listening.
func (h HubConfig) Addr() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

// URL returns the WebSocket URL clients dial.
func (h HubConfig) URL() string {
	host := h.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "ws://" + net.JoinHostPort(host, strconv.Itoa(h.Port)) + "/"
}

// HeartbeatConfig controls stale connection reaping.
type HeartbeatConfig struct {
	Interval   time.Duration
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

// RequestConfig holds per-request settings.
type RequestConfig struct {
	Timeout time.Duration
}

// LogConfig selects log level and destination.
type LogConfig struct {
	Level string
	File  string
}

// CacheConfig holds cache lifetimes.
type CacheConfig struct {
	ViewportTTL time.Duration `mapstructure:"viewport_ttl"`
}

// FlagBindings maps config keys to the flag names that override them.
// Flags missing from the set passed to Load are skipped.
var FlagBindings = map[string]string{
	"hub.host":        "host",
	"hub.port":        "port",
	"request.timeout": "request-timeout",
	"log.level":       "log-level",
	"log.file":        "log-file",
}

// DefaultPath is ~/.config/mobile-cli/config.yaml.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "mobile-cli", "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("hub.host", "127.0.0.1")
	v.SetDefault("hub.port", protocol.DefaultPort)
	v.SetDefault("heartbeat.interval", session.DefaultHeartbeatInterval)
	v.SetDefault("heartbeat.stale_after", session.DefaultStaleAfter)
	v.SetDefault("request.timeout", session.DefaultRequestTimeout)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.file", "")
	v.SetDefault("cache.viewport_ttl", 30*time.Second)
}

// Load reads configuration. An explicit path (or MOBILE_CLI_CONFIG) must
// exist; the default path is optional. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvPrefix + "_CONFIG")
		explicit = path != ""
	}
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for key, name := range FlagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects values the hub cannot run with.
func (c Config) Validate() error {
	if c.Hub.Port < 1 || c.Hub.Port > 65535 {
		return fmt.Errorf("invalid config: hub.port %d out of range", c.Hub.Port)
	}
	if c.Heartbeat.Interval <= 0 {
		return fmt.Errorf("invalid config: heartbeat.interval must be positive")
	}
	if c.Heartbeat.StaleAfter <= c.Heartbeat.Interval {
		return fmt.Errorf("invalid config: heartbeat.stale_after (%s) must exceed heartbeat.interval (%s)",
			c.Heartbeat.StaleAfter, c.Heartbeat.Interval)
	}
	if c.Request.Timeout <= 0 {
		return fmt.Errorf("invalid config: request.timeout must be positive")
	}
	if c.Cache.ViewportTTL < 0 {
		return fmt.Errorf("invalid config: cache.viewport_ttl must not be negative")
	}
	return nil
}

// RegistryOptions converts the heartbeat settings.
func (c Config) RegistryOptions() session.Options {
	return session.Options{
		HeartbeatInterval: c.Heartbeat.Interval,
		StaleAfter:        c.Heartbeat.StaleAfter,
	}
}
