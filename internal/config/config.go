// Package config loads bucketwalk configuration from defaults, an optional
// YAML file, BUCKETWALK_* environment variables and runtime overrides.
//
// Precedence, lowest to highest: defaults, config file, environment,
// runtime overrides.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides.
const EnvPrefix = "BUCKETWALK"

// Config is the complete runtime configuration.
type Config struct {
	// Provider selects the storage backend ("s3" or "file").
	Provider string `mapstructure:"provider" yaml:"provider"`

	// Region is the cloud region used to construct the client.
	Region string `mapstructure:"region" yaml:"region"`

	// Endpoint overrides the service endpoint for S3-compatible stores.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Profile selects a named AWS shared-config profile.
	Profile string `mapstructure:"profile" yaml:"profile"`

	// PageSize is the listing page size. Zero uses the provider default.
	PageSize int `mapstructure:"page_size" yaml:"page_size"`

	// RateLimit caps listing requests per second. Zero is unlimited.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Trigger TriggerConfig `mapstructure:"trigger" yaml:"trigger"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// OutputConfig configures item output.
type OutputConfig struct {
	// Format is "text" or "jsonl".
	Format string `mapstructure:"format" yaml:"format"`
}

// ServerConfig configures serve mode.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// TriggerConfig configures the triggered handler.
type TriggerConfig struct {
	// Bucket is listed on every invocation.
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
}

// Supported values.
const (
	FormatText  = "text"
	FormatJSONL = "jsonl"
)

var (
	configMu  sync.RWMutex
	appConfig *Config
)

// envSpec maps a short environment variable to a config path.
type envSpec struct {
	Name string
	Path string
}

// getEnvSpecs returns the short aliases bound in addition to the automatic
// BUCKETWALK_<PATH> mapping.
func getEnvSpecs() []envSpec {
	return []envSpec{
		{Name: EnvPrefix + "_LOG_LEVEL", Path: "logging.level"},
		{Name: EnvPrefix + "_FORMAT", Path: "output.format"},
		{Name: EnvPrefix + "_HOST", Path: "server.host"},
		{Name: EnvPrefix + "_PORT", Path: "server.port"},
		{Name: EnvPrefix + "_READ_TIMEOUT", Path: "server.read_timeout"},
		{Name: EnvPrefix + "_WRITE_TIMEOUT", Path: "server.write_timeout"},
		{Name: EnvPrefix + "_SHUTDOWN_TIMEOUT", Path: "server.shutdown_timeout"},
		{Name: EnvPrefix + "_BUCKET", Path: "trigger.bucket"},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", "s3")
	v.SetDefault("region", "")
	v.SetDefault("endpoint", "")
	v.SetDefault("profile", "")
	v.SetDefault("page_size", 0)
	v.SetDefault("rate_limit", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("output.format", FormatText)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("trigger.bucket", "")
}

// Load builds the configuration without a config file.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	return LoadWithFile(ctx, "", overrides...)
}

// LoadWithFile builds the configuration, reading path when it is non-empty.
func LoadWithFile(ctx context.Context, path string, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, spec := range getEnvSpecs() {
		if err := v.BindEnv(spec.Path, spec.Name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", spec.Name, err)
		}
	}

	for _, o := range overrides {
		for key, val := range flatten("", o) {
			v.Set(key, val)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()

	return &cfg, nil
}

// GetConfig returns the most recently loaded configuration, or nil.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func (c *Config) normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	var errs []error
	switch c.Provider {
	case "s3", "file":
	default:
		errs = append(errs, fmt.Errorf("provider: unsupported value %q", c.Provider))
	}
	switch c.Output.Format {
	case FormatText, FormatJSONL:
	default:
		errs = append(errs, fmt.Errorf("output.format: unsupported value %q", c.Output.Format))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level))
	}
	if c.PageSize < 0 {
		errs = append(errs, fmt.Errorf("page_size: must not be negative"))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate_limit: must not be negative"))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d out of range", c.Server.Port))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// flatten turns nested override maps into dotted viper keys.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = val
	}
	return out
}
