// Package config holds the scan configuration: the viper-backed run settings
// and the optional file of custom pattern definitions.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable override, e.g.
// DRIVESCAN_WORKERS or DRIVESCAN_OTEL_ENDPOINT.
const EnvPrefix = "DRIVESCAN"

// Viper keys.
const (
	KeyRoot             = "root"
	KeyWorkers          = "workers"
	KeyCapacity         = "capacity"
	KeyMaxFileSize      = "max_file_size"
	KeyChunkSize        = "chunk_size"
	KeyOverlapSize      = "overlap_size"
	KeySeparators       = "separators"
	KeyPatterns         = "patterns"
	KeyPatternsFile     = "patterns_file"
	KeyOutput           = "output"
	KeyProgressInterval = "progress_interval"
	KeyReadRateLimit    = "read_rate_limit"
	KeyLogLevel         = "log_level"
	KeyOTelEndpoint     = "otel.endpoint"
	KeyOTelSampling     = "otel.sampling_ratio"
	KeyDebugAddr        = "debug_addr"
)

// Config represents the settings of a single scan run.
type Config struct {
	Root             string     `mapstructure:"root" validate:"required"`
	Workers          int        `mapstructure:"workers" validate:"min=1,max=1024"`
	Capacity         int        `mapstructure:"capacity" validate:"min=1"`
	MaxFileSize      int64      `mapstructure:"max_file_size" validate:"min=1"`
	ChunkSize        int        `mapstructure:"chunk_size" validate:"min=1"`
	OverlapSize      int        `mapstructure:"overlap_size" validate:"min=3"`
	Separators       string     `mapstructure:"separators"`
	Patterns         []string   `mapstructure:"patterns" validate:"dive,required"`
	PatternsFile     string     `mapstructure:"patterns_file"`
	Output           string     `mapstructure:"output" validate:"oneof=text json"`
	ProgressInterval int        `mapstructure:"progress_interval" validate:"min=1"`
	ReadRateLimit    float64    `mapstructure:"read_rate_limit" validate:"gte=0"`
	LogLevel         string     `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	OTel             OTelConfig `mapstructure:"otel"`
	DebugAddr        string     `mapstructure:"debug_addr" validate:"omitempty,hostname_port"`
}

// OTelConfig configures trace and metric export. An empty endpoint disables
// export.
type OTelConfig struct {
	Endpoint      string  `mapstructure:"endpoint"`
	SamplingRatio float64 `mapstructure:"sampling_ratio" validate:"gte=0,lte=1"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyRoot, ".")
	v.SetDefault(KeyWorkers, 10)
	v.SetDefault(KeyCapacity, 100_000)
	v.SetDefault(KeyMaxFileSize, int64(1<<30))
	v.SetDefault(KeyChunkSize, 4096)
	v.SetDefault(KeyOverlapSize, 32)
	v.SetDefault(KeySeparators, "-")
	v.SetDefault(KeyPatterns, []string{"ssn-expanded"})
	v.SetDefault(KeyPatternsFile, "")
	v.SetDefault(KeyOutput, "text")
	v.SetDefault(KeyProgressInterval, 100)
	v.SetDefault(KeyReadRateLimit, 0.0)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyOTelEndpoint, "")
	v.SetDefault(KeyOTelSampling, 1.0)
	v.SetDefault(KeyDebugAddr, "")
}

// BindEnv enables DRIVESCAN_-prefixed environment overrides on v. Nested keys
// use an underscore, so otel.endpoint is DRIVESCAN_OTEL_ENDPOINT.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	for i, p := range cfg.Patterns {
		cfg.Patterns[i] = strings.TrimSpace(p)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ErrNoPatterns is returned when neither built-in nor file patterns are set.
var ErrNoPatterns = errors.New("no patterns configured")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the relationships between fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if len(c.Patterns) == 0 && c.PatternsFile == "" {
		return fmt.Errorf("invalid config: %w", ErrNoPatterns)
	}
	return nil
}

// SeparatorBytes returns the configured separators as individual bytes.
func (c *Config) SeparatorBytes() []byte { return []byte(c.Separators) }
