package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/resilience/internal/circuitbreaker"
	"github.com/angeloszaimis/resilience/internal/classifier"
	"github.com/angeloszaimis/resilience/internal/httpserver"
	"github.com/angeloszaimis/resilience/internal/policy"
)

const EnvPrefix = "RESILIENCE"

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	PresetDefault      = "default"
	PresetAggressive   = "aggressive"
	PresetConservative = "conservative"
)

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	Environment     string        `mapstructure:"environment"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	AddSource bool   `mapstructure:"add_source"`
}

// PolicyConfig overrides the built-in policy of one category. Unset
// fields keep the built-in value.
type PolicyConfig struct {
	Enabled           *bool          `mapstructure:"enabled"`
	MaxAttempts       *int           `mapstructure:"max_attempts"`
	InitialDelay      *time.Duration `mapstructure:"initial_delay"`
	MaxDelay          *time.Duration `mapstructure:"max_delay"`
	Multiplier        *float64       `mapstructure:"multiplier"`
	JitterFraction    *float64       `mapstructure:"jitter_fraction"`
	UseCircuitBreaker *bool          `mapstructure:"use_circuit_breaker"`
}

type OperationConfig struct {
	Name         string   `mapstructure:"name"`
	Keywords     []string `mapstructure:"keywords"`
	PolicyConfig `mapstructure:",squash"`
}

type RetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Policies is keyed by lower-case category name, e.g. rate_limit.
	Policies map[string]PolicyConfig `mapstructure:"policies"`
	// Operations replaces the built-in operation overrides when set.
	Operations []OperationConfig `mapstructure:"operations"`
}

// BreakerConfig starts from Preset; set fields replace preset values. A
// rolling_window of 0 keeps every outcome.
type BreakerConfig struct {
	Preset                 string         `mapstructure:"preset"`
	FailureThreshold       *int           `mapstructure:"failure_threshold"`
	RequestVolumeThreshold *int           `mapstructure:"request_volume_threshold"`
	RollingWindow          *time.Duration `mapstructure:"rolling_window"`
	RecoveryTimeout        *time.Duration `mapstructure:"recovery_timeout"`
	SuccessThreshold       *int           `mapstructure:"success_threshold"`
}

type MonitorConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type MetricsConfig struct {
	BufferSize int    `mapstructure:"buffer_size"`
	Namespace  string `mapstructure:"namespace"`
}

// WorkloadConfig drives the synthetic demo traffic of resilienced.
type WorkloadConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Interval    time.Duration `mapstructure:"interval"`
	Concurrency int           `mapstructure:"concurrency"`
	FailureRate float64       `mapstructure:"failure_rate"`
	Latency     time.Duration `mapstructure:"latency"`
	Operations  []string      `mapstructure:"operations"`
}

type Config struct {
	Server         ServerConfig   `mapstructure:"server"`
	Logging        LoggingConfig  `mapstructure:"logging"`
	Retry          RetryConfig    `mapstructure:"retry"`
	CircuitBreaker BreakerConfig  `mapstructure:"circuit_breaker"`
	Monitor        MonitorConfig  `mapstructure:"monitor"`
	Metrics        MetricsConfig  `mapstructure:"metrics"`
	Workload       WorkloadConfig `mapstructure:"workload"`
}

// Load reads config.yaml from ./config or the working directory, then
// applies RESILIENCE_* environment variables.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	return decode(v)
}

// LoadFile reads the given file instead of searching for config.yaml.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		slog.Error("failed to read config file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return nil, err
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.add_source", false)
	v.SetDefault("retry.enabled", true)
	v.SetDefault("circuit_breaker.preset", PresetDefault)
	v.SetDefault("monitor.interval", "5s")
	v.SetDefault("metrics.buffer_size", 1000)
	v.SetDefault("metrics.namespace", "resilience")
	v.SetDefault("workload.enabled", true)
	v.SetDefault("workload.interval", "500ms")
	v.SetDefault("workload.concurrency", 4)
	v.SetDefault("workload.failure_rate", 0.3)
	v.SetDefault("workload.latency", "50ms")
	v.SetDefault("workload.operations", []string{"search_slots", "navigate_home", "create_booking", "checkout_payment"})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Breaker overrides have no default, so they are bound explicitly to be
	// visible to Unmarshal when only set in the environment.
	for _, key := range []string{
		"circuit_breaker.failure_threshold",
		"circuit_breaker.request_volume_threshold",
		"circuit_breaker.rolling_window",
		"circuit_breaker.recovery_timeout",
		"circuit_breaker.success_threshold",
	} {
		_ = v.BindEnv(key)
	}

	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(httpserver.ValidateAddress),
					),
					validation.Field(&sc.ShutdownTimeout, validation.Min(time.Duration(0))),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Retry, validation.By(func(interface{}) error {
			_, err := c.PolicyTable()
			return err
		})),
		validation.Field(&c.CircuitBreaker, validation.By(func(interface{}) error {
			_, err := c.BreakerConfig()
			return err
		})),
		validation.Field(&c.Monitor,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MonitorConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MonitorConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.Interval, validation.Required, validation.Min(10*time.Millisecond)),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BufferSize, validation.Required, validation.Min(1)),
					validation.Field(&mc.Namespace, validation.Required, is.Alphanumeric),
				)
			}),
		),
		validation.Field(&c.Workload,
			validation.By(func(value interface{}) error {
				wc, ok := value.(WorkloadConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a WorkloadConfig")
				}
				if !wc.Enabled {
					return nil
				}
				return validation.ValidateStruct(&wc,
					validation.Field(&wc.Interval, validation.Required, validation.Min(time.Millisecond)),
					validation.Field(&wc.Concurrency, validation.Required, validation.Min(1)),
					validation.Field(&wc.FailureRate, validation.Min(0.0), validation.Max(1.0)),
					validation.Field(&wc.Latency, validation.Min(time.Duration(0))),
					validation.Field(&wc.Operations, validation.Required, validation.Each(validation.Required)),
				)
			}),
		),
	)
}

// PolicyTable merges the configured policies over the built-in ones.
func (c *Config) PolicyTable() (*policy.Table, error) {
	categories := policy.DefaultPolicies()
	for key, pc := range c.Retry.Policies {
		category := classifier.Category(strings.ToUpper(key))
		if !category.Valid() {
			return nil, validation.Errors{
				key: validation.NewError("validation_invalid_category", "unknown failure category"),
			}
		}
		categories[category] = categories[category].Apply(pc.override())
	}

	operations := policy.DefaultOperationOverrides()
	if len(c.Retry.Operations) > 0 {
		operations = make([]policy.OperationOverride, 0, len(c.Retry.Operations))
		for i, oc := range c.Retry.Operations {
			if len(oc.Keywords) == 0 {
				return nil, validation.Errors{
					fmt.Sprintf("operations[%d]", i): validation.NewError("validation_missing_keywords", "keywords cannot be empty"),
				}
			}
			operations = append(operations, policy.OperationOverride{
				Name:     oc.Name,
				Keywords: oc.Keywords,
				Override: *oc.override(),
			})
		}
	}

	return policy.NewTable(categories, operations)
}

// BreakerConfig resolves the preset and field overrides.
func (c *Config) BreakerConfig() (circuitbreaker.Config, error) {
	bc := c.CircuitBreaker

	var base circuitbreaker.Config
	switch strings.ToLower(bc.Preset) {
	case PresetDefault, "":
		base = circuitbreaker.DefaultConfig()
	case PresetAggressive:
		base = circuitbreaker.AggressiveConfig()
	case PresetConservative:
		base = circuitbreaker.ConservativeConfig()
	default:
		return circuitbreaker.Config{}, validation.Errors{
			"preset": validation.NewError("validation_invalid_preset", "must be one of default, aggressive, conservative"),
		}
	}

	if bc.FailureThreshold != nil {
		base.FailureThreshold = *bc.FailureThreshold
	}
	if bc.RequestVolumeThreshold != nil {
		base.RequestVolumeThreshold = *bc.RequestVolumeThreshold
	}
	if bc.RollingWindow != nil {
		base.RollingWindow = *bc.RollingWindow
	}
	if bc.RecoveryTimeout != nil {
		base.RecoveryTimeout = *bc.RecoveryTimeout
	}
	if bc.SuccessThreshold != nil {
		base.SuccessThreshold = *bc.SuccessThreshold
	}

	if err := base.Validate(); err != nil {
		return circuitbreaker.Config{}, err
	}
	return base, nil
}

func (pc PolicyConfig) override() *policy.Override {
	return &policy.Override{
		Enabled:           pc.Enabled,
		MaxAttempts:       pc.MaxAttempts,
		InitialDelay:      pc.InitialDelay,
		MaxDelay:          pc.MaxDelay,
		Multiplier:        pc.Multiplier,
		JitterFraction:    pc.JitterFraction,
		UseCircuitBreaker: pc.UseCircuitBreaker,
	}
}
