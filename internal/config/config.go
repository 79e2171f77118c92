// Package config loads endpoint manager configuration from an optional YAML
// file and ENDPOINT_MANAGER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/AltairaLabs/promptarena-sagemaker/internal/sagemaker"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ENDPOINT_MANAGER"

// envDeployEnv is read without the prefix for compatibility with existing
// deployments.
const envDeployEnv = "DEPLOY_ENV"

// Defaults for the HTTP server.
const (
	DefaultPort              = 8000
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultCORSMaxAge        = 240
)

// DefaultAllowedOrigins are the frontend origins allowed by CORS.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://chat-gpt-frontend-2023.s3-website-ap-southeast-2.amazonaws.com",
}

// Config is the full endpoint manager configuration.
type Config struct {
	LogLevel  string             `mapstructure:"log_level"`
	SageMaker sagemaker.Settings `mapstructure:"sagemaker"`
	Server    ServerConfig       `mapstructure:"server"`
	Tracing   TracingConfig      `mapstructure:"tracing"`
	// PromptDir overrides the built-in generation prompts.
	PromptDir string `mapstructure:"prompt_dir"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	CORSMaxAge        int           `mapstructure:"cors_max_age"`
}

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// Load reads configuration from path (optional) and the environment.
// Environment variables take precedence over the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range []string{"sagemaker.profile", "sagemaker.endpoint_url", "tracing.otlp_endpoint", "prompt_dir"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	if err := v.BindEnv("sagemaker.deploy_env", EnvPrefix+"_SAGEMAKER_DEPLOY_ENV", envDeployEnv); err != nil {
		return nil, fmt.Errorf("bind deploy env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if !v.IsSet("sagemaker.profile") {
		cfg.SageMaker.Profile = sagemaker.ProfileForEnv(cfg.SageMaker.DeployEnv)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := sagemaker.DefaultSettings()
	v.SetDefault("log_level", "info")
	v.SetDefault("sagemaker.region", d.Region)
	v.SetDefault("sagemaker.deploy_env", d.DeployEnv)
	v.SetDefault("sagemaker.verify_identity", false)
	v.SetDefault("sagemaker.config_name_filter", d.ConfigNameFilter)
	v.SetDefault("sagemaker.max_wait", d.MaxWait)
	v.SetDefault("sagemaker.describe_interval", d.DescribeInterval)
	v.SetDefault("sagemaker.delete_on_fail", d.DeleteOnFail)
	v.SetDefault("sagemaker.stream_poll_interval", d.StreamPollInterval)
	v.SetDefault("sagemaker.max_probes", d.MaxProbes)
	v.SetDefault("sagemaker.deploy_concurrency", d.DeployConcurrency)
	v.SetDefault("sagemaker.name_suffix", d.NameSuffix)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.read_header_timeout", DefaultReadHeaderTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("server.allowed_origins", DefaultAllowedOrigins)
	v.SetDefault("server.cors_max_age", DefaultCORSMaxAge)
	v.SetDefault("tracing.sample_rate", 1.0)
}

// Validate returns every problem found in the configuration.
func (c *Config) Validate() []string {
	errs := c.SageMaker.Validate()
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Sprintf("tracing.sample_rate %.2f must be within [0, 1]", c.Tracing.SampleRate))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}
	return errs
}

// ParseLevel maps a log level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, errors.New("log_level must be one of debug, info, warn, error")
	}
	return level, nil
}
