package sagemaker

import (
	"fmt"
	"regexp"
	"time"
)

// Deploy environments recognised by ProfileForEnv.
const (
	DeployEnvLocal = "local"
	DeployEnvProd  = "prod"
)

// Credential profiles selected by ProfileForEnv. An empty profile means the
// ambient credential chain.
const (
	ProfileLocal   = "create"
	ProfileDefault = "default"
)

// DefaultRegion is the region every endpoint lives in.
const DefaultRegion = "us-east-1"

// Name suffix strategies.
const (
	NameSuffixNone      = "none"
	NameSuffixTimestamp = "timestamp"
)

// Defaults for the lifecycle and streaming knobs.
const (
	DefaultConfigNameFilter   = "-"
	DefaultMaxWait            = 600 * time.Second
	DefaultDescribeInterval   = 5 * time.Second
	DefaultStreamPollInterval = 60 * time.Second
	DefaultMaxProbes          = 2
	DefaultDeployConcurrency  = 4
)

// Settings holds the endpoint lifecycle configuration.
type Settings struct {
	Region    string `mapstructure:"region"`
	DeployEnv string `mapstructure:"deploy_env"`
	// Profile is derived from DeployEnv by ProfileForEnv unless set explicitly.
	Profile string `mapstructure:"profile"`
	// EndpointURL overrides the SageMaker endpoint (localstack).
	EndpointURL    string `mapstructure:"endpoint_url"`
	VerifyIdentity bool   `mapstructure:"verify_identity"`

	// ConfigNameFilter restricts catalog listings to configs whose name
	// contains it.
	ConfigNameFilter string `mapstructure:"config_name_filter"`

	MaxWait          time.Duration `mapstructure:"max_wait"`
	DescribeInterval time.Duration `mapstructure:"describe_interval"`
	DeleteOnFail     bool          `mapstructure:"delete_on_fail"`

	StreamPollInterval time.Duration `mapstructure:"stream_poll_interval"`
	MaxProbes          int           `mapstructure:"max_probes"`
	// DeployConcurrency bounds background deploys; 0 means unbounded.
	DeployConcurrency int `mapstructure:"deploy_concurrency"`

	// NameSuffix selects how new endpoints are named: "none" (the config
	// name) or "timestamp".
	NameSuffix string `mapstructure:"name_suffix"`

	Tags map[string]string `mapstructure:"tags"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Region:             DefaultRegion,
		DeployEnv:          DeployEnvLocal,
		Profile:            ProfileLocal,
		ConfigNameFilter:   DefaultConfigNameFilter,
		MaxWait:            DefaultMaxWait,
		DescribeInterval:   DefaultDescribeInterval,
		DeleteOnFail:       true,
		StreamPollInterval: DefaultStreamPollInterval,
		MaxProbes:          DefaultMaxProbes,
		DeployConcurrency:  DefaultDeployConcurrency,
		NameSuffix:         NameSuffixNone,
	}
}

// ProfileForEnv maps a deploy environment to a credential profile: local uses
// the "create" profile, prod uses ambient credentials, anything else uses
// "default".
func ProfileForEnv(env string) string {
	switch env {
	case DeployEnvLocal:
		return ProfileLocal
	case DeployEnvProd:
		return ""
	default:
		return ProfileDefault
	}
}

// regionRE matches an AWS region name.
var regionRE = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-\d+$`)

// tagKeyRE matches a valid SageMaker tag key.
var tagKeyRE = regexp.MustCompile(`^[\p{L}\p{Z}\p{N}_.:/=+\-@]{1,128}$`)

// Validate checks the settings and returns every problem found.
func (s *Settings) Validate() []string {
	var errs []string

	if s.Region == "" {
		errs = append(errs, "region is required")
	} else if !regionRE.MatchString(s.Region) {
		errs = append(errs, fmt.Sprintf("region %q is not a valid AWS region", s.Region))
	}
	if s.MaxWait <= 0 {
		errs = append(errs, "max_wait must be positive")
	}
	if s.DescribeInterval <= 0 {
		errs = append(errs, "describe_interval must be positive")
	}
	if s.StreamPollInterval <= 0 {
		errs = append(errs, "stream_poll_interval must be positive")
	}
	if s.MaxProbes < 1 {
		errs = append(errs, "max_probes must be at least 1")
	}
	if s.DeployConcurrency < 0 {
		errs = append(errs, "deploy_concurrency must not be negative")
	}
	switch s.NameSuffix {
	case "", NameSuffixNone, NameSuffixTimestamp:
	default:
		errs = append(errs, fmt.Sprintf("name_suffix %q must be %q or %q", s.NameSuffix, NameSuffixNone, NameSuffixTimestamp))
	}
	for k := range s.Tags {
		if !tagKeyRE.MatchString(k) {
			errs = append(errs, fmt.Sprintf("tag key %q is invalid", k))
		}
	}
	return errs
}

// SuffixFunc returns the NameSuffixFunc selected by NameSuffix.
func (s *Settings) SuffixFunc(now func() time.Time) NameSuffixFunc {
	if s.NameSuffix == NameSuffixTimestamp {
		return TimestampSuffix(now)
	}
	return NoSuffix
}
