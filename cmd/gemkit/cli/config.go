package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/leofalp/gemkit/core/cost"
	"github.com/leofalp/gemkit/core/transport"
	"github.com/leofalp/gemkit/internal/logging"
	"github.com/leofalp/gemkit/providers/gemini"
)

const (
	// EnvConfigPath names a config file used when --config is not given.
	EnvConfigPath = "GEMKIT_CONFIG"

	defaultConfigFile = "gemkit.yaml"
)

// Config is the CLI configuration file. Command-line flags override it.
type Config struct {
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"base_url"`
	SystemInstruction string        `yaml:"system_instruction"`
	Temperature       *float64      `yaml:"temperature"`
	MaxOutputTokens   int           `yaml:"max_output_tokens"`
	ThinkingBudget    *int          `yaml:"thinking_budget"`
	Timeout           string        `yaml:"timeout"`
	LogLevel          string        `yaml:"log_level"`
	TraceHTTP         bool          `yaml:"trace_http"`
	Retry             RetrySettings `yaml:"retry"`
	Safety            []SafetyRule  `yaml:"safety"`

	// Pricing overrides or extends the built-in price table, keyed by model.
	Pricing map[string]cost.ModelCost `yaml:"pricing"`
}

// RetrySettings tunes transport retries. Durations use time.ParseDuration
// syntax.
type RetrySettings struct {
	Disabled       bool   `yaml:"disabled"`
	MaxRetries     int    `yaml:"max_retries"`
	InitialBackoff string `yaml:"initial_backoff"`
	MaxBackoff     string `yaml:"max_backoff"`
}

// SafetyRule is one safetySettings entry.
type SafetyRule struct {
	Category  string `yaml:"category"`
	Threshold string `yaml:"threshold"`
}

// DefaultConfig returns the settings used when no file is found.
func DefaultConfig() *Config {
	return &Config{
		Model:    gemini.DefaultModel,
		LogLevel: "warn",
	}
}

// LoadConfig reads the config at path. With an empty path it tries
// $GEMKIT_CONFIG and then ./gemkit.yaml, falling back to DefaultConfig when
// neither exists. An explicit path that does not exist is an error.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigPath)
		explicit = path != ""
	}
	if path == "" {
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML over DefaultConfig. Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields that need parsing.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.timeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.retryConfig(); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	for i, rule := range c.Safety {
		if rule.Category == "" || rule.Threshold == "" {
			errs = append(errs, fmt.Errorf("safety[%d]: category and threshold are required", i))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) timeout() (time.Duration, error) {
	return parseDuration("timeout", c.Timeout)
}

func (c *Config) retryConfig() (transport.RetryConfig, error) {
	initial, err := parseDuration("retry.initial_backoff", c.Retry.InitialBackoff)
	if err != nil {
		return transport.RetryConfig{}, err
	}
	maxBackoff, err := parseDuration("retry.max_backoff", c.Retry.MaxBackoff)
	if err != nil {
		return transport.RetryConfig{}, err
	}
	return transport.RetryConfig{
		MaxRetries:     c.Retry.MaxRetries,
		InitialBackoff: initial,
		MaxBackoff:     maxBackoff,
	}, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", field)
	}
	return d, nil
}

// apply copies the request defaults onto b.
func (c *Config) apply(b *gemini.RequestBuilder) *gemini.RequestBuilder {
	b.Model(c.Model)
	if c.SystemInstruction != "" {
		b.SystemInstruction(c.SystemInstruction)
	}
	if c.Temperature != nil {
		b.Temperature(*c.Temperature)
	}
	if c.MaxOutputTokens > 0 {
		b.MaxOutputTokens(c.MaxOutputTokens)
	}
	if c.ThinkingBudget != nil {
		b.Thinking(*c.ThinkingBudget)
	}
	for _, rule := range c.Safety {
		b.AddSafetySetting(rule.Category, rule.Threshold)
	}
	return b
}
