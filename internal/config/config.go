// Package config loads and validates the sentinel configuration from
// YAML, applying defaults and SENTINEL_ environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/t77yq/sentinel/internal/model"
	"github.com/t77yq/sentinel/internal/notify"
)

// Config is the full configuration tree
type Config struct {
	LogLevel string          `mapstructure:"log_level"`
	Database DatabaseConfig  `mapstructure:"database"`
	Defaults DefaultsConfig  `mapstructure:"defaults"`
	Channels []ChannelConfig `mapstructure:"channels"`
	Alerts   []AlertConfig   `mapstructure:"alerts"`
	Metrics  MetricsConfig   `mapstructure:"metrics"`
}

// DatabaseConfig locates the two database roles. CheckDSN is what the
// probes query; when empty, checks run against the sentinel database
// itself.
type DatabaseConfig struct {
	Path     string `mapstructure:"path"`
	CheckDSN string `mapstructure:"check_dsn"`
}

// RetryConfig mirrors notify.RetryPolicy at the configuration surface
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
}

// DefaultsConfig is the fallback block for per-alert and per-channel
// settings left unset
type DefaultsConfig struct {
	Schedule            string        `mapstructure:"schedule"`
	MinAlertInterval    time.Duration `mapstructure:"min_alert_interval"`
	EscalationThreshold int           `mapstructure:"escalation_threshold"`
	Retry               RetryConfig   `mapstructure:"retry"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ProbeTimeout        time.Duration `mapstructure:"probe_timeout"`
}

// ChannelConfig declares one notification channel instance. URL serves
// the slack, webhook, and nats types; the email fields serve email.
type ChannelConfig struct {
	Name     string            `mapstructure:"name"`
	Type     string            `mapstructure:"type"`
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	From     string            `mapstructure:"from"`
	To       []string          `mapstructure:"to"`
	URL      string            `mapstructure:"url"`
	Headers  map[string]string `mapstructure:"headers"`
	Retry    *RetryConfig      `mapstructure:"retry"`
	Timeout  time.Duration     `mapstructure:"timeout"`
}

// AlertConfig declares one monitored condition. Pointer fields
// distinguish "unset, use the default" from an explicit zero; an
// explicit min_alert_interval of 0 disables the interval gate.
type AlertConfig struct {
	Name                string         `mapstructure:"name"`
	Description         string         `mapstructure:"description"`
	SQL                 string         `mapstructure:"sql"`
	Schedule            string         `mapstructure:"schedule"`
	Channels            []string       `mapstructure:"channels"`
	Timeout             time.Duration  `mapstructure:"timeout"`
	Enabled             *bool          `mapstructure:"enabled"`
	MinAlertInterval    *time.Duration `mapstructure:"min_alert_interval"`
	EscalationThreshold *int           `mapstructure:"escalation_threshold"`
}

// IsEnabled defaults to true when the flag is omitted
func (a AlertConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// MetricsConfig controls the HTTP metrics and health endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// Load reads the configuration file at path, applies defaults and
// SENTINEL_ environment overrides, and validates the result. An empty
// path searches for sentinel.yaml in . and ./config.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sentinel")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	v.SetEnvPrefix("SENTINEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("database.path", "sentinel.db")
	v.SetDefault("defaults.schedule", "@every 5m")
	v.SetDefault("defaults.min_alert_interval", time.Hour)
	v.SetDefault("defaults.escalation_threshold", 0)
	v.SetDefault("defaults.retry.max_attempts", 3)
	v.SetDefault("defaults.retry.initial_delay", time.Second)
	v.SetDefault("defaults.retry.max_delay", 30*time.Second)
	v.SetDefault("defaults.retry.multiplier", 2.0)
	v.SetDefault("defaults.timeout", 10*time.Second)
	v.SetDefault("defaults.probe_timeout", 30*time.Second)
	v.SetDefault("metrics.listen", ":9090")
}

// Validate checks structural consistency. Transport-specific field
// requirements are enforced by the channel constructors.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}

	if err := validateRetry(c.Defaults.Retry, false); err != nil {
		return fmt.Errorf("defaults.retry: %w", err)
	}
	if c.Defaults.Timeout <= 0 {
		return errors.New("defaults.timeout must be positive")
	}
	if c.Defaults.ProbeTimeout <= 0 {
		return errors.New("defaults.probe_timeout must be positive")
	}
	if c.Defaults.MinAlertInterval < 0 {
		return errors.New("defaults.min_alert_interval must not be negative")
	}
	if c.Defaults.EscalationThreshold < 0 {
		return errors.New("defaults.escalation_threshold must not be negative")
	}

	channelNames := make(map[string]struct{}, len(c.Channels))
	for i, ch := range c.Channels {
		if ch.Name == "" {
			return fmt.Errorf("channels[%d]: name is required", i)
		}
		if _, dup := channelNames[ch.Name]; dup {
			return fmt.Errorf("duplicate channel name %q", ch.Name)
		}
		channelNames[ch.Name] = struct{}{}

		switch ch.Type {
		case notify.ChannelTypeEmail, notify.ChannelTypeSlack, notify.ChannelTypeWebhook, notify.ChannelTypeNATS:
		default:
			return fmt.Errorf("channel %s: unsupported channel type: %s", ch.Name, ch.Type)
		}

		if ch.Retry != nil {
			if err := validateRetry(*ch.Retry, true); err != nil {
				return fmt.Errorf("channel %s: %w", ch.Name, err)
			}
		}
		if ch.Timeout < 0 {
			return fmt.Errorf("channel %s: timeout must not be negative", ch.Name)
		}
	}

	if len(c.Alerts) == 0 {
		return errors.New("at least one alert is required")
	}

	alertNames := make(map[string]struct{}, len(c.Alerts))
	for i, a := range c.Alerts {
		if a.Name == "" {
			return fmt.Errorf("alerts[%d]: name is required", i)
		}
		if _, dup := alertNames[a.Name]; dup {
			return fmt.Errorf("duplicate alert name %q", a.Name)
		}
		alertNames[a.Name] = struct{}{}

		if strings.TrimSpace(a.SQL) == "" {
			return fmt.Errorf("alert %s: sql is required", a.Name)
		}
		for _, ref := range a.Channels {
			if _, ok := channelNames[ref]; !ok {
				return fmt.Errorf("alert %s: unknown channel %q", a.Name, ref)
			}
		}
		if a.MinAlertInterval != nil && *a.MinAlertInterval < 0 {
			return fmt.Errorf("alert %s: min_alert_interval must not be negative", a.Name)
		}
		if a.EscalationThreshold != nil && *a.EscalationThreshold < 0 {
			return fmt.Errorf("alert %s: escalation_threshold must not be negative", a.Name)
		}
	}

	return nil
}

// validateRetry checks one retry block. Partial blocks (per-channel
// overrides) may leave fields zero to inherit the default.
func validateRetry(r RetryConfig, partial bool) error {
	if r.MaxAttempts < 0 || (!partial && r.MaxAttempts < 1) {
		return errors.New("max_attempts must be at least 1")
	}
	if r.InitialDelay < 0 || (!partial && r.InitialDelay <= 0) {
		return errors.New("initial_delay must be positive")
	}
	if r.MaxDelay < 0 || (!partial && r.MaxDelay <= 0) {
		return errors.New("max_delay must be positive")
	}
	if r.Multiplier != 0 && r.Multiplier < 1 {
		return errors.New("multiplier must be at least 1")
	}
	if !partial && r.Multiplier == 0 {
		return errors.New("multiplier must be at least 1")
	}
	return nil
}

// FindAlert looks one alert up by name
func (c *Config) FindAlert(name string) (AlertConfig, bool) {
	for _, a := range c.Alerts {
		if a.Name == name {
			return a, true
		}
	}
	return AlertConfig{}, false
}

// Alert materializes the model alert with schedule and probe timeout
// fallbacks applied
func (c *Config) Alert(a AlertConfig) *model.Alert {
	schedule := a.Schedule
	if schedule == "" {
		schedule = c.Defaults.Schedule
	}
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = c.Defaults.ProbeTimeout
	}
	return &model.Alert{
		Name:        a.Name,
		Description: a.Description,
		SQL:         a.SQL,
		Schedule:    schedule,
		Channels:    a.Channels,
		Timeout:     timeout,
		Enabled:     a.IsEnabled(),
	}
}

// Behavior resolves the notification policy for one alert, falling back
// to the defaults block per field
func (c *Config) Behavior(a AlertConfig) model.AlertBehavior {
	b := model.AlertBehavior{
		MinAlertInterval:    c.Defaults.MinAlertInterval,
		EscalationThreshold: c.Defaults.EscalationThreshold,
	}
	if a.MinAlertInterval != nil {
		b.MinAlertInterval = *a.MinAlertInterval
	}
	if a.EscalationThreshold != nil {
		b.EscalationThreshold = *a.EscalationThreshold
	}
	return b
}

// ChannelSpec converts one channel config into the notify spec, merging
// unset retry fields from the defaults block
func (c *Config) ChannelSpec(ch ChannelConfig) notify.ChannelSpec {
	retry := c.Defaults.Retry
	if ch.Retry != nil {
		if ch.Retry.MaxAttempts > 0 {
			retry.MaxAttempts = ch.Retry.MaxAttempts
		}
		if ch.Retry.InitialDelay > 0 {
			retry.InitialDelay = ch.Retry.InitialDelay
		}
		if ch.Retry.MaxDelay > 0 {
			retry.MaxDelay = ch.Retry.MaxDelay
		}
		if ch.Retry.Multiplier > 0 {
			retry.Multiplier = ch.Retry.Multiplier
		}
	}

	timeout := ch.Timeout
	if timeout <= 0 {
		timeout = c.Defaults.Timeout
	}

	return notify.ChannelSpec{
		Name:       ch.Name,
		Type:       ch.Type,
		Host:       ch.Host,
		Port:       ch.Port,
		Username:   ch.Username,
		Password:   ch.Password,
		From:       ch.From,
		To:         ch.To,
		WebhookURL: ch.URL,
		Headers:    ch.Headers,
		NATSURL:    ch.URL,
		Retry: notify.RetryPolicy{
			MaxAttempts:  retry.MaxAttempts,
			InitialDelay: retry.InitialDelay,
			MaxDelay:     retry.MaxDelay,
			Multiplier:   retry.Multiplier,
			Timeout:      timeout,
		},
	}
}

// CheckDSN returns the database the probes query, defaulting to the
// sentinel database itself
func (c *Config) CheckDSN() string {
	if c.Database.CheckDSN != "" {
		return c.Database.CheckDSN
	}
	return c.Database.Path
}
