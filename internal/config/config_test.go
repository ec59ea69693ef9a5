package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t77yq/sentinel/internal/notify"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentinel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const fullConfig = `
log_level: debug
database:
  path: /var/lib/sentinel/sentinel.db
  check_dsn: /var/lib/sentinel/checks.db
defaults:
  schedule: "@every 10m"
  min_alert_interval: 2h
  escalation_threshold: 5
  retry:
    max_attempts: 4
    initial_delay: 500ms
    max_delay: 10s
    multiplier: 3.0
  timeout: 8s
  probe_timeout: 20s
channels:
  - name: ops-mail
    type: email
    host: smtp.example.com
    port: 587
    username: sentinel
    password: secret
    from: sentinel@example.com
    to: [oncall@example.com]
  - name: ops-slack
    type: slack
    url: https://hooks.slack.com/services/T/B/X
    retry:
      max_attempts: 2
  - name: audit-hook
    type: webhook
    url: https://audit.example.com/hook
    headers:
      Authorization: Bearer token123
    timeout: 3s
  - name: bus
    type: nats
    url: nats://127.0.0.1:4222
alerts:
  - name: daily_revenue
    description: Revenue below threshold
    sql: SELECT CASE WHEN SUM(amount) < 10000 THEN 'ALERT' ELSE 'OK' END AS status FROM orders
    schedule: "0 8 * * *"
    channels: [ops-mail, ops-slack]
    min_alert_interval: 0s
    escalation_threshold: 3
  - name: error_rate
    sql: SELECT 'OK' AS status
    enabled: false
metrics:
  enabled: true
  listen: :9091
`

func TestLoad_FullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/var/lib/sentinel/sentinel.db", cfg.Database.Path)
	assert.Equal(t, "/var/lib/sentinel/checks.db", cfg.CheckDSN())
	assert.Equal(t, 2*time.Hour, cfg.Defaults.MinAlertInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.Defaults.Retry.InitialDelay)

	require.Len(t, cfg.Channels, 4)
	require.Len(t, cfg.Alerts, 2)

	revenue := cfg.Alerts[0]
	assert.Equal(t, "daily_revenue", revenue.Name)
	assert.True(t, revenue.IsEnabled())
	assert.False(t, cfg.Alerts[1].IsEnabled())

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9091", cfg.Metrics.Listen)
}

func TestLoad_DefaultsApplied(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
alerts:
  - name: heartbeat
    sql: SELECT 'OK' AS status
`))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "sentinel.db", cfg.Database.Path)
	assert.Equal(t, "sentinel.db", cfg.CheckDSN())
	assert.Equal(t, "@every 5m", cfg.Defaults.Schedule)
	assert.Equal(t, time.Hour, cfg.Defaults.MinAlertInterval)
	assert.Equal(t, 0, cfg.Defaults.EscalationThreshold)
	assert.Equal(t, 3, cfg.Defaults.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Defaults.Retry.InitialDelay)
	assert.Equal(t, 30*time.Second, cfg.Defaults.Retry.MaxDelay)
	assert.Equal(t, 2.0, cfg.Defaults.Retry.Multiplier)
	assert.Equal(t, 10*time.Second, cfg.Defaults.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Defaults.ProbeTimeout)
	assert.Equal(t, ":9090", cfg.Metrics.Listen)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SENTINEL_LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, `
log_level: info
alerts:
  - name: heartbeat
    sql: SELECT 'OK' AS status
`))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			"no alerts",
			`log_level: info`,
			"at least one alert",
		},
		{
			"duplicate alert names",
			`
alerts:
  - {name: a, sql: SELECT 'OK' AS status}
  - {name: a, sql: SELECT 'OK' AS status}
`,
			"duplicate alert name",
		},
		{
			"missing sql",
			`
alerts:
  - {name: a}
`,
			"sql is required",
		},
		{
			"unknown channel reference",
			`
alerts:
  - {name: a, sql: SELECT 'OK' AS status, channels: [ghost]}
`,
			`unknown channel "ghost"`,
		},
		{
			"unsupported channel type",
			`
channels:
  - {name: pager, type: pagerduty}
alerts:
  - {name: a, sql: SELECT 'OK' AS status}
`,
			"unsupported channel type",
		},
		{
			"duplicate channel names",
			`
channels:
  - {name: hook, type: webhook, url: https://example.com/a}
  - {name: hook, type: webhook, url: https://example.com/b}
alerts:
  - {name: a, sql: SELECT 'OK' AS status}
`,
			"duplicate channel name",
		},
		{
			"negative escalation threshold",
			`
alerts:
  - {name: a, sql: SELECT 'OK' AS status, escalation_threshold: -1}
`,
			"escalation_threshold",
		},
		{
			"bad channel retry",
			`
channels:
  - name: hook
    type: webhook
    url: https://example.com/a
    retry:
      multiplier: 0.5
alerts:
  - {name: a, sql: SELECT 'OK' AS status}
`,
			"multiplier",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestBehavior_PerAlertFallback(t *testing.T) {
	cfg, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)

	// daily_revenue overrides both fields, an explicit 0 interval counts
	revenue, ok := cfg.FindAlert("daily_revenue")
	require.True(t, ok)
	behavior := cfg.Behavior(revenue)
	assert.Equal(t, time.Duration(0), behavior.MinAlertInterval)
	assert.Equal(t, 3, behavior.EscalationThreshold)

	// error_rate sets nothing and inherits the defaults block
	errorRate, ok := cfg.FindAlert("error_rate")
	require.True(t, ok)
	behavior = cfg.Behavior(errorRate)
	assert.Equal(t, 2*time.Hour, behavior.MinAlertInterval)
	assert.Equal(t, 5, behavior.EscalationThreshold)
}

func TestAlert_ScheduleAndTimeoutFallback(t *testing.T) {
	cfg, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)

	revenue, _ := cfg.FindAlert("daily_revenue")
	alert := cfg.Alert(revenue)
	assert.Equal(t, "0 8 * * *", alert.Schedule)
	assert.Equal(t, 20*time.Second, alert.Timeout)

	errorRate, _ := cfg.FindAlert("error_rate")
	alert = cfg.Alert(errorRate)
	assert.Equal(t, "@every 10m", alert.Schedule)
}

func TestChannelSpec_RetryMerge(t *testing.T) {
	cfg, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)

	byName := make(map[string]ChannelConfig)
	for _, ch := range cfg.Channels {
		byName[ch.Name] = ch
	}

	// ops-slack overrides only max_attempts, inherits everything else
	spec := cfg.ChannelSpec(byName["ops-slack"])
	assert.Equal(t, notify.ChannelTypeSlack, spec.Type)
	assert.Equal(t, "https://hooks.slack.com/services/T/B/X", spec.WebhookURL)
	assert.Equal(t, 2, spec.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, spec.Retry.InitialDelay)
	assert.Equal(t, 10*time.Second, spec.Retry.MaxDelay)
	assert.Equal(t, 3.0, spec.Retry.Multiplier)
	assert.Equal(t, 8*time.Second, spec.Retry.Timeout)

	// audit-hook keeps the default retry but its own attempt timeout
	spec = cfg.ChannelSpec(byName["audit-hook"])
	assert.Equal(t, 4, spec.Retry.MaxAttempts)
	assert.Equal(t, 3*time.Second, spec.Retry.Timeout)
	assert.Equal(t, "Bearer token123", spec.Headers["Authorization"])

	// email fields carry through untouched
	spec = cfg.ChannelSpec(byName["ops-mail"])
	assert.Equal(t, "smtp.example.com", spec.Host)
	assert.Equal(t, 587, spec.Port)
	assert.Equal(t, []string{"oncall@example.com"}, spec.To)

	// the nats URL lands on its own field
	spec = cfg.ChannelSpec(byName["bus"])
	assert.Equal(t, "nats://127.0.0.1:4222", spec.NATSURL)
}
