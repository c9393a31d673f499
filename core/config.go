package core

import (
	"fmt"
	"strings"
	"time"
)

type ServerConfig struct {
	Port int `koanf:"port" mapstructure:"port"`
}

type SellauthConfig struct {
	Secret string `koanf:"secret" mapstructure:"secret"`
}

type ProviderConfig struct {
	AccessCode            string `koanf:"access_code" mapstructure:"access_code"`
	BaseURL               string `koanf:"base_url" mapstructure:"base_url"`
	BurstPolls            int    `koanf:"burst_polls" mapstructure:"burst_polls"`
	BurstIntervalSeconds  int    `koanf:"burst_interval_seconds" mapstructure:"burst_interval_seconds"`
	PollIntervalSeconds   int    `koanf:"poll_interval_seconds" mapstructure:"poll_interval_seconds"`
	MaxPollAttempts       int    `koanf:"max_poll_attempts" mapstructure:"max_poll_attempts"`
	RequestTimeoutSeconds int    `koanf:"request_timeout_seconds" mapstructure:"request_timeout_seconds"`
}

func (c ProviderConfig) BurstInterval() time.Duration {
	return time.Duration(c.BurstIntervalSeconds) * time.Second
}

func (c ProviderConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c ProviderConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// PollBudget is the worst-case wall-clock time one provisioning attempt may
// take. The HTTP server and the ledger retention window must both exceed it.
func (c ProviderConfig) PollBudget() time.Duration {
	burst := time.Duration(c.BurstPolls) * c.BurstInterval()
	steady := time.Duration(c.MaxPollAttempts-c.BurstPolls) * c.PollInterval()
	if steady < 0 {
		steady = 0
	}
	return burst + steady
}

type LedgerConfig struct {
	RetentionMinutes     int `koanf:"retention_minutes" mapstructure:"retention_minutes"`
	SweepIntervalMinutes int `koanf:"sweep_interval_minutes" mapstructure:"sweep_interval_minutes"`
}

func (c LedgerConfig) Retention() time.Duration {
	return time.Duration(c.RetentionMinutes) * time.Minute
}

func (c LedgerConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMinutes) * time.Minute
}

type AdminConfig struct {
	Username string `koanf:"username" mapstructure:"username"`
	Password string `koanf:"password" mapstructure:"password"`
}

type StatsConfig struct {
	Driver               string `koanf:"driver" mapstructure:"driver"`
	DSN                  string `koanf:"dsn" mapstructure:"dsn"`
	FlushIntervalSeconds int    `koanf:"flush_interval_seconds" mapstructure:"flush_interval_seconds"`
}

func (c StatsConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalSeconds) * time.Second
}

type Config struct {
	ServiceName string         `koanf:"service_name" mapstructure:"service_name"`
	LogLevel    string         `koanf:"log_level" mapstructure:"log_level"`
	Server      ServerConfig   `koanf:"server" mapstructure:"server"`
	Sellauth    SellauthConfig `koanf:"sellauth" mapstructure:"sellauth"`
	Provider    ProviderConfig `koanf:"provider" mapstructure:"provider"`
	Ledger      LedgerConfig   `koanf:"ledger" mapstructure:"ledger"`
	Admin       AdminConfig    `koanf:"admin" mapstructure:"admin"`
	Stats       StatsConfig    `koanf:"stats" mapstructure:"stats"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "esimconnect",
		LogLevel:    "info",
		Server: ServerConfig{
			Port: 3000,
		},
		Provider: ProviderConfig{
			BaseURL:               "https://api.esimaccess.com",
			BurstPolls:            3,
			BurstIntervalSeconds:  2,
			PollIntervalSeconds:   15,
			MaxPollAttempts:       60,
			RequestTimeoutSeconds: 30,
		},
		Ledger: LedgerConfig{
			RetentionMinutes:     360,
			SweepIntervalMinutes: 10,
		},
		Admin: AdminConfig{
			Username: "admin",
		},
		Stats: StatsConfig{
			Driver:               "sqlite3",
			DSN:                  "file:esimconnect-stats.db?_foreign_keys=on",
			FlushIntervalSeconds: 10,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("core: server.port %d is out of range", c.Server.Port)
	}
	if c.Provider.MaxPollAttempts < 1 {
		return fmt.Errorf("core: provider.max_poll_attempts must be at least 1")
	}
	if c.Provider.PollIntervalSeconds < 1 {
		return fmt.Errorf("core: provider.poll_interval_seconds must be at least 1")
	}
	if c.Provider.BurstPolls < 0 {
		return fmt.Errorf("core: provider.burst_polls must not be negative")
	}
	if c.Ledger.RetentionMinutes < 1 {
		return fmt.Errorf("core: ledger.retention_minutes must be at least 1")
	}
	if c.Ledger.SweepIntervalMinutes < 1 {
		return fmt.Errorf("core: ledger.sweep_interval_minutes must be at least 1")
	}
	// A processing record evicted mid-flight would break the at-most-once
	// invariant, so retention has to outlive the slowest possible attempt.
	if c.Ledger.Retention() <= c.Provider.PollBudget() {
		return fmt.Errorf(
			"core: ledger.retention_minutes (%s) must exceed the provisioning poll budget (%s)",
			c.Ledger.Retention(), c.Provider.PollBudget(),
		)
	}
	switch strings.TrimSpace(c.Stats.Driver) {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("core: stats.driver %q is not supported", c.Stats.Driver)
	}
	return nil
}

// ValidateRequiredSecrets is the startup gate: the process must refuse to
// serve without the webhook secret, the provider access code, and an admin
// password. Structural Validate stays separate so config layering can build
// partial configs in tests.
func (c Config) ValidateRequiredSecrets() error {
	missing := []string{}
	if strings.TrimSpace(c.Sellauth.Secret) == "" {
		missing = append(missing, "SELLAUTH_SECRET")
	}
	if strings.TrimSpace(c.Provider.AccessCode) == "" {
		missing = append(missing, "ESIM_ACCESS_CODE")
	}
	if strings.TrimSpace(c.Admin.Password) == "" {
		missing = append(missing, "ADMIN_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("core: missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}
