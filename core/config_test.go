package core

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.Server.Port)
	}
	if cfg.Provider.BaseURL != "https://api.esimaccess.com" {
		t.Fatalf("unexpected provider base url: %q", cfg.Provider.BaseURL)
	}
	if cfg.Admin.Username != "admin" {
		t.Fatalf("expected default admin username, got %q", cfg.Admin.Username)
	}
	if cfg.Stats.Driver != "sqlite3" {
		t.Fatalf("expected sqlite3 stats driver, got %q", cfg.Stats.Driver)
	}
}

func TestProviderConfig_PollBudget(t *testing.T) {
	provider := ProviderConfig{
		BurstPolls:           3,
		BurstIntervalSeconds: 2,
		PollIntervalSeconds:  15,
		MaxPollAttempts:      60,
	}

	// 3 burst polls at 2s plus 57 steady polls at 15s.
	want := 6*time.Second + 57*15*time.Second
	if got := provider.PollBudget(); got != want {
		t.Fatalf("expected poll budget %s, got %s", want, got)
	}
}

func TestProviderConfig_PollBudgetWithShortAttemptCap(t *testing.T) {
	provider := ProviderConfig{
		BurstPolls:           5,
		BurstIntervalSeconds: 2,
		PollIntervalSeconds:  15,
		MaxPollAttempts:      3,
	}
	if got := provider.PollBudget(); got != 10*time.Second {
		t.Fatalf("steady window should clamp at zero, got %s", got)
	}
}

func TestConfig_ValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "blank service name",
			mutate: func(c *Config) { c.ServiceName = " " },
			want:   "service_name",
		},
		{
			name:   "port out of range",
			mutate: func(c *Config) { c.Server.Port = 70000 },
			want:   "server.port",
		},
		{
			name:   "zero poll attempts",
			mutate: func(c *Config) { c.Provider.MaxPollAttempts = 0 },
			want:   "max_poll_attempts",
		},
		{
			name:   "zero retention",
			mutate: func(c *Config) { c.Ledger.RetentionMinutes = 0 },
			want:   "retention_minutes",
		},
		{
			name:   "retention shorter than poll budget",
			mutate: func(c *Config) { c.Ledger.RetentionMinutes = 5 },
			want:   "poll budget",
		},
		{
			name:   "unknown stats driver",
			mutate: func(c *Config) { c.Stats.Driver = "mysql" },
			want:   "stats.driver",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got: %v", tc.want, err)
			}
		})
	}
}

func TestConfig_ValidateRequiredSecrets(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ValidateRequiredSecrets()
	if err == nil {
		t.Fatal("expected missing secrets error")
	}
	for _, name := range []string{"SELLAUTH_SECRET", "ESIM_ACCESS_CODE", "ADMIN_PASSWORD"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("expected %s in error, got: %v", name, err)
		}
	}

	cfg.Sellauth.Secret = "hook"
	cfg.Provider.AccessCode = "provider"
	err = cfg.ValidateRequiredSecrets()
	if err == nil || !strings.Contains(err.Error(), "ADMIN_PASSWORD") {
		t.Fatalf("expected only ADMIN_PASSWORD missing, got: %v", err)
	}
	if strings.Contains(err.Error(), "SELLAUTH_SECRET") {
		t.Fatalf("provided secret still reported missing: %v", err)
	}

	cfg.Admin.Password = "letmein"
	if err := cfg.ValidateRequiredSecrets(); err != nil {
		t.Fatalf("expected complete secrets to pass, got: %v", err)
	}
}
