package core

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// EnvRawConfigLoader maps the process environment onto the nested config
// shape. Lookup is injectable so tests never mutate real environment state.
type EnvRawConfigLoader struct {
	Lookup func(key string) (string, bool)
}

func NewEnvRawConfigLoader() EnvRawConfigLoader {
	return EnvRawConfigLoader{Lookup: os.LookupEnv}
}

func (l EnvRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	raw := map[string]any{}
	setString := func(path []string, env string) error {
		value, ok := lookup(env)
		if !ok || strings.TrimSpace(value) == "" {
			return nil
		}
		putNested(raw, path, strings.TrimSpace(value))
		return nil
	}
	setInt := func(path []string, env string) error {
		value, ok := lookup(env)
		if !ok || strings.TrimSpace(value) == "" {
			return nil
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("core: %s must be an integer: %w", env, err)
		}
		putNested(raw, path, parsed)
		return nil
	}

	bindings := []func() error{
		func() error { return setString([]string{"log_level"}, "LOG_LEVEL") },
		func() error { return setInt([]string{"server", "port"}, "PORT") },
		func() error { return setString([]string{"sellauth", "secret"}, "SELLAUTH_SECRET") },
		func() error { return setString([]string{"provider", "access_code"}, "ESIM_ACCESS_CODE") },
		func() error { return setString([]string{"provider", "base_url"}, "ESIM_API_URL") },
		func() error { return setInt([]string{"provider", "burst_polls"}, "ESIM_BURST_POLLS") },
		func() error {
			return setInt([]string{"provider", "burst_interval_seconds"}, "ESIM_BURST_INTERVAL_SECONDS")
		},
		func() error {
			return setInt([]string{"provider", "poll_interval_seconds"}, "ESIM_POLL_INTERVAL_SECONDS")
		},
		func() error { return setInt([]string{"provider", "max_poll_attempts"}, "ESIM_MAX_POLL_ATTEMPTS") },
		func() error {
			return setInt([]string{"provider", "request_timeout_seconds"}, "ESIM_REQUEST_TIMEOUT_SECONDS")
		},
		func() error { return setInt([]string{"ledger", "retention_minutes"}, "LEDGER_RETENTION_MINUTES") },
		func() error {
			return setInt([]string{"ledger", "sweep_interval_minutes"}, "LEDGER_SWEEP_INTERVAL_MINUTES")
		},
		func() error { return setString([]string{"admin", "username"}, "ADMIN_USERNAME") },
		func() error { return setString([]string{"admin", "password"}, "ADMIN_PASSWORD") },
		func() error { return setString([]string{"stats", "driver"}, "STATS_DRIVER") },
		func() error { return setString([]string{"stats", "dsn"}, "STATS_DSN") },
		func() error {
			return setInt([]string{"stats", "flush_interval_seconds"}, "STATS_FLUSH_INTERVAL_SECONDS")
		},
	}
	for _, bind := range bindings {
		if err := bind(); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

func putNested(target map[string]any, path []string, value any) {
	current := target
	for i, segment := range path {
		if i == len(path)-1 {
			current[segment] = value
			return
		}
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[segment] = next
		}
		current = next
	}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || strings.TrimSpace(cfg.LogLevel) != "" {
		layer["log_level"] = cfg.LogLevel
	}
	if includeZero || cfg.Server.Port != 0 {
		layer["server"] = map[string]any{"port": cfg.Server.Port}
	}
	if includeZero || strings.TrimSpace(cfg.Sellauth.Secret) != "" {
		layer["sellauth"] = map[string]any{"secret": cfg.Sellauth.Secret}
	}
	provider := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Provider.AccessCode) != "" {
		provider["access_code"] = cfg.Provider.AccessCode
	}
	if includeZero || strings.TrimSpace(cfg.Provider.BaseURL) != "" {
		provider["base_url"] = cfg.Provider.BaseURL
	}
	if includeZero || cfg.Provider.BurstPolls != 0 {
		provider["burst_polls"] = cfg.Provider.BurstPolls
	}
	if includeZero || cfg.Provider.BurstIntervalSeconds != 0 {
		provider["burst_interval_seconds"] = cfg.Provider.BurstIntervalSeconds
	}
	if includeZero || cfg.Provider.PollIntervalSeconds != 0 {
		provider["poll_interval_seconds"] = cfg.Provider.PollIntervalSeconds
	}
	if includeZero || cfg.Provider.MaxPollAttempts != 0 {
		provider["max_poll_attempts"] = cfg.Provider.MaxPollAttempts
	}
	if includeZero || cfg.Provider.RequestTimeoutSeconds != 0 {
		provider["request_timeout_seconds"] = cfg.Provider.RequestTimeoutSeconds
	}
	if len(provider) > 0 {
		layer["provider"] = provider
	}
	ledger := map[string]any{}
	if includeZero || cfg.Ledger.RetentionMinutes != 0 {
		ledger["retention_minutes"] = cfg.Ledger.RetentionMinutes
	}
	if includeZero || cfg.Ledger.SweepIntervalMinutes != 0 {
		ledger["sweep_interval_minutes"] = cfg.Ledger.SweepIntervalMinutes
	}
	if len(ledger) > 0 {
		layer["ledger"] = ledger
	}
	admin := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Admin.Username) != "" {
		admin["username"] = cfg.Admin.Username
	}
	if includeZero || strings.TrimSpace(cfg.Admin.Password) != "" {
		admin["password"] = cfg.Admin.Password
	}
	if len(admin) > 0 {
		layer["admin"] = admin
	}
	stats := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Stats.Driver) != "" {
		stats["driver"] = cfg.Stats.Driver
	}
	if includeZero || strings.TrimSpace(cfg.Stats.DSN) != "" {
		stats["dsn"] = cfg.Stats.DSN
	}
	if includeZero || cfg.Stats.FlushIntervalSeconds != 0 {
		stats["flush_interval_seconds"] = cfg.Stats.FlushIntervalSeconds
	}
	if len(stats) > 0 {
		layer["stats"] = stats
	}
	return layer
}
