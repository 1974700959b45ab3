// Package config loads engine configuration from environment variables,
// in the same koanf-plus-validator shape the teacher uses for its own
// AppConfig.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/nyxdns/adlistgen/internal/adlist/fetch"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	Log LoggingConfig `koanf:"log" validate:"required"`

	Fetch FetchConfig `koanf:"fetch" validate:"required"`

	Output OutputConfig `koanf:"output" validate:"required"`

	Journal JournalConfig `koanf:"journal" validate:"required"`
}

type LoggingConfig struct {
	// Level defines the logging level: "debug", "info", "warn", or "error".
	Level string `koanf:"level" validate:"required,oneof=debug info warn error"`
}

type FetchConfig struct {
	// Workers is validated to lie between 1 and fetch.MaxWorkers and is
	// logged at startup. The Fetcher does not read it: it always runs up to
	// fetch.MaxWorkers fetches at once.
	Workers int `koanf:"workers" validate:"required,gte=1,lte=16"`

	// TimeoutSeconds is validated to be at least 1. The default
	// HTTPTransport does not read it and uses its own fixed 30-second
	// per-request timeout.
	TimeoutSeconds int `koanf:"timeout" validate:"required,gte=1"`

	// BloomFPRate is the target false-positive rate for the merge-time
	// dedup accelerator.
	BloomFPRate float64 `koanf:"fprate" validate:"required,gt=0,lt=1"`
}

type OutputConfig struct {
	// BlocklistPath and AllowlistPath are the fixed output sinks; the core
	// treats them as opaque per spec §6.
	BlocklistPath string `koanf:"blocklist" validate:"required"`
	AllowlistPath string `koanf:"allowlist" validate:"required"`

	// Title appears on the regenerated header's title line.
	Title string `koanf:"title" validate:"required"`
}

type JournalConfig struct {
	// Path is the bbolt file backing the per-source fetch-outcome journal.
	Path string `koanf:"path" validate:"required"`
}

// DEFAULT_APP_CONFIG defines the default application configuration settings
// for the adlist aggregation engine.
var DEFAULT_APP_CONFIG = AppConfig{
	Env: "prod",
	Log: LoggingConfig{
		Level: "info",
	},
	Fetch: FetchConfig{
		Workers:        fetch.MaxWorkers,
		TimeoutSeconds: 30,
		BloomFPRate:    0.01,
	},
	Output: OutputConfig{
		BlocklistPath: "/var/lib/adlistgen/blocklist.txt",
		AllowlistPath: "/var/lib/adlistgen/allowlist.txt",
		Title:         "adlistgen aggregated list",
	},
	Journal: JournalConfig{
		Path: "/var/lib/adlistgen/journal.db",
	},
}

// envLoader loads environment variables with the prefix "ADLISTGEN_".
// It transforms keys to lowercase, removes the prefix, and replaces "_"
// with "." so nested struct fields map onto nested env var names.
// Mockable in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "ADLISTGEN_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, "ADLISTGEN_")), "_", ".")
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG into k via the structs provider.
// Mockable in tests.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation is a hook point for tests that want to force
// validator registration failures; production code never needs a custom
// validation tag here.
var registerValidation = func(v *validator.Validate) error {
	return nil
}

// Load parses environment variables and returns an AppConfig instance,
// applying defaults and running validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
