package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment names read by Load.
const (
	EnvPrefix  = "CALCUTTA_"
	EnvFile    = "CALCUTTA_CONFIG"
	DotEnvPath = ".env"
)

// listKeys are the config keys whose environment value is a list.
var listKeys = map[string]struct{}{"reference_years": {}} //nolint:gochecknoglobals // lookup table

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load builds a validated Config by layering, low to high precedence:
//  1. defaults (New)
//  2. YAML file named by CALCUTTA_CONFIG
//  3. .env in the working directory, which only fills unset variables
//  4. CALCUTTA_* environment variables
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, DotEnvPath)
}

// LoadFrom is Load with an explicit dotenv path; an empty path skips it.
func LoadFrom(ctx context.Context, dotenv string) (*Config, error) {
	base := New(ctx)
	k := koanf.New(".")

	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, dotenv, err)
		}
	}

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// CALCUTTA_QUEUE_SIZE -> queue_size; underscores are kept to match the
	// flat koanf tags. List keys take comma separated values.
	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(EnvPrefix))
		if _, ok := listKeys[key]; ok {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
