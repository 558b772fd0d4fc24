package config

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig marks a configuration that loaded but cannot run.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig marks a source (file, .env, environment) that could not be read.
	ErrLoadConfig = errors.New("load config failed")
	// ErrUnknownStore is returned for a store backend other than memory or postgres.
	ErrUnknownStore = fmt.Errorf("%w: unknown store", ErrInvalidConfig)
)
