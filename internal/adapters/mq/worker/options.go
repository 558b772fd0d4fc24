package worker

import (
	"github.com/okian/calcutta/pkg/logger"
)

// Option applies a configuration option to the Rebuilder.
type Option func(*Rebuilder)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *Rebuilder) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Rebuilder) {
		if l != nil {
			w.logger = l
		}
	}
}
