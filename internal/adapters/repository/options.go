package repository

import (
	"github.com/okian/calcutta/internal/domain/dedupe"
	"github.com/okian/calcutta/pkg/logger"
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithDeduper replaces the history key index.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *MemoryStore) {
		if d != nil {
			s.historyKeys = d
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *MemoryStore) {
		if l != nil {
			s.log = l
		}
	}
}
