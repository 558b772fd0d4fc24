package service

import (
	"time"

	"github.com/okian/calcutta/internal/adapters/repository"
	"github.com/okian/calcutta/internal/domain/auction"
	"github.com/okian/calcutta/internal/domain/bracket"
	"github.com/okian/calcutta/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend. The service closes it on Stop.
func WithStore(s repository.Store) Option {
	return func(svc *Service) {
		if s != nil {
			svc.store = s
		}
	}
}

// WithSeason sets the bracket layout and payout table.
func WithSeason(season bracket.Season) Option {
	return func(svc *Service) {
		svc.season = season
	}
}

// WithReferenceYears sets the years averaged into the total pot.
func WithReferenceYears(years ...int) Option {
	return func(svc *Service) {
		if len(years) > 0 {
			svc.referenceYears = years
		}
	}
}

// WithLocker replaces the in-process auction lock.
func WithLocker(l auction.Locker) Option {
	return func(svc *Service) {
		if l != nil {
			svc.locker = l
		}
	}
}

// WithLockTTL bounds how long a crashed holder can keep the auction lock.
func WithLockTTL(d time.Duration) Option {
	return func(svc *Service) {
		if d > 0 {
			svc.lockTTL = d
		}
	}
}

// WithLockWait bounds how long a transition waits for the auction lock.
func WithLockWait(d time.Duration) Option {
	return func(svc *Service) {
		if d > 0 {
			svc.lockWait = d
		}
	}
}

// WithQueueSize sets how many rebuild requests may be pending.
func WithQueueSize(size int) Option {
	return func(svc *Service) {
		if size > 0 {
			svc.queueSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}
