package pot

import "github.com/okian/calcutta/pkg/logger"

// DefaultReferenceYears are the years whose total pots are averaged.
var DefaultReferenceYears = []int{2019, 2022, 2023}

// Option configures an Estimator.
type Option func(*Estimator)

// WithReferenceYears replaces the reference-year allow-list.
func WithReferenceYears(years ...int) Option {
	return func(e *Estimator) {
		if len(years) > 0 {
			e.referenceYears = append([]int(nil), years...)
		}
	}
}

// WithLogger sets the estimator logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Estimator) {
		if l != nil {
			e.log = l
		}
	}
}
