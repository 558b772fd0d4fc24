// Package worker runs rank rebuilds requested through the queue.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/calcutta/internal/domain/model"
	"github.com/okian/calcutta/pkg/logger"
	"github.com/okian/calcutta/pkg/metrics"
)

// Queue defines how the worker receives requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.RebuildRequest
}

// Target performs one rebuild.
type Target interface {
	Rebuild(ctx context.Context, req model.RebuildRequest) error
}

// TargetFunc adapts a function to Target.
type TargetFunc func(ctx context.Context, req model.RebuildRequest) error

// Rebuild calls f.
func (f TargetFunc) Rebuild(ctx context.Context, req model.RebuildRequest) error {
	return f(ctx, req)
}

// Rebuilder is a single worker, so rebuilds never overlap.
type Rebuilder struct {
	queue  Queue
	target Target
	name   string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewRebuilder creates a worker reading from q and calling target.
func NewRebuilder(q Queue, target Target, opts ...Option) *Rebuilder {
	w := &Rebuilder{
		queue:    q,
		target:   target,
		name:     "rank-rebuilder",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes requests until ctx ends, Shutdown is called or the queue
// closes.
func (w *Rebuilder) Run(ctx context.Context) {
	defer close(w.done)

	requests := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			w.process(ctx, req)
		}
	}
}

// Shutdown signals the worker and waits for the in-flight rebuild to finish.
func (w *Rebuilder) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *Rebuilder) Done() <-chan struct{} {
	return w.done
}

func (w *Rebuilder) process(ctx context.Context, req model.RebuildRequest) {
	start := time.Now()
	if err := w.target.Rebuild(ctx, req); err != nil {
		metrics.RecordErrorByComponent("worker", model.Kind(err))
		w.logger.Error(ctx, "rank rebuild failed",
			logger.String("request_id", req.ID),
			logger.String("reason", req.Reason),
			logger.Error(err),
		)
		return
	}
	w.logger.Debug(ctx, "rank rebuild done",
		logger.String("request_id", req.ID),
		logger.String("reason", req.Reason),
		logger.Duration("took", time.Since(start)),
		logger.Duration("waited", start.Sub(req.RequestedAt)),
	)
}
