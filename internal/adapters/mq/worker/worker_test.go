package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/calcutta/internal/adapters/mq/queue"
	"github.com/okian/calcutta/internal/adapters/mq/worker"
	"github.com/okian/calcutta/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type recordingTarget struct {
	mu      sync.Mutex
	seen    []string
	running int
	overlap bool
	fail    map[string]error
	delay   time.Duration
}

func (r *recordingTarget) Rebuild(_ context.Context, req model.RebuildRequest) error {
	r.mu.Lock()
	r.running++
	if r.running > 1 {
		r.overlap = true
	}
	r.mu.Unlock()

	time.Sleep(r.delay)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.running--
	r.seen = append(r.seen, req.ID)
	return r.fail[req.ID]
}

func (r *recordingTarget) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestRebuilder(t *testing.T) {
	Convey("Given a rebuilder draining a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		target := &recordingTarget{
			fail:  map[string]error{"bad": errors.New("boom")},
			delay: 2 * time.Millisecond,
		}
		w := worker.NewRebuilder(q, target, worker.WithName("test-rebuilder"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		Convey("When requests arrive", func() {
			for _, id := range []string{"a", "bad", "b"} {
				So(q.Enqueue(ctx, model.RebuildRequest{ID: id, RequestedAt: time.Now()}), ShouldBeTrue)
			}

			Convey("Then each is handled in order, failures included, without overlap", func() {
				So(waitFor(func() bool { return len(target.ids()) == 3 }), ShouldBeTrue)
				So(target.ids(), ShouldResemble, []string{"a", "bad", "b"})
				So(target.overlap, ShouldBeFalse)
			})
		})

		Convey("When shut down", func() {
			So(w.Shutdown(context.Background()), ShouldBeNil)

			Convey("Then Run has returned and a second shutdown is harmless", func() {
				select {
				case <-w.Done():
				default:
					So("worker still running", ShouldBeEmpty)
				}
				So(w.Shutdown(context.Background()), ShouldBeNil)
			})
		})

		Convey("When the queue closes", func() {
			So(q.Close(), ShouldBeNil)
			So(waitFor(func() bool {
				select {
				case <-w.Done():
					return true
				default:
					return false
				}
			}), ShouldBeTrue)
		})
	})
}

func TestTargetFunc(t *testing.T) {
	Convey("TargetFunc forwards the request", t, func() {
		var got string
		f := worker.TargetFunc(func(_ context.Context, req model.RebuildRequest) error {
			got = req.Reason
			return nil
		})
		So(f.Rebuild(context.Background(), model.RebuildRequest{Reason: "teams"}), ShouldBeNil)
		So(got, ShouldEqual, "teams")
	})
}
