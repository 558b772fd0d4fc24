package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/okian/calcutta/internal/domain/auction"
	. "github.com/smartystreets/goconvey/convey"
)

// Runs against a real server when CALCUTTA_TEST_REDIS_ADDR is set.
func TestLockManager(t *testing.T) {
	addr := os.Getenv("CALCUTTA_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CALCUTTA_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := New(ctx, ClientConfig{Addr: addr})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	Convey("Given a lock manager with a unique prefix", t, func() {
		lm := NewLockManager(client, WithKeyPrefix("test:"+uuid.NewString()+":"), WithRetryInterval(5*time.Millisecond))

		release, err := lm.Acquire(ctx, "auction", time.Second)
		So(err, ShouldBeNil)

		Convey("Then a second holder waits until its context expires", func() {
			tctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			_, err := lm.Acquire(tctx, "auction", time.Second)
			So(errors.Is(err, auction.ErrLockTimeout), ShouldBeTrue)
			release()
		})

		Convey("Then release hands the key over", func() {
			release()
			release()
			r2, err := lm.Acquire(ctx, "auction", time.Second)
			So(err, ShouldBeNil)
			r2()
		})

		Convey("Then an expired lock can be taken again", func() {
			short, err := lm.Acquire(ctx, "short", 20*time.Millisecond)
			So(err, ShouldBeNil)
			time.Sleep(40 * time.Millisecond)
			r2, err := lm.Acquire(ctx, "short", time.Second)
			So(err, ShouldBeNil)
			short() // stale token must not delete the new holder's key
			tctx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
			defer cancel()
			_, err = lm.Acquire(tctx, "short", time.Second)
			So(errors.Is(err, auction.ErrLockTimeout), ShouldBeTrue)
			r2()
			release()
		})
	})
}
