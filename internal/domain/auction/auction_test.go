package auction_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/calcutta/internal/domain/auction"
	"github.com/okian/calcutta/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func teams() []model.Team {
	return []model.Team{
		{ID: "duke", Seed: 1, Region: "north"},
		{ID: "gonzaga", Seed: 1, Region: "east"},
		{ID: "a14", Seed: 14, Region: "north"},
		{ID: "a15", Seed: 15, Region: "north"},
		{ID: "a16", Seed: 16, Region: "north", Package: model.PackagePlayIn},
		{ID: "b16", Seed: 16, Region: "north", Package: model.PackagePlayIn},
		{ID: "p11a", Seed: 11, Region: "west", Package: model.PackagePlayIn},
		{ID: "p11b", Seed: 11, Region: "West", Package: model.PackagePlayIn},
		{ID: "bubble", Seed: 0},
	}
}

func apply(ts []model.Team, changes []model.AuctionChange) []model.Team {
	out := make([]model.Team, len(ts))
	for i, t := range ts {
		out[i] = t
		for _, c := range changes {
			if c.TeamID == t.ID {
				out[i] = c.Apply(t)
			}
		}
	}
	return out
}

func liveIDs(ts []model.Team) []string {
	var ids []string
	for _, t := range ts {
		if t.Live {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

func TestBuildLots(t *testing.T) {
	Convey("Given a mixed field", t, func() {
		lots := auction.BuildLots(teams())
		byID := map[string]model.Lot{}
		for _, l := range lots {
			byID[l.ID] = l
		}

		Convey("Then single teams get their own lot", func() {
			So(byID["single:duke"].TeamIDs, ShouldResemble, []string{"duke"})
			So(byID["single:duke"].Kind, ShouldEqual, model.LotSingle)
		})

		Convey("Then seeds 14 and above pool per region, play-in sixteens included", func() {
			hs := byID["high-seed:north"]
			So(hs.Kind, ShouldEqual, model.LotHighSeed)
			So(hs.TeamIDs, ShouldResemble, []string{"a14", "a15", "a16", "b16"})
			So(hs.Seeds, ShouldResemble, []int{14, 15, 16})
		})

		Convey("Then mid-seed play-in pairs form one lot across label casing", func() {
			pi := byID["playin:west:11"]
			So(pi.Kind, ShouldEqual, model.LotPlayIn)
			So(pi.TeamIDs, ShouldResemble, []string{"p11a", "p11b"})
		})

		Convey("Then unseeded teams are not auctioned and order is by seed", func() {
			So(len(lots), ShouldEqual, 4)
			So(lots[0].Seeds[0], ShouldEqual, 1)
			So(lots[len(lots)-1].ID, ShouldEqual, "high-seed:north")
		})
	})
}

func TestMakeLive(t *testing.T) {
	Convey("Given a lot already live", t, func() {
		ts := teams()
		changes, err := auction.MakeLive(ts, "single:duke")
		So(err, ShouldBeNil)
		ts = apply(ts, changes)
		So(liveIDs(ts), ShouldResemble, []string{"duke"})

		Convey("When another lot goes live", func() {
			changes, err := auction.MakeLive(ts, "high-seed:north")
			So(err, ShouldBeNil)
			ts = apply(ts, changes)

			Convey("Then the previous live team is cleared in the same change set", func() {
				So(liveIDs(ts), ShouldResemble, []string{"a14", "a15", "a16", "b16"})
				So(len(changes), ShouldEqual, 5)
			})
		})

		Convey("When the same lot goes live again", func() {
			changes, err := auction.MakeLive(ts, "single:duke")
			So(err, ShouldBeNil)
			So(changes, ShouldBeEmpty)
		})

		Convey("When the lot is unknown", func() {
			_, err := auction.MakeLive(ts, "single:nobody")
			So(errors.Is(err, auction.ErrLotNotFound), ShouldBeTrue)
		})
	})
}

func TestRecordSale(t *testing.T) {
	Convey("Given the pooled high-seed lot is live", t, func() {
		ts := teams()
		changes, _ := auction.MakeLive(ts, "high-seed:north")
		ts = apply(ts, changes)

		Convey("When it sells for 200", func() {
			changes, err := auction.RecordSale(ts, "high-seed:north", 200, true)
			So(err, ShouldBeNil)
			ts = apply(ts, changes)

			Convey("Then the price splits evenly and nothing stays live", func() {
				for _, tm := range ts {
					if tm.Seed >= 14 {
						So(tm.Sold, ShouldBeTrue)
						So(tm.Owned, ShouldBeTrue)
						So(*tm.Price, ShouldEqual, 50)
						So(tm.Validate(), ShouldBeNil)
					}
				}
				So(liveIDs(ts), ShouldBeEmpty)
			})

			Convey("Then the lot cannot sell or go live again", func() {
				_, err := auction.RecordSale(ts, "high-seed:north", 10, false)
				So(errors.Is(err, auction.ErrLotSold), ShouldBeTrue)
				_, err = auction.MakeLive(ts, "high-seed:north")
				So(errors.Is(err, auction.ErrLotSold), ShouldBeTrue)
				So(auction.BuildLots(ts)[3].Sold, ShouldBeTrue)
			})
		})

		Convey("When the price is invalid", func() {
			_, err := auction.RecordSale(ts, "high-seed:north", -1, false)
			So(errors.Is(err, auction.ErrInvalidPrice), ShouldBeTrue)
			So(errors.Is(err, model.ErrDataShape), ShouldBeTrue)
		})
	})
}

func TestLocalLocker(t *testing.T) {
	Convey("Given a local locker", t, func() {
		l := auction.NewLocalLocker()
		ctx := context.Background()

		Convey("When the key is held", func() {
			release, err := l.Acquire(ctx, "auction", time.Second)
			So(err, ShouldBeNil)

			Convey("Then a second acquirer times out", func() {
				tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
				defer cancel()
				_, err := l.Acquire(tctx, "auction", time.Second)
				So(errors.Is(err, auction.ErrLockTimeout), ShouldBeTrue)
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			})

			Convey("Then other keys are independent", func() {
				r2, err := l.Acquire(ctx, "other", time.Second)
				So(err, ShouldBeNil)
				r2()
			})

			Convey("Then release lets the next acquirer in and is idempotent", func() {
				release()
				release()
				r2, err := l.Acquire(ctx, "auction", time.Second)
				So(err, ShouldBeNil)
				r2()
			})
		})
	})
}

func TestLocalLockerExclusion(t *testing.T) {
	l := auction.NewLocalLocker()
	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "k", time.Second)
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			release()
		}()
	}
	wg.Wait()
	if maxInside.Load() != 1 {
		t.Fatalf("expected exclusive access, saw %d holders", maxInside.Load())
	}
}
