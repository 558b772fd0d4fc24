package pot_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/okian/calcutta/internal/domain/model"
	"github.com/okian/calcutta/internal/domain/pot"
	. "github.com/smartystreets/goconvey/convey"
)

func rec(name string, seed int, price float64, year int) model.HistoryRecord {
	return model.HistoryRecord{Name: name, Seed: seed, Price: price, Year: year}
}

func TestAverageTotalPot(t *testing.T) {
	Convey("Given three reference years with pots 1000, 1200 and 1100", t, func() {
		history := []model.HistoryRecord{
			rec("alpha", 1, 600, 2019), rec("beta", 2, 400, 2019),
			rec("alpha", 1, 700, 2022), rec("beta", 2, 500, 2022),
			rec("alpha", 1, 1100, 2023),
			rec("alpha", 1, 9000, 2018), // outside the allow-list
		}
		est, err := pot.NewEstimator().Estimate(context.Background(), history)

		Convey("Then the average is 1100", func() {
			So(err, ShouldBeNil)
			So(est.AverageTotalPot, ShouldEqual, 1100)
			So(est.ReferenceYears, ShouldResemble, []int{2019, 2022, 2023})
		})

		Convey("Then every year has a total, the first record counted once", func() {
			So(est.TotalPotByYear[2019], ShouldEqual, 1000)
			So(est.TotalPotByYear[2018], ShouldEqual, 9000)
		})

		Convey("Then shares average across all years, not only reference years", func() {
			So(est.ShareYears, ShouldResemble, []int{2018, 2019, 2022, 2023})
			// seed 1 share per year: 1, 0.6, 7/12, 1
			So(est.ShareBySeed[1], ShouldAlmostEqual, (1+0.6+7.0/12+1)/4, 1e-12)
		})
	})

	Convey("Given a custom reference-year list with one missing year", t, func() {
		history := []model.HistoryRecord{rec("a", 1, 100, 2021), rec("a", 1, 300, 2024)}
		est, err := pot.NewEstimator(pot.WithReferenceYears(2021, 2024, 2025)).Estimate(context.Background(), history)

		Convey("Then only present reference years form the mean", func() {
			So(err, ShouldBeNil)
			So(est.AverageTotalPot, ShouldEqual, 200)
			So(est.ReferenceYears, ShouldResemble, []int{2021, 2024})
		})
	})
}

func TestShareBySeed(t *testing.T) {
	Convey("Given a year with spend across seeds and the high-seed group", t, func() {
		history := []model.HistoryRecord{
			rec("a", 1, 500, 2023),
			rec("b", 5, 200, 2023),
			rec("c", 14, 100, 2023),
			rec("d", 15, 100, 2023),
			rec("e", 16, 100, 2023),
		}
		est, err := pot.NewEstimator().Estimate(context.Background(), history)
		So(err, ShouldBeNil)

		Convey("Then every group key is present, zero for no spend", func() {
			shares := est.ShareByYear[2023]
			So(len(shares), ShouldEqual, 14)
			So(shares[2], ShouldEqual, 0)
			So(shares[14], ShouldAlmostEqual, 0.3, 1e-12)
		})

		Convey("Then a complete year's shares sum to 1", func() {
			sum := 0.0
			for _, v := range est.ShareByYear[2023] {
				sum += v
			}
			So(sum, ShouldAlmostEqual, 1.0, 1e-9)
		})
	})

	Convey("Given a seed absent in one of two years", t, func() {
		history := []model.HistoryRecord{
			rec("a", 1, 50, 2022), rec("b", 3, 50, 2022),
			rec("a", 1, 100, 2023),
		}
		est, err := pot.NewEstimator().Estimate(context.Background(), history)
		So(err, ShouldBeNil)

		Convey("Then the denominator still counts both years", func() {
			So(est.ShareBySeed[3], ShouldAlmostEqual, 0.25, 1e-12)
			So(est.ShareBySeed[1], ShouldAlmostEqual, 0.75, 1e-12)
		})
	})
}

func TestEstimatorGuards(t *testing.T) {
	Convey("Given problematic history", t, func() {
		e := pot.NewEstimator()
		ctx := context.Background()

		Convey("When history is empty", func() {
			_, err := e.Estimate(ctx, nil)
			So(errors.Is(err, pot.ErrNoReferenceYears), ShouldBeTrue)
			So(errors.Is(err, model.ErrInsufficientData), ShouldBeTrue)
		})

		Convey("When no reference year is present", func() {
			_, err := e.Estimate(ctx, []model.HistoryRecord{rec("a", 1, 10, 2010)})
			So(errors.Is(err, pot.ErrNoReferenceYears), ShouldBeTrue)
		})

		Convey("When a year has a zero pot", func() {
			history := []model.HistoryRecord{rec("a", 1, 0, 2019), rec("a", 2, 100, 2022)}
			est, err := e.Estimate(ctx, history)

			Convey("Then it is skipped from the share mean and nothing is NaN", func() {
				So(err, ShouldBeNil)
				So(est.SkippedYears, ShouldResemble, []int{2019})
				So(est.ShareYears, ShouldResemble, []int{2022})
				for _, v := range est.ShareBySeed {
					So(math.IsNaN(v) || math.IsInf(v, 0), ShouldBeFalse)
				}
				So(est.ShareBySeed[2], ShouldEqual, 1)
				So(est.AverageTotalPot, ShouldEqual, 50)
			})
		})

		Convey("When every year has a zero pot", func() {
			_, err := e.Estimate(ctx, []model.HistoryRecord{rec("a", 1, 0, 2019)})
			So(errors.Is(err, pot.ErrNoUsableYears), ShouldBeTrue)
		})

		Convey("When a record is malformed", func() {
			_, err := e.Estimate(ctx, []model.HistoryRecord{rec("a", 0, 10, 2019)})
			So(errors.Is(err, pot.ErrInvalidRecord), ShouldBeTrue)
			So(errors.Is(err, model.ErrDataShape), ShouldBeTrue)

			_, err = e.Estimate(ctx, []model.HistoryRecord{rec("a", 1, -5, 2019)})
			So(errors.Is(err, pot.ErrInvalidRecord), ShouldBeTrue)
		})
	})
}
