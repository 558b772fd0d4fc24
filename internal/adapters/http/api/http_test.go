package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/calcutta/internal/adapters/http/api"
	service "github.com/okian/calcutta/internal/app"
	"github.com/okian/calcutta/internal/domain/bracket"
	"github.com/okian/calcutta/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func fullField() []model.Team {
	var teams []model.Team
	add := func(id, region string, seed int, pkg model.Package) {
		s := float64(17 - seed)
		stats := map[string]float64{}
		for _, name := range []string{
			model.StatWins, model.StatLosses, model.StatAdjEfficiencyMargin,
			model.StatAdjOffensiveEfficiency, model.StatAdjDefensiveEfficiency, model.StatAdjTempo,
			model.StatLuck, model.StatStrengthOfSchedule, model.StatOppOffensiveEfficiency,
			model.StatOppDefensiveEfficiency, model.StatNonConfSOS,
		} {
			stats[name] = s
		}
		p := s / 16
		teams = append(teams, model.Team{
			ID: id, Name: id, Seed: seed, Region: region, Package: pkg, Stats: stats,
			Odds: map[model.Round]float64{
				model.Round64: 1, model.Round32: p, model.Sweet16: p / 2, model.Elite8: p / 4,
				model.FinalFour: p / 8, model.Final: p / 16, model.Champion: p / 32,
			},
		})
	}
	season := bracket.DefaultSeason()
	isPlayIn := func(region string, seed int) bool {
		for _, p := range season.PlayIns {
			if p.Region == region && p.Seed == seed {
				return true
			}
		}
		return false
	}
	for _, region := range season.Regions {
		for seed := 1; seed <= 16; seed++ {
			pkg := model.PackageNone
			if isPlayIn(region, seed) {
				pkg = model.PackagePlayIn
				add(fmt.Sprintf("%s-%02d-b", region, seed), region, seed, pkg)
			}
			add(fmt.Sprintf("%s-%02d", region, seed), region, seed, pkg)
		}
	}
	return teams
}

func history() []model.HistoryRecord {
	var records []model.HistoryRecord
	for _, year := range []int{2019, 2022, 2023} {
		for seed := 1; seed <= 16; seed++ {
			records = append(records, model.HistoryRecord{
				Name: fmt.Sprintf("team %c", 'a'+seed), Seed: seed, Price: 10, Year: year,
			})
		}
	}
	return records
}

func newMux(t *testing.T) *http.ServeMux {
	t.Helper()
	svc, err := service.New()
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })

	mux := http.NewServeMux()
	api.NewServer(svc).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	_ = json.Unmarshal(w.Body.Bytes(), &v)
	return v
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func TestServer_Routes(t *testing.T) {
	Convey("Given a server over a fresh service", t, func() {
		mux := newMux(t)

		Convey("Then health serves the metrics registry", func() {
			w := do(mux, http.MethodGet, "/healthz", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats are JSON", func() {
			w := do(mux, http.MethodGet, "/stats", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[map[string]any](w)["started"], ShouldEqual, true)
		})

		Convey("Then unknown teams are 404 with the error envelope", func() {
			w := do(mux, http.MethodGet, "/teams/nobody", nil)
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode[errorBody](w).Code, ShouldEqual, "not_found")
		})

		Convey("Then wrong methods are rejected by the mux", func() {
			w := do(mux, http.MethodDelete, "/teams", nil)
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Then malformed bodies are 400", func() {
			req := httptest.NewRequest(http.MethodPut, "/teams", bytes.NewBufferString("{"))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[errorBody](w).Code, ShouldEqual, "bad_request")
		})

		Convey("Then invalid records are 422", func() {
			teams := fullField()[:1]
			teams[0].Seed = 20
			w := do(mux, http.MethodPut, "/teams", map[string]any{"teams": teams})
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(decode[errorBody](w).Code, ShouldEqual, "data_shape")
		})

		Convey("Then views without data report unavailable with 200", func() {
			w := do(mux, http.MethodGet, "/valuation", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			v := decode[service.ValuationView](w)
			So(v.Unavailable, ShouldNotBeNil)
			So(v.Unavailable.Kind, ShouldEqual, "insufficient_data")
		})
	})
}

func TestServer_AuctionFlow(t *testing.T) {
	Convey("Given a server with teams and history loaded", t, func() {
		mux := newMux(t)
		w := do(mux, http.MethodPut, "/teams", map[string]any{"teams": fullField()})
		So(w.Code, ShouldEqual, http.StatusOK)
		So(decode[service.RefreshResult](w).Upserted, ShouldEqual, 68)

		w = do(mux, http.MethodPost, "/history", map[string]any{"records": history()})
		So(w.Code, ShouldEqual, http.StatusOK)
		So(decode[service.HistoryResult](w).Added, ShouldEqual, 48)

		Convey("When re-posting the same history", func() {
			w := do(mux, http.MethodPost, "/history", map[string]any{"records": history()})
			So(decode[service.HistoryResult](w), ShouldResemble, service.HistoryResult{Duplicates: 48})
		})

		Convey("When a lot goes live and sells", func() {
			w := do(mux, http.MethodPost, "/lots/single:east-02/live", nil)
			So(w.Code, ShouldEqual, http.StatusOK)

			w = do(mux, http.MethodPost, "/lots/single:east-02/sale", map[string]any{"price": 300, "owned": true})
			So(w.Code, ShouldEqual, http.StatusOK)

			Convey("Then the team carries the sale", func() {
				w := do(mux, http.MethodGet, "/teams/east-02", nil)
				tm := decode[service.TeamDetail](w)
				So(tm.Sold, ShouldBeTrue)
				So(*tm.Price, ShouldEqual, 300)
			})

			Convey("Then a second sale conflicts", func() {
				w := do(mux, http.MethodPost, "/lots/single:east-02/sale", map[string]any{"price": 1})
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decode[errorBody](w).Code, ShouldEqual, "lot_sold")
			})

			Convey("Then matchups include owned value", func() {
				w := do(mux, http.MethodGet, "/matchups", nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				m := decode[service.MatchupView](w)
				So(m.Unavailable, ShouldBeNil)
				So(m.OwnedTotal, ShouldBeGreaterThan, 0)
				So(len(m.Nodes), ShouldEqual, 67)
			})
		})

		Convey("When a sale has no price", func() {
			w := do(mux, http.MethodPost, "/lots/single:east-02/sale", map[string]any{"owned": true})
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the lot does not exist", func() {
			w := do(mux, http.MethodPost, "/lots/single:ghost/live", nil)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When ranks are rebuilt synchronously", func() {
			w := do(mux, http.MethodPost, "/ranks/rebuild", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[map[string]any](w)["teams"], ShouldEqual, float64(68))
		})

		Convey("When a rebuild is requested asynchronously", func() {
			w := do(mux, http.MethodPost, "/ranks/rebuild?async=true", nil)
			So(w.Code, ShouldEqual, http.StatusAccepted)

			w = do(mux, http.MethodPost, "/ranks/rebuild?async=maybe", nil)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When lots are listed", func() {
			w := do(mux, http.MethodGet, "/lots", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			lots := decode[struct {
				Lots []model.Lot `json:"lots"`
			}](w).Lots
			// one lot per slot below seed 14 plus a high-seed pool per region
			So(len(lots), ShouldEqual, 4*13+4)
		})
	})
}

type fakeValuation struct{ err error }

func (f fakeValuation) Valuation(context.Context) (service.ValuationView, error) {
	return service.ValuationView{}, f.err
}

func (f fakeValuation) Matchups(context.Context) (service.MatchupView, error) {
	return service.MatchupView{}, f.err
}

func TestValuationHandler_Errors(t *testing.T) {
	Convey("Given a valuation source that fails", t, func() {
		cases := []struct {
			err    error
			status int
		}{
			{errors.New("db down"), http.StatusInternalServerError},
			{context.DeadlineExceeded, http.StatusServiceUnavailable},
			{fmt.Errorf("wrapped: %w", model.ErrIntegrity), http.StatusConflict},
		}
		for _, c := range cases {
			h := api.NewValuationHandler(fakeValuation{err: c.err})
			w := httptest.NewRecorder()
			h.HandleValuation(w, httptest.NewRequest(http.MethodGet, "/valuation", nil))
			So(w.Code, ShouldEqual, c.status)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
		}
	})
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a wrapped handler that writes a status", t, func() {
		h := api.MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}, "test")
		w := httptest.NewRecorder()
		start := time.Now()
		h(w, httptest.NewRequest(http.MethodGet, "/", nil))

		Convey("Then the status passes through", func() {
			So(w.Code, ShouldEqual, http.StatusTeapot)
			So(time.Since(start), ShouldBeLessThan, time.Second)
		})
	})
}
