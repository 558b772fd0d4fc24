package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/calcutta/internal/adapters/http/api"
	"github.com/okian/calcutta/internal/adapters/http/swagger"
	"github.com/okian/calcutta/internal/config"
	"github.com/okian/calcutta/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestBuildService(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		log := logger.Nop()

		convey.Convey("When the memory store is selected", func() {
			store, err := openStore(ctx, cfg, log)
			convey.So(err, convey.ShouldBeNil)

			svc, cleanup, err := buildService(ctx, cfg, log, store)
			convey.So(err, convey.ShouldBeNil)
			defer cleanup()
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()

			convey.Convey("Then the full mux serves API and docs routes", func() {
				mux := http.NewServeMux()
				swagger.Register(ctx, mux)
				api.NewServer(svc).Register(ctx, mux)

				for _, path := range []string{"/healthz", "/stats", "/teams", "/lots", "/openapi.yaml", "/api-docs"} {
					w := httptest.NewRecorder()
					mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
					convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				}
			})

			convey.Convey("Then service metrics update without panicking", func() {
				convey.So(func() { updateServiceMetrics(ctx, svc) }, convey.ShouldNotPanic)

				tctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
				defer cancel()
				convey.So(func() { startServiceMetricsUpdater(tctx, svc) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When the shipped season file is configured", func() {
			cfg.SeasonFile = filepath.Join("..", "configs", "season.toml")

			store, _ := openStore(ctx, cfg, log)
			svc, cleanup, err := buildService(ctx, cfg, log, store)
			convey.So(err, convey.ShouldBeNil)
			defer cleanup()

			convey.Convey("Then the topology uses it", func() {
				convey.So(svc.Topology().Season().Name, convey.ShouldEqual, "2026")
				convey.So(svc.Topology().Regions(), convey.ShouldResemble, []string{"north", "east", "west", "south"})
			})
		})

		convey.Convey("When the season file is missing", func() {
			cfg.SeasonFile = filepath.Join(t.TempDir(), "absent.toml")
			store, _ := openStore(ctx, cfg, log)
			_, _, err := buildService(ctx, cfg, log, store)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "load season")
		})

		convey.Convey("When the postgres store cannot be reached", func() {
			cfg.Store = config.StorePostgres
			cfg.PostgresDSN = "postgres://invalid host:0/none"
			_, err := openStore(ctx, cfg, log)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
