package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/petgotchi/petgotchi/internal/adapters/repository/sqlite"
	"github.com/petgotchi/petgotchi/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestBuild(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		ctx := context.Background()
		cfg := config.New()

		convey.Convey("When the engine is built without a database path", func() {
			svc, closeStore, err := build(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer closeStore()

			convey.Convey("Then it serves the API and the docs on one mux", func() {
				mux := newMux(ctx, svc)

				for _, path := range []string{"/healthz", "/stats", "/openapi.yaml", "/api-docs"} {
					w := httptest.NewRecorder()
					mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
					convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				}

				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users",
					strings.NewReader(`{"github_id":1,"username":"octo"}`)))
				convey.So(w.Code, convey.ShouldEqual, http.StatusCreated)
			})
		})

		convey.Convey("When the engine is built over sqlite", func() {
			cfg.DBPath = filepath.Join(t.TempDir(), "pets.db")
			svc, closeStore, err := build(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the service runs on the sqlite store", func() {
				_, ok := svc.Store().(*sqlite.Store)
				convey.So(ok, convey.ShouldBeTrue)

				res, err := svc.RunBatch(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Selected, convey.ShouldEqual, 0)
				closeStore()
			})
		})
	})
}
