package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/petgotchi/petgotchi/internal/adapters/feed"
	"github.com/petgotchi/petgotchi/internal/adapters/http/api"
	"github.com/petgotchi/petgotchi/internal/adapters/repository"
	service "github.com/petgotchi/petgotchi/internal/app"
	"github.com/petgotchi/petgotchi/internal/domain/model"
	"github.com/petgotchi/petgotchi/internal/domain/prestige"
	. "github.com/smartystreets/goconvey/convey"
)

// failingDeps returns err from every call.
type failingDeps struct {
	err error
}

func (f failingDeps) RunBatch(context.Context) (service.BatchResult, error) {
	return service.BatchResult{}, f.err
}

func (f failingDeps) SyncUser(context.Context, string) (service.SyncResult, error) {
	return service.SyncResult{}, f.err
}

func (f failingDeps) RegisterUser(context.Context, int64, string, string) (model.User, error) {
	return model.User{}, f.err
}

func (f failingDeps) Adopt(context.Context, string, string, model.Difficulty) (model.Pet, error) {
	return model.Pet{}, f.err
}

func (f failingDeps) Retire(context.Context, string) (prestige.Retired, error) {
	return prestige.Retired{}, f.err
}

func (f failingDeps) GetPet(context.Context, string) (model.Pet, error) {
	return model.Pet{}, f.err
}

func (f failingDeps) HallOfFame(context.Context, string) ([]model.HallOfFameEntry, error) {
	return nil, f.err
}

func (f failingDeps) Notifications(context.Context, string, bool, bool) ([]model.Notification, error) {
	return nil, f.err
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps api.Dependencies, stats api.StatsProvider) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, stats).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder, v any) {
	So(json.NewDecoder(w.Body).Decode(v), ShouldBeNil)
}

func TestServer_Lifecycle(t *testing.T) {
	Convey("Given an API server over a real service", t, func() {
		now := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
		events := feed.NewStatic()
		svc := service.New(
			service.WithFeed(events),
			service.WithClock(func() time.Time { return now }),
			service.WithTokenKey([]byte("0123456789abcdef")),
		)
		mux := newMux(svc, svc)

		Convey("When a user registers and adopts a pet", func() {
			w := do(mux, http.MethodPost, "/users", `{"github_id":7,"username":"octo","token":"gho_x"}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			So(w.Body.String(), ShouldNotContainSubstring, "gho_x")
			var user model.User
			decode(w, &user)
			So(user.ID, ShouldNotBeEmpty)

			w = do(mux, http.MethodPost, "/pets", `{"user_id":"`+user.ID+`","name":"Pixel","difficulty":"hard"}`)
			So(w.Code, ShouldEqual, http.StatusCreated)

			Convey("Then the pet can be fetched with its derived fields", func() {
				w := do(mux, http.MethodGet, "/users/"+user.ID+"/pet", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var body map[string]any
				decode(w, &body)
				So(body["name"], ShouldEqual, "Pixel")
				So(body["difficulty"], ShouldEqual, "hard")
				So(body["stage_name"], ShouldEqual, "egg")
				So(body["level"], ShouldEqual, 0.0)
			})

			Convey("Then a second adoption conflicts", func() {
				w := do(mux, http.MethodPost, "/pets", `{"user_id":"`+user.ID+`","name":"Again"}`)
				So(w.Code, ShouldEqual, http.StatusConflict)
			})

			Convey("Then an on-demand sync scores the user's activity", func() {
				events.Add("octo", model.Event{ID: "e1", Kind: model.EventPullRequestMerged, CreatedAt: now.Add(-time.Minute)})
				w := do(mux, http.MethodPost, "/users/"+user.ID+"/sync", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var res service.SyncResult
				decode(w, &res)
				So(res.Events, ShouldEqual, 1)
				So(res.Pet, ShouldNotBeNil)
				So(res.Pet.XP, ShouldAlmostEqual, 20, 1e-9)
			})

			Convey("Then retiring the egg is refused with a conflict", func() {
				var pet model.Pet
				decode(do(mux, http.MethodGet, "/users/"+user.ID+"/pet", ""), &pet)
				w := do(mux, http.MethodPost, "/pets/"+pet.ID+"/retire", "")
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(w.Body.String(), ShouldContainSubstring, "ineligible_stage")
			})

			Convey("Then the batch endpoint reports the selection", func() {
				w := do(mux, http.MethodPost, "/sync", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var res service.BatchResult
				decode(w, &res)
				So(res.Selected, ShouldEqual, 1)
				So(res.Synced, ShouldEqual, 1)
			})

			Convey("Then empty listings are arrays", func() {
				w := do(mux, http.MethodGet, "/users/"+user.ID+"/hall-of-fame", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"entries":[]`)

				w = do(mux, http.MethodGet, "/users/"+user.ID+"/notifications?unseen=false", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"notifications":[]`)
			})
		})

		Convey("When requests are malformed", func() {
			So(do(mux, http.MethodPost, "/pets", `{"name":`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/pets", `{"name":"x"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/pets", `{"user_id":"u","name":"x","color":"red"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/users", `{"github_id":0,"username":""}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/users/u/notifications?unseen=maybe", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When resources are missing", func() {
			So(do(mux, http.MethodGet, "/users/nobody/pet", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPost, "/pets/nothing/retire", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPost, "/users/nobody/sync", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the wrong method is used", func() {
			So(do(mux, http.MethodGet, "/sync", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestServer_ErrorMapping(t *testing.T) {
	Convey("Given handlers whose service is busy", t, func() {
		mux := newMux(failingDeps{err: service.ErrBatchInProgress}, &mockStatsProvider{})

		w := do(mux, http.MethodPost, "/sync", "")
		So(w.Code, ShouldEqual, http.StatusConflict)
		So(w.Body.String(), ShouldContainSubstring, "batch_in_progress")
	})

	Convey("Given handlers whose store is failing", t, func() {
		mux := newMux(failingDeps{err: errors.New("disk on fire")}, &mockStatsProvider{})

		w := do(mux, http.MethodGet, "/users/u/hall-of-fame", "")
		So(w.Code, ShouldEqual, http.StatusInternalServerError)
		So(w.Body.String(), ShouldNotContainSubstring, "disk on fire")
		So(w.Body.String(), ShouldContainSubstring, http.StatusText(http.StatusInternalServerError))

		Convey("Then a sync failure is reported without its cause", func() {
			w := do(mux, http.MethodPost, "/users/u/sync", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldNotContainSubstring, "disk on fire")
			So(w.Body.String(), ShouldContainSubstring, `"code":"internal"`)
		})
	})

	Convey("Given handlers whose pet is gone", t, func() {
		mux := newMux(failingDeps{err: repository.ErrNotFound}, &mockStatsProvider{})
		So(do(mux, http.MethodGet, "/users/u/notifications", "").Code, ShouldEqual, http.StatusNotFound)
	})
}

func TestServer_Observability(t *testing.T) {
	Convey("Given an API server", t, func() {
		stats := &mockStatsProvider{stats: map[string]interface{}{"batches": 3}}
		mux := newMux(failingDeps{}, stats)

		Convey("Then healthz serves Prometheus metrics", func() {
			do(mux, http.MethodPost, "/sync", "")
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "petgotchi_http_requests_total")
		})

		Convey("Then stats returns the provider's map", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var body map[string]any
			decode(w, &body)
			So(body["batches"], ShouldEqual, 3.0)
		})
	})
}
