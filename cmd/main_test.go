package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/forfeit/internal/config"
	"github.com/okian/forfeit/pkg/logger"
)

const testCatalog = `
challenges:
  - id: web-1
    name: Login
    category: web
    type: incorrect_penalty
    value: 100
    penalty: 10
    cumulative_cap: 25
    flags:
      - type: static
        content: flag{ok}
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "challenges.yaml")
	if err := os.WriteFile(path, []byte(testCatalog), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := config.New()
	cfg.DBDSN = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	cfg.WorkerCount = 1
	cfg.CatalogPath = path
	return cfg
}

func TestServerWiring(t *testing.T) {
	convey.Convey("Given a wired server on an in-memory database", t, func() {
		_ = logger.Init()
		log := logger.Get()
		ctx := context.Background()
		cfg := testConfig(t)

		store, err := openStore(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		defer func() { _ = store.Close() }()

		svc, err := newService(store, cfg, log)
		convey.So(err, convey.ShouldBeNil)
		convey.So(seedCatalog(ctx, svc, cfg.CatalogPath, log), convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		ts := httptest.NewServer(newHandler(svc, cfg, log))
		defer ts.Close()

		convey.Convey("Then it reports ready", func() {
			res, err := http.Get(ts.URL + "/readyz")
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = res.Body.Close() }()
			convey.So(res.StatusCode, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then the seeded challenge exposes its penalty settings", func() {
			res, err := http.Get(ts.URL + "/challenges/web-1")
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = res.Body.Close() }()
			convey.So(res.StatusCode, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then a wrong answer is charged", func() {
			res, err := http.Post(ts.URL+"/challenges/web-1/attempts", "application/json",
				strings.NewReader(`{"account_id":"acct-1","submission":"flag{no}"}`))
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = res.Body.Close() }()
			convey.So(res.StatusCode, convey.ShouldEqual, http.StatusOK)

			sum, err := svc.Score(ctx, "acct-1")
			convey.So(err, convey.ShouldBeNil)
			convey.So(sum.Total, convey.ShouldEqual, -10)
		})

		convey.Convey("Then the API docs are mounted", func() {
			res, err := http.Get(ts.URL + "/openapi.yaml")
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = res.Body.Close() }()
			convey.So(res.StatusCode, convey.ShouldEqual, http.StatusOK)
		})
	})
}

func TestSeedCatalog(t *testing.T) {
	convey.Convey("Given a service", t, func() {
		_ = logger.Init()
		log := logger.Get()
		ctx := context.Background()
		cfg := testConfig(t)

		store, err := openStore(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		defer func() { _ = store.Close() }()
		svc, err := newService(store, cfg, log)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When no catalog is configured", func() {
			convey.So(seedCatalog(ctx, svc, "", log), convey.ShouldBeNil)
		})

		convey.Convey("When the catalog is missing", func() {
			err := seedCatalog(ctx, svc, filepath.Join(t.TempDir(), "nope.yaml"), log)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Updating system metrics does not panic", t, func() {
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)
	})
}
