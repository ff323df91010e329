package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/smartystreets/goconvey/convey"

	app "github.com/okian/statboard/internal/app"
	"github.com/okian/statboard/internal/config"
	"github.com/okian/statboard/pkg/logger"
)

func memoryConfig() *config.Config {
	cfg := config.New()
	cfg.Store = config.StoreMemory
	cfg.Addr = "127.0.0.1:0"
	return cfg
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given a handler over an in-memory service", t, func() {
		ctx := context.Background()
		cfg := memoryConfig()
		cfg.MaxQueryCount = 10

		svc := app.New(app.WithLogger(logger.Discard()))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		h := newHandler(ctx, cfg, svc, logger.Discard())

		serve := func(method, target, body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(method, target, strings.NewReader(body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			return rec
		}

		convey.Convey("Then a recorded stat can be read back", func() {
			rec := serve(http.MethodPost, "/stats", `{"user":"alice","game":"tetris","stat":"lines","value":42}`)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)

			rec = serve(http.MethodGet, "/stats?game=tetris&stat=lines", "")
			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			var views []map[string]interface{}
			convey.So(json.Unmarshal(rec.Body.Bytes(), &views), convey.ShouldBeNil)
			convey.So(len(views), convey.ShouldEqual, 1)
			convey.So(views[0]["user"], convey.ShouldEqual, "alice")
		})

		convey.Convey("Then the configured count cap applies", func() {
			rec := serve(http.MethodGet, "/stats?game=tetris&stat=lines&count=11", "")
			convey.So(rec.Code, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("Then docs, landing page and status are routed", func() {
			for _, path := range []string{"/", "/api-docs", "/openapi.yaml", "/status", "/healthz"} {
				rec := serve(http.MethodGet, path, "")
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(rec.Header().Get("X-Request-ID"), convey.ShouldNotBeEmpty)
			}
		})
	})
}

func TestNewStore(t *testing.T) {
	convey.Convey("Given a memory store config", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		store, err := newStore(ctx, memoryConfig(), logger.Discard())

		convey.Convey("Then an in-memory store is built", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(store.Kind(), convey.ShouldEqual, "memory")
		})
	})

	convey.Convey("Given a local DynamoDB endpoint", t, func() {
		cfg := config.New()
		cfg.Endpoint = "http://localhost:8000"

		client, err := newDynamoClient(context.Background(), cfg)

		convey.Convey("Then the client targets the endpoint with static credentials", func() {
			convey.So(err, convey.ShouldBeNil)
			opts := client.Options()
			convey.So(aws.ToString(opts.BaseEndpoint), convey.ShouldEqual, "http://localhost:8000")
			convey.So(opts.Region, convey.ShouldEqual, "us-west-2")
			creds, err := opts.Credentials.Retrieve(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(creds.AccessKeyID, convey.ShouldEqual, localAccessKey)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a running server on a memory store", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- run(ctx, memoryConfig(), logger.Discard()) }()

		convey.Convey("When the context is cancelled", func() {
			time.Sleep(50 * time.Millisecond)
			cancel()

			convey.Convey("Then it shuts down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("server did not stop")
				}
			})
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Updating system metrics does not panic", t, func() {
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)
	})
}
