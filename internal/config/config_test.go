package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/statboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreDynamoDB)
			convey.So(cfg.TableName, convey.ShouldEqual, "StatsDB")
			convey.So(cfg.Region, convey.ShouldEqual, "us-west-2")
			convey.So(cfg.Profile, convey.ShouldEqual, "stats-db")
			convey.So(cfg.MaxQueryCount, convey.ShouldEqual, 1000)
			convey.So(cfg.CacheSize, convey.ShouldEqual, 0)
			convey.So(cfg.StorageTimeout(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.CacheTTL(), convey.ShouldEqual, time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		cases := map[string]func(*config.Config){
			"addr must not be empty":          func(c *config.Config) { c.Addr = "" },
			"store must be":                   func(c *config.Config) { c.Store = "postgres" },
			"table_name must not be empty":    func(c *config.Config) { c.TableName = "" },
			"log_format must be text or json": func(c *config.Config) { c.LogFormat = "xml" },
			"max_query_count must be within":  func(c *config.Config) { c.MaxQueryCount = 1001 },
			"storage_timeout_ms":              func(c *config.Config) { c.StorageTimeoutMS = -1 },
			"cache_size":                      func(c *config.Config) { c.CacheSize = -1 },
			"cache_ttl_ms":                    func(c *config.Config) { c.CacheSize, c.CacheTTLMS = 10, 0 },
			"shutdown_timeout_ms":             func(c *config.Config) { c.ShutdownTimeoutMS = 0 },
		}

		convey.Convey("Then each is rejected with ErrInvalidConfig", func() {
			for msg, mutate := range cases {
				cfg := config.New()
				mutate(cfg)
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, msg)
			}
		})

		convey.Convey("And a zero max_query_count is rejected", func() {
			cfg := config.New()
			cfg.MaxQueryCount = 0
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})
	})
}
