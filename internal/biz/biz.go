// Package biz contains the outbound-request governor: per-origin health tracking,
// adaptive delay, the circuit breaker and the janitor that bounds memory.
package biz

import (
	"ScoutBot/internal/conf"
	"ScoutBot/internal/data"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewGovernorSettings,
	NewHealthRepo,
	NewHealthWriter,
	NewOriginStore,
	NewRequestGovernor,
	NewStatsReporter,
	NewStatsJanitor,
	NewBlockingMonitor,
	// Import data layer providers
	data.NewRedisHealthRepo,
	data.NewMySQLHealthRepo,
	data.NewAuditLogger,
	data.NewNoopNotifier,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(AuditLogger), new(*data.AuditLoggerImpl)),
	wire.Bind(new(BreakerNotifier), new(*data.NoopNotifier)),
)

// NewGovernorSettings extracts the governor settings from the bootstrap config.
func NewGovernorSettings(c *conf.Bootstrap) Settings {
	if c == nil {
		return DefaultSettings()
	}
	return NewSettings(c.Governor)
}

// NewHealthRepo picks the persistence backend named by data.persist.driver.
// An unavailable backend leaves the governor memory-only.
func NewHealthRepo(c *conf.Data, redisRepo *data.RedisHealthRepo, mysqlRepo *data.MySQLHealthRepo, logger log.Logger) HealthRepo {
	helper := log.NewHelper(logger)

	driver := conf.PersistDriverRedis
	if c != nil && c.Persist != nil && c.Persist.Driver != "" {
		driver = c.Persist.Driver
	}

	switch driver {
	case conf.PersistDriverRedis:
		if redisRepo != nil {
			helper.Info("origin health persisted to Redis")
			return redisRepo
		}
	case conf.PersistDriverMySQL:
		if mysqlRepo != nil {
			helper.Info("origin health persisted to MySQL")
			return mysqlRepo
		}
	case conf.PersistDriverNone:
		return nil
	}

	helper.Warnw("msg", "origin health backend unavailable, tracking in memory only", "driver", driver)
	return nil
}
