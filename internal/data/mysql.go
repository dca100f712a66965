package data

import (
	"fmt"
	"time"

	"ScoutBot/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewMySQLClient creates a GORM MySQL client and migrates the governor tables.
// MySQL is optional: an empty DSN yields a nil client. A connection failure is only
// fatal when MySQL is the configured persistence driver.
func NewMySQLClient(c *conf.Data, l log.Logger) (*gorm.DB, func(), error) {
	helper := log.NewHelper(l)

	if c == nil || c.Database == nil || c.Database.Source == "" {
		helper.Info("MySQL DSN is empty, skipping MySQL initialization")
		return nil, func() {}, nil
	}
	required := c.Persist != nil && c.Persist.Driver == conf.PersistDriverMySQL

	gormLogger := logger.New(
		&gormLogAdapter{helper: helper},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(mysql.Open(c.Database.Source), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return degradeMySQL(helper, required, fmt.Errorf("failed to connect to MySQL: %w", err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		return degradeMySQL(helper, required, fmt.Errorf("failed to get sql.DB: %w", err))
	}

	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return degradeMySQL(helper, required, fmt.Errorf("failed to ping MySQL: %w", err))
	}

	if err := db.AutoMigrate(&OriginHealthRecord{}, &BreakerAuditLog{}); err != nil {
		_ = sqlDB.Close()
		return degradeMySQL(helper, required, fmt.Errorf("failed to migrate governor tables: %w", err))
	}

	helper.Info("MySQL connection established successfully")

	cleanup := func() {
		helper.Info("closing MySQL connection")
		if err := sqlDB.Close(); err != nil {
			helper.Errorf("failed to close MySQL: %v", err)
		}
	}

	return db, cleanup, nil
}

func degradeMySQL(helper *log.Helper, required bool, err error) (*gorm.DB, func(), error) {
	if required {
		helper.Errorf("%v", err)
		return nil, nil, err
	}
	helper.Warnf("%v (audit trail disabled)", err)
	return nil, func() {}, nil
}

// gormLogAdapter adapts Kratos log.Helper to GORM logger interface.
type gormLogAdapter struct {
	helper *log.Helper
}

// Printf implements gorm/logger.Writer interface.
func (g *gormLogAdapter) Printf(format string, v ...interface{}) {
	g.helper.Warnf(format, v...)
}
