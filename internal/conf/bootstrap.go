// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables.
package conf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
	"google.golang.org/protobuf/types/known/durationpb"
)

// EnvPrefix prefixes every environment override, e.g. SCOUTBOT_GOVERNOR_MIN_DELAY.
const EnvPrefix = "SCOUTBOT"

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with SCOUTBOT_.
//
// Configuration priority: Environment variables > Config file > Defaults
//
// Parameters:
//   - configPath: Path to the configuration file, empty for defaults and environment only
//
// Returns:
//   - *Bootstrap: Loaded configuration
//   - error: Configuration loading or validation error
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow the conventional names used by deployment tooling
	_ = v.BindEnv("data.database.source", "MYSQL_DSN", EnvPrefix+"_DATA_DATABASE_SOURCE")
	_ = v.BindEnv("data.redis.addr", "REDIS_ADDR", EnvPrefix+"_DATA_REDIS_ADDR")
	_ = v.BindEnv("data.redis.password", "REDIS_PASSWORD", EnvPrefix+"_DATA_REDIS_PASSWORD")
	_ = v.BindEnv("fetch.proxy", "PROXY_URL", EnvPrefix+"_FETCH_PROXY")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	bc := &Bootstrap{
		Server: &Server{
			HTTP: &ServerEndpoint{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: durationpb.New(v.GetDuration("server.http.timeout")),
			},
			GRPC: &ServerEndpoint{
				Network: v.GetString("server.grpc.network"),
				Addr:    v.GetString("server.grpc.addr"),
				Timeout: durationpb.New(v.GetDuration("server.grpc.timeout")),
			},
		},
		Data: &Data{
			Database: &Database{
				Driver: v.GetString("data.database.driver"),
				Source: v.GetString("data.database.source"),
			},
			Redis: &Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				Password:     v.GetString("data.redis.password"),
				DB:           v.GetInt("data.redis.db"),
				ReadTimeout:  durationpb.New(v.GetDuration("data.redis.read_timeout")),
				WriteTimeout: durationpb.New(v.GetDuration("data.redis.write_timeout")),
				KeyPrefix:    v.GetString("data.redis.key_prefix"),
			},
			Persist: &Persist{
				Driver: strings.ToLower(v.GetString("data.persist.driver")),
			},
			Audit: &Audit{
				Enabled:   v.GetBool("data.audit.enabled"),
				QueueSize: v.GetInt("data.audit.queue_size"),
			},
		},
		Governor: &Governor{
			Enabled:           v.GetBool("governor.enabled"),
			MinDelay:          durationpb.New(v.GetDuration("governor.min_delay")),
			MaxDelay:          durationpb.New(v.GetDuration("governor.max_delay")),
			DecayFactor:       v.GetFloat64("governor.decay_factor"),
			GrowthFactor:      v.GetFloat64("governor.growth_factor"),
			ErrorGrowthFactor: v.GetFloat64("governor.error_growth_factor"),
			FailureThreshold:  v.GetInt32("governor.failure_threshold"),
			OpenTimeout:       durationpb.New(v.GetDuration("governor.open_timeout")),
			RequestTimeout:    durationpb.New(v.GetDuration("governor.request_timeout")),
			RecentWindow:      v.GetInt32("governor.recent_window"),
		},
		Janitor: &Janitor{
			Retention: durationpb.New(v.GetDuration("janitor.retention")),
			Interval:  durationpb.New(v.GetDuration("janitor.interval")),
			Cron:      v.GetString("janitor.cron"),
		},
		Monitor: &Monitor{
			Cron:                 v.GetString("monitor.cron"),
			MinRequests:          v.GetInt32("monitor.min_requests"),
			SuccessRateThreshold: v.GetFloat64("monitor.success_rate_threshold"),
		},
		Fetch: &Fetch{
			Proxy:       v.GetString("fetch.proxy"),
			UserAgents:  v.GetStringSlice("fetch.user_agents"),
			SessionTTL:  durationpb.New(v.GetDuration("fetch.session_ttl")),
			MaxSessions: v.GetInt32("fetch.max_sessions"),
		},
		Feeds: &Feeds{
			URLs:        v.GetStringSlice("feeds.urls"),
			Cron:        v.GetString("feeds.cron"),
			Concurrency: v.GetInt32("feeds.concurrency"),
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
	}

	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 30*time.Second)

	v.SetDefault("server.grpc.network", "tcp")
	v.SetDefault("server.grpc.addr", ":9000")
	v.SetDefault("server.grpc.timeout", 30*time.Second)

	// Data defaults
	v.SetDefault("data.database.driver", "mysql")
	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "127.0.0.1:6379")
	v.SetDefault("data.redis.db", 0)
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.key_prefix", "scoutbot:origin:")
	v.SetDefault("data.persist.driver", PersistDriverRedis)
	v.SetDefault("data.audit.enabled", true)
	v.SetDefault("data.audit.queue_size", 1000)

	// Governor defaults
	v.SetDefault("governor.enabled", true)
	v.SetDefault("governor.min_delay", 5*time.Second)
	v.SetDefault("governor.max_delay", 300*time.Second)
	v.SetDefault("governor.decay_factor", 0.9)
	v.SetDefault("governor.growth_factor", 2.0)
	v.SetDefault("governor.error_growth_factor", 1.3)
	v.SetDefault("governor.failure_threshold", 5)
	v.SetDefault("governor.open_timeout", 5*time.Minute)
	v.SetDefault("governor.request_timeout", 60*time.Second)
	v.SetDefault("governor.recent_window", 50)

	// Janitor and monitor defaults
	v.SetDefault("janitor.retention", 7*24*time.Hour)
	v.SetDefault("janitor.interval", time.Hour)
	v.SetDefault("janitor.cron", "0 0 3 * * *")
	v.SetDefault("monitor.cron", "0 0 */2 * * *")
	v.SetDefault("monitor.min_requests", 10)
	v.SetDefault("monitor.success_rate_threshold", 0.5)

	// Fetch and feed defaults
	v.SetDefault("fetch.session_ttl", 30*time.Minute)
	v.SetDefault("fetch.max_sessions", 256)
	v.SetDefault("feeds.cron", "0 */10 * * * *")
	v.SetDefault("feeds.concurrency", 8)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the loaded configuration and returns every violation at once.
func Validate(bc *Bootstrap) error {
	if bc == nil {
		return errors.New("configuration is nil")
	}
	if err := validation.ValidateStruct(bc,
		validation.Field(&bc.Data, validation.Required),
		validation.Field(&bc.Governor, validation.Required),
		validation.Field(&bc.Janitor, validation.Required),
		validation.Field(&bc.Monitor),
		validation.Field(&bc.Log, validation.Required),
	); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Validate implements validation.Validatable.
func (d *Data) Validate() error {
	driver := ""
	if d.Persist != nil {
		driver = d.Persist.Driver
	}
	return validation.ValidateStruct(d,
		validation.Field(&d.Persist),
		validation.Field(&d.Database, validation.When(driver == PersistDriverMySQL,
			validation.Required,
			validation.By(func(value interface{}) error {
				db, _ := value.(*Database)
				if db == nil || db.Source == "" {
					return validation.NewError("validation_required_dsn",
						"data.database.source (MYSQL_DSN) is required when persist driver is mysql")
				}
				return nil
			}),
		)),
	)
}

// Validate implements validation.Validatable.
func (p *Persist) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Driver,
			validation.Required,
			validation.In(PersistDriverRedis, PersistDriverMySQL, PersistDriverNone),
		),
	)
}

// Validate implements validation.Validatable.
func (g *Governor) Validate() error {
	return validation.ValidateStruct(g,
		validation.Field(&g.MinDelay, validation.Required, validation.By(positiveDuration)),
		validation.Field(&g.MaxDelay, validation.Required, validation.By(positiveDuration),
			validation.By(func(value interface{}) error {
				if g.MaxDelay.AsDuration() < g.MinDelay.AsDuration() {
					return validation.NewError("validation_max_below_min", "must not be below min_delay")
				}
				return nil
			})),
		validation.Field(&g.DecayFactor, validation.Required, validation.Max(1.0)),
		validation.Field(&g.GrowthFactor, validation.Required, validation.Min(1.0)),
		validation.Field(&g.ErrorGrowthFactor, validation.Required, validation.Min(1.0)),
		validation.Field(&g.FailureThreshold, validation.Required, validation.Min(int32(1))),
		validation.Field(&g.OpenTimeout, validation.Required, validation.By(positiveDuration)),
		validation.Field(&g.RecentWindow, validation.Min(int32(0))),
	)
}

// Validate implements validation.Validatable.
func (j *Janitor) Validate() error {
	return validation.ValidateStruct(j,
		validation.Field(&j.Retention, validation.Required, validation.By(positiveDuration)),
		validation.Field(&j.Interval, validation.Required, validation.By(positiveDuration)),
	)
}

// Validate implements validation.Validatable.
func (m *Monitor) Validate() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.MinRequests, validation.Min(int32(0))),
		validation.Field(&m.SuccessRateThreshold, validation.Min(0.0), validation.Max(1.0)),
	)
}

// Validate implements validation.Validatable.
func (l *Log) Validate() error {
	return validation.ValidateStruct(l,
		validation.Field(&l.Level, validation.Required, validation.In("debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.In("json", "console")),
	)
}

func positiveDuration(value interface{}) error {
	d, ok := value.(*durationpb.Duration)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a duration")
	}
	if d.AsDuration() <= 0 {
		return validation.NewError("validation_positive_duration", "must be positive")
	}
	return nil
}
