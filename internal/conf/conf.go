package conf

import "google.golang.org/protobuf/types/known/durationpb"

// Persistence drivers accepted by data.persist.driver.
const (
	PersistDriverRedis = "redis"
	PersistDriverMySQL = "mysql"
	PersistDriverNone  = "none"
)

// Bootstrap is the root configuration.
type Bootstrap struct {
	Server   *Server
	Data     *Data
	Governor *Governor
	Janitor  *Janitor
	Monitor  *Monitor
	Fetch    *Fetch
	Feeds    *Feeds
	Log      *Log
}

// Server holds the operator endpoints.
type Server struct {
	HTTP *ServerEndpoint
	GRPC *ServerEndpoint
}

// ServerEndpoint is one listening transport.
type ServerEndpoint struct {
	Network string
	Addr    string
	Timeout *durationpb.Duration
}

// Data holds storage settings.
type Data struct {
	Database *Database
	Redis    *Redis
	Persist  *Persist
	Audit    *Audit
}

// Database is the optional MySQL backend. An empty Source disables it.
type Database struct {
	Driver string
	Source string
}

// Redis is the optional Redis backend. An empty Addr disables it.
type Redis struct {
	Network      string
	Addr         string
	Password     string
	DB           int
	ReadTimeout  *durationpb.Duration
	WriteTimeout *durationpb.Duration
	KeyPrefix    string
}

// Persist selects where origin health is written through to.
type Persist struct {
	Driver string
}

// Audit configures the breaker audit trail.
type Audit struct {
	Enabled   bool
	QueueSize int
}

// Governor holds the outbound-request governor settings. They are static after start.
type Governor struct {
	Enabled           bool
	MinDelay          *durationpb.Duration
	MaxDelay          *durationpb.Duration
	DecayFactor       float64
	GrowthFactor      float64
	ErrorGrowthFactor float64
	FailureThreshold  int32
	OpenTimeout       *durationpb.Duration
	RequestTimeout    *durationpb.Duration
	RecentWindow      int32
}

// Janitor controls eviction of stale origin records.
type Janitor struct {
	Retention *durationpb.Duration
	Interval  *durationpb.Duration
	Cron      string
}

// Monitor controls the periodic blocking check.
type Monitor struct {
	Cron                 string
	MinRequests          int32
	SuccessRateThreshold float64
}

// Fetch configures the HTTP client used for outbound requests.
type Fetch struct {
	Proxy       string
	UserAgents  []string
	SessionTTL  *durationpb.Duration
	MaxSessions int32
}

// Feeds lists the feeds checked on a schedule.
type Feeds struct {
	URLs        []string
	Cron        string
	Concurrency int32
}

// Log configures the zap logger.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}
