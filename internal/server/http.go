package server

import (
	"ScoutBot/internal/conf"
	"ScoutBot/internal/metrics"
	"ScoutBot/internal/server/middleware"
	"ScoutBot/internal/service"
	pkglog "ScoutBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, stats *service.StatsService, gm *metrics.GovernorMetrics, logger log.Logger) *http.Server {
	logHelper := pkglog.NewLogHelper(logger)

	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			middleware.Logging(logHelper),
		),
	}
	if c != nil && c.HTTP != nil {
		if c.HTTP.Network != "" {
			opts = append(opts, http.Network(c.HTTP.Network))
		}
		if c.HTTP.Addr != "" {
			opts = append(opts, http.Address(c.HTTP.Addr))
		}
		if c.HTTP.Timeout != nil {
			opts = append(opts, http.Timeout(c.HTTP.Timeout.AsDuration()))
		}
	}
	srv := http.NewServer(opts...)

	service.RegisterStatsHTTPServer(srv, stats)
	srv.Handle("/metrics", gm.Handler())

	return srv
}
