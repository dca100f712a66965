//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"ScoutBot/internal/biz"
	"ScoutBot/internal/conf"
	"ScoutBot/internal/data"
	"ScoutBot/internal/feed"
	"ScoutBot/internal/fetch"
	"ScoutBot/internal/metrics"
	"ScoutBot/internal/server"
	"ScoutBot/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init the ScoutBot application.
func wireApp(*conf.Bootstrap, *conf.Server, *conf.Data, *conf.Janitor, *conf.Monitor, *conf.Fetch, *conf.Feeds, log.Logger) (*application, func(), error) {
	panic(wire.Build(
		data.ProviderSet,
		biz.ProviderSet,
		metrics.ProviderSet,
		fetch.ProviderSet,
		feed.ProviderSet,
		service.ProviderSet,
		server.ProviderSet,
		newApp,
		newApplication,
	))
}
