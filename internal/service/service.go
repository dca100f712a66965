// Package service exposes the governor to operators over HTTP.
package service

import "github.com/google/wire"

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewStatsService)
