// Package data provides the persistence backends of the governor: Redis and MySQL
// repositories for origin health, the breaker audit trail and the event notifier.
package data

import (
	"github.com/google/wire"
)

// ProviderSet is data providers.
// Repositories are bound to biz interfaces in biz.ProviderSet.
var ProviderSet = wire.NewSet(
	NewRedisClient,
	NewMySQLClient,
)
