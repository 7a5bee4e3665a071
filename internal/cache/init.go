package cache

import (
	"github.com/vpnbroker/broker/internal/config"
	"github.com/vpnbroker/broker/internal/logger"
)

// Initialize builds the cache from cfg and logs its settings. The
// internal/broker Cache provider does not use it; it calls
// NewInMemoryCache directly.
func Initialize(cfg *config.Configuration, log *logger.Logger) Cache {
	log.Infow("initializing cache", "enabled", cfg.Cache.Enabled, "available_servers_ttl", cfg.Cache.AvailableServersTTL)
	return NewInMemoryCache(cfg.Cache.Enabled)
}
