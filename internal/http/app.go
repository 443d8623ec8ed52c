package http

import (
	"context"

	"leadchat_backend/platform/config"
	"leadchat_backend/platform/logger"
)

// HealthChecker is any dependency /api/health can ping.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is what the composition root hands to the router.
type App struct {
	Config config.HTTPConfig
	Logger *logger.Logger
	// Health maps a dependency name to its checker.
	Health  map[string]HealthChecker
	Modules []Module
}
