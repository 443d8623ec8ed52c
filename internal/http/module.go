// Package http assembles the gin router from self-registering modules.
package http

import (
	"github.com/gin-gonic/gin"
)

// Module is a bounded context with its own routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext is what a module may mount on.
type RouterContext struct {
	Engine *gin.Engine
	// V1 is the /api/v1 group.
	V1 *gin.RouterGroup
	// ChatRateLimit throttles conversation endpoints per client IP.
	ChatRateLimit gin.HandlerFunc
}
