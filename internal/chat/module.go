// Package chat provides the conversational intake module.
package chat

import (
	"leadchat_backend/internal/chat/handler"
	"leadchat_backend/internal/chat/service"
	apphttp "leadchat_backend/internal/http"
	"leadchat_backend/internal/intake/gate"
	"leadchat_backend/internal/pricing"
	"leadchat_backend/internal/session"
	"leadchat_backend/platform/events"
	"leadchat_backend/platform/logger"
	"leadchat_backend/platform/validator"
)

// Module represents the chat domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new chat module with all dependencies wired
func NewModule(store session.Store, engine *pricing.Engine, val *validator.Validator, eventBus events.Bus, log *logger.Logger) (*Module, error) {
	machine, err := gate.NewMachine(val)
	if err != nil {
		return nil, err
	}
	svc := service.New(store, engine, machine, eventBus, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}, nil
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "chat"
}

// Service returns the service layer so optional collaborators can be set
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	conversations := ctx.V1.Group("/conversations")
	conversations.Use(ctx.ChatRateLimit)
	m.handler.RegisterRoutes(conversations)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
