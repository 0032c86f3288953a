// Package agents provides the agent registry bounded context. An agent is a
// user allowed to work the power dialer; the direct-claim fallback in the
// dialer requires one.
package agents

import (
	"dialcrm_backend/internal/agents/handler"
	"dialcrm_backend/internal/agents/repository"
	"dialcrm_backend/internal/agents/service"
	apphttp "dialcrm_backend/internal/http"
	"dialcrm_backend/platform/logger"
	"dialcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the agents bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the agents module with all its dependencies.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "agents"
}

// Service returns the service layer for external use (the dialer resolves
// agents through it).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts agent routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/agents/me", m.handler.Me)

	adminGroup := ctx.Admin.Group("/agents")
	adminGroup.GET("", m.handler.List)
	adminGroup.POST("", m.handler.Register)
	adminGroup.DELETE("/:id", m.handler.Delete)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
