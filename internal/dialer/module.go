// Package dialer provides the power-dialer bounded context: per-agent call
// orchestration over a session lead queue.
package dialer

import (
	"dialcrm_backend/internal/dialer/engine"
	"dialcrm_backend/internal/dialer/handler"
	"dialcrm_backend/internal/dialer/repository"
	"dialcrm_backend/internal/dialer/service"
	"dialcrm_backend/internal/dialer/telephony"
	"dialcrm_backend/internal/events"
	apphttp "dialcrm_backend/internal/http"
	"dialcrm_backend/platform/config"
	"dialcrm_backend/platform/logger"
	"dialcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the dialer bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	manager *engine.Manager
	status  *service.StatusUpdater
	repo    *repository.Repository
}

// NewModule creates and initializes the dialer module with all its
// dependencies. agents resolves user ids to agent records; provider places
// the actual calls; notify delivers toast messages to agents.
func NewModule(
	pool *pgxpool.Pool,
	agents service.AgentDirectory,
	provider telephony.Provider,
	notify service.Notifier,
	bus events.Bus,
	cfg config.DialerConfig,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	status := service.NewStatusUpdater(repo, bus, log)
	manager := engine.NewManager(repo, agents, provider, notify, bus, log,
		cfg.GetCallStatusPollDelay(), cfg.GetDialRatePerMinute())

	var callback handler.StatusCallbackSink
	if sink, ok := provider.(handler.StatusCallbackSink); ok {
		callback = sink
	}
	h := handler.New(manager, status, callback, val)

	return &Module{
		handler: h,
		manager: manager,
		status:  status,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "dialer"
}

// Manager returns the orchestrator manager for external use.
func (m *Module) Manager() *engine.Manager {
	return m.manager
}

// Repository returns the repository for direct access (scheduler sweeps,
// session stats).
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts dialer routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/dialer")
	group.POST("/start", m.handler.Start)
	group.POST("/stop", m.handler.Stop)
	group.GET("/state", m.handler.State)
	group.POST("/next", m.handler.Next)
	group.PATCH("/leads/:id/status", m.handler.UpdateLeadStatus)

	// Called by the telephony provider, not by agents, so no JWT.
	ctx.V1.POST("/webhooks/twilio/status", m.handler.TwilioStatusCallback)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
