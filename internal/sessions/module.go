// Package sessions provides the dialing session bounded context: campaign
// lifecycle, bulk queue loading, and queue stats.
package sessions

import (
	"time"

	"dialcrm_backend/internal/events"
	apphttp "dialcrm_backend/internal/http"
	"dialcrm_backend/internal/sessions/handler"
	"dialcrm_backend/internal/sessions/repository"
	"dialcrm_backend/internal/sessions/service"
	"dialcrm_backend/platform/logger"
	"dialcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Module is the sessions bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the sessions module. redisClient may be
// nil; stats then always hit the database.
func NewModule(
	pool *pgxpool.Pool,
	redisClient *redis.Client,
	statsTTL time.Duration,
	bus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	stats := service.NewStatsCache(redisClient, statsTTL, log)
	svc := service.New(repo, stats, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "sessions"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts session routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/sessions")
	group.GET("", m.handler.List)
	group.POST("", m.handler.Create)
	group.GET("/:id", m.handler.GetByID)
	group.GET("/:id/stats", m.handler.Stats)
	group.POST("/:id/leads", m.handler.Enqueue)
	group.POST("/:id/reset", m.handler.Reset)
	group.POST("/:id/close", m.handler.Close)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
