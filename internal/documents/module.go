// Package documents provides the lead document bounded context: borrower
// paperwork stored in S3-compatible object storage.
package documents

import (
	"dialcrm_backend/internal/adapters/storage"
	"dialcrm_backend/internal/documents/handler"
	"dialcrm_backend/internal/documents/repository"
	"dialcrm_backend/internal/documents/service"
	"dialcrm_backend/internal/events"
	apphttp "dialcrm_backend/internal/http"
	"dialcrm_backend/platform/logger"
	"dialcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the documents bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the documents module.
func NewModule(
	pool *pgxpool.Pool,
	store storage.StorageService,
	bucket string,
	leads service.LeadChecker,
	bus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, store, bucket, leads, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "documents"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts document routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leadGroup := ctx.Protected.Group("/leads/:id/documents")
	leadGroup.GET("", m.handler.List)
	leadGroup.POST("", m.handler.Confirm)
	leadGroup.POST("/upload-url", m.handler.RequestUpload)

	docGroup := ctx.Protected.Group("/documents")
	docGroup.GET("/:id/download", m.handler.Download)
	docGroup.DELETE("/:id", m.handler.Delete)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
