// Package notification relays domain events to connected agents over SSE.
package notification

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dialcrm_backend/internal/events"
	apphttp "dialcrm_backend/internal/http"
	"dialcrm_backend/internal/notification/sse"
	"dialcrm_backend/platform/httpkit"
	"dialcrm_backend/platform/logger"
)

// Module is the notification module implementing http.Module. It owns the
// SSE service and forwards dialer events to the browsers watching them.
type Module struct {
	sse *sse.Service
	log *logger.Logger
}

// NewModule creates the notification module.
func NewModule(log *logger.Logger) *Module {
	return &Module{
		sse: sse.New(log),
		log: log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// SSE returns the underlying SSE service; the dialer uses it as its toast
// notifier.
func (m *Module) SSE() *sse.Service {
	return m.sse
}

// RegisterRoutes mounts the SSE stream. The auth middleware accepts a query
// token because EventSource cannot set headers.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/events", m.sse.Handler(func(c *gin.Context) (uuid.UUID, bool) {
		identity := httpkit.GetIdentity(c)
		if !identity.IsAuthenticated() {
			return uuid.Nil, false
		}
		return identity.UserID(), true
	}))
}

// RegisterHandlers subscribes the module to the domain events it relays.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.CallInitiated{}.EventName(), m)
	bus.Subscribe(events.QueueExhausted{}.EventName(), m)
	bus.Subscribe(events.SessionLeadStatusChanged{}.EventName(), m)
	bus.Subscribe(events.SessionLeadsEnqueued{}.EventName(), m)
}

// Handle routes events to the SSE fanout.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.CallInitiated:
		m.sse.Publish(e.AgentUserID, sse.Event{
			Type:      sse.EventCallInitiated,
			SessionID: e.SessionID,
			Data: map[string]interface{}{
				"sessionLeadId": e.SessionLeadID,
				"phoneNumber":   e.PhoneNumber,
			},
		})
	case events.QueueExhausted:
		m.sse.Publish(e.AgentUserID, sse.Event{
			Type:      sse.EventQueueExhausted,
			SessionID: e.SessionID,
		})
	case events.SessionLeadStatusChanged:
		m.sse.Broadcast(sse.Event{
			Type:      sse.EventLeadStatusChanged,
			SessionID: e.SessionID,
			Data: map[string]interface{}{
				"sessionLeadId": e.SessionLeadID,
				"leadId":        e.LeadID,
				"oldStatus":     e.OldStatus,
				"newStatus":     e.NewStatus,
			},
		})
	case events.SessionLeadsEnqueued:
		m.sse.Broadcast(sse.Event{
			Type:      sse.EventLeadsEnqueued,
			SessionID: e.SessionID,
			Data:      map[string]interface{}{"count": e.Count},
		})
	}
	return nil
}

// Close shuts down all open SSE streams.
func (m *Module) Close() {
	m.sse.Close()
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
