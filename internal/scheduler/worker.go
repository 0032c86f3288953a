package scheduler

import (
	"context"
	"fmt"
	"time"

	"dialcrm_backend/internal/dialer/repository"
	"dialcrm_backend/internal/events"
	"dialcrm_backend/platform/config"
	"dialcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// sweepInterval is how often the stale-lead sweep re-arms itself.
const sweepInterval = 5 * time.Minute

// Worker runs dialer maintenance tasks: per-call backstops and periodic
// stale-lead sweeps.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	client *Client
	repo   *repository.Repository
	bus    events.Bus
	log    *logger.Logger
}

// NewWorker creates the asynq worker. client may be nil; the sweep then runs
// once per scheduled task without re-arming.
func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, client *Client, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		client: client,
		repo:   repository.New(pool),
		bus:    bus,
		log:    log,
	}

	mux.HandleFunc(TaskCallStatusCheck, w.handleCallStatusCheck)
	mux.HandleFunc(TaskStaleLeadSweep, w.handleStaleLeadSweep)

	return w, nil
}

// handleCallStatusCheck requeues one session lead if its call never ended.
// A lead that already reached a terminal status is left alone.
func (w *Worker) handleCallStatusCheck(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCallStatusCheckPayload(task)
	if err != nil {
		return err
	}

	sessionLeadID, err := uuid.Parse(payload.SessionLeadID)
	if err != nil {
		return err
	}

	// The threshold already elapsed by the time this task runs; any lead
	// still claimed is stuck.
	requeued, err := w.repo.RequeueIfStuck(ctx, sessionLeadID, 0)
	if err != nil {
		return err
	}
	if !requeued {
		return nil
	}

	w.log.Warn("requeued stuck session lead", "sessionLeadId", sessionLeadID, "sessionId", payload.SessionID)

	if w.bus != nil {
		sessionID, _ := uuid.Parse(payload.SessionID)
		w.bus.Publish(ctx, events.SessionLeadStatusChanged{
			BaseEvent:     events.NewBaseEvent(),
			SessionLeadID: sessionLeadID,
			SessionID:     sessionID,
			OldStatus:     "in_progress",
			NewStatus:     "queued",
		})
	}
	return nil
}

// handleStaleLeadSweep requeues every long-claimed lead, then re-arms itself.
func (w *Worker) handleStaleLeadSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseStaleLeadSweepPayload(task)
	if err != nil {
		return err
	}

	threshold := payload.ThresholdMinutes
	if threshold < 1 {
		threshold = 30
	}

	n, err := w.repo.RequeueStale(ctx, threshold)
	if err != nil {
		return err
	}
	if n > 0 {
		w.log.Info("stale lead sweep requeued leads", "count", n, "thresholdMinutes", threshold)
	}

	if w.client != nil {
		if err := w.client.ScheduleStaleSweep(ctx, threshold, sweepInterval); err != nil {
			w.log.Warn("failed to re-arm stale lead sweep", "error", err)
		}
	}
	return nil
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
