// Package scheduler schedules and runs background dialer maintenance jobs
// over asynq.
package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"dialcrm_backend/internal/events"
	"dialcrm_backend/platform/config"
	"dialcrm_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues dialer maintenance tasks.
type Client struct {
	client *asynq.Client
	queue  string
}

// NewClient creates an asynq client from the scheduler config.
func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleCallStatusCheck enqueues the per-call backstop to run at runAt.
func (c *Client) ScheduleCallStatusCheck(ctx context.Context, payload CallStatusCheckPayload, runAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewCallStatusCheckTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessAt(runAt), asynq.Queue(c.queue))
	return err
}

// ScheduleStaleSweep enqueues a queue sweep to run after delay.
func (c *Client) ScheduleStaleSweep(ctx context.Context, thresholdMinutes int, delay time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewStaleLeadSweepTask(StaleLeadSweepPayload{ThresholdMinutes: thresholdMinutes})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessIn(delay), asynq.Queue(c.queue))
	return err
}

// RegisterHandlers subscribes the client to call events so every placed call
// gets a backstop check scheduled after the stale threshold.
func (c *Client) RegisterHandlers(bus events.Bus, staleThreshold time.Duration, log *logger.Logger) {
	if c == nil || bus == nil {
		return
	}

	bus.Subscribe(events.CallInitiated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.CallInitiated)
		if !ok {
			return nil
		}

		err := c.ScheduleCallStatusCheck(ctx, CallStatusCheckPayload{
			SessionLeadID: e.SessionLeadID.String(),
			SessionID:     e.SessionID.String(),
			AgentUserID:   e.AgentUserID.String(),
		}, time.Now().Add(staleThreshold))
		if err != nil {
			log.Warn("failed to schedule call backstop", "sessionLeadId", e.SessionLeadID, "error", err)
		}
		return nil
	}))
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
