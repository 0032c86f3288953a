package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskCallStatusCheck is the per-call backstop: scheduled when a call is
// placed, it requeues the session lead if the orchestrator that owned the
// call never finished it.
const TaskCallStatusCheck = "dialer.call.status_check"

// TaskStaleLeadSweep periodically returns long-claimed in_progress leads to
// the queue.
const TaskStaleLeadSweep = "dialer.leads.requeue_stale"

type CallStatusCheckPayload struct {
	SessionLeadID string `json:"sessionLeadId"`
	SessionID     string `json:"sessionId"`
	AgentUserID   string `json:"agentUserId"`
}

type StaleLeadSweepPayload struct {
	ThresholdMinutes int `json:"thresholdMinutes"`
}

func NewCallStatusCheckTask(payload CallStatusCheckPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCallStatusCheck, data), nil
}

func ParseCallStatusCheckPayload(task *asynq.Task) (CallStatusCheckPayload, error) {
	var payload CallStatusCheckPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CallStatusCheckPayload{}, err
	}
	return payload, nil
}

func NewStaleLeadSweepTask(payload StaleLeadSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStaleLeadSweep, data), nil
}

func ParseStaleLeadSweepPayload(task *asynq.Task) (StaleLeadSweepPayload, error) {
	var payload StaleLeadSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return StaleLeadSweepPayload{}, err
	}
	return payload, nil
}
