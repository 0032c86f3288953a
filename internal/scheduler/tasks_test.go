package scheduler

import (
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

func TestCallStatusCheckTaskRoundTrip(t *testing.T) {
	payload := CallStatusCheckPayload{
		SessionLeadID: uuid.NewString(),
		SessionID:     uuid.NewString(),
		AgentUserID:   uuid.NewString(),
	}

	task, err := NewCallStatusCheckTask(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Type() != TaskCallStatusCheck {
		t.Fatalf("unexpected task type %q", task.Type())
	}

	parsed, err := ParseCallStatusCheckPayload(task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != payload {
		t.Fatalf("payload changed across round trip: %+v", parsed)
	}
}

func TestParseCallStatusCheckRejectsGarbage(t *testing.T) {
	task := asynq.NewTask(TaskCallStatusCheck, []byte("not json"))
	if _, err := ParseCallStatusCheckPayload(task); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestStaleLeadSweepTaskRoundTrip(t *testing.T) {
	task, err := NewStaleLeadSweepTask(StaleLeadSweepPayload{ThresholdMinutes: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parsed, err := ParseStaleLeadSweepPayload(task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.ThresholdMinutes != 30 {
		t.Fatalf("threshold changed: %d", parsed.ThresholdMinutes)
	}
}
