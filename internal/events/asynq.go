package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TaskEnqueuer is the subset of *asynq.Client used by AsynqScheduler.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqScheduler enqueues one task per event, keyed by event id so a retried
// emit cannot produce a second task.
type AsynqScheduler struct {
	Client    TaskEnqueuer
	Queue     string
	MaxRetry  int
	Retention time.Duration
}

// Schedule implements DeliveryScheduler.
func (s AsynqScheduler) Schedule(ctx context.Context, ev Event) error {
	if s.Client == nil {
		return fmt.Errorf("events: asynq client not configured")
	}
	task, err := NewTask(ev)
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.TaskID(ev.ID.String())}
	if s.Queue != "" {
		opts = append(opts, asynq.Queue(s.Queue))
	}
	if s.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(s.MaxRetry))
	}
	if s.Retention > 0 {
		opts = append(opts, asynq.Retention(s.Retention))
	}
	_, err = s.Client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// NewTask wraps ev in an asynq task named after its topic.
func NewTask(ev Event) (*asynq.Task, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("events: encode task: %w", err)
	}
	return asynq.NewTask(ev.Topic, body), nil
}

// DecodeTask extracts the event carried by t.
func DecodeTask(t *asynq.Task) (Event, error) {
	var ev Event
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		return Event{}, fmt.Errorf("events: decode task %s: %w: %w", t.Type(), err, asynq.SkipRetry)
	}
	if ev.Topic == "" {
		ev.Topic = t.Type()
	}
	return ev, nil
}
