package asynqtask

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"tutorbook/internal/app/schedule"
)

const maxRetry = 10

// Scheduler enqueues delayed tasks on the asynq Redis queue.
type Scheduler struct {
	client *asynq.Client
}

func NewScheduler(opt asynq.RedisConnOpt) *Scheduler {
	return &Scheduler{client: asynq.NewClient(opt)}
}

// Schedule enqueues one task per (name, payload). Task ids are derived from the payload so a
// booking confirmed twice is not completed twice.
func (s *Scheduler) Schedule(ctx context.Context, name string, payload any, runAt time.Time) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	task := asynq.NewTask(name, body)
	opts := []asynq.Option{
		asynq.ProcessAt(runAt),
		asynq.MaxRetry(maxRetry),
		asynq.TaskID(name + ":" + string(body)),
	}
	if _, err := s.client.EnqueueContext(ctx, task, opts...); err != nil {
		if err == asynq.ErrTaskIDConflict {
			return nil
		}
		return fmt.Errorf("asynq: enqueue %s: %w", name, err)
	}
	return nil
}

func (s *Scheduler) Close() error {
	return s.client.Close()
}

var _ schedule.Scheduler = (*Scheduler)(nil)
