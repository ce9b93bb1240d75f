package sweep

import (
	"context"
	"testing"

	"tutorbook/internal/app/auth"
	"tutorbook/internal/app/commands"
	"tutorbook/internal/app/dto"
	bookinghandlers "tutorbook/internal/app/handlers/booking"
)

type busFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f busFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) { return f(ctx, cmd) }

func TestRunOnce_DispatchesAsSystem(t *testing.T) {
	var got []bookinghandlers.CompleteElapsedCommand
	bus := busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		if p, ok := auth.FromContext(ctx); !ok || !p.IsSystem() {
			t.Fatalf("sweep must run as the system principal")
		}
		got = append(got, cmd.(bookinghandlers.CompleteElapsedCommand))
		return &dto.CompletionSweepResult{Completed: []string{"b1"}}, nil
	})
	s, err := New("", bus, 50, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.RunOnce(context.Background())
	if len(got) != 1 || got[0].Limit != 50 {
		t.Fatalf("expected one sweep with limit 50, got %+v", got)
	}
}

func TestNew_RejectsBadSpec(t *testing.T) {
	if _, err := New("every now and then", busFunc(nil), 0, nil); err == nil {
		t.Fatal("expected a cron parse error")
	}
}
