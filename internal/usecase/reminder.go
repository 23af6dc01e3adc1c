package usecase

import (
	"context"
	"time"

	repo "github.com/iolowookere217/xdulist/internal/adapters/postgres"
	"github.com/iolowookere217/xdulist/internal/domain"
	pkglog "github.com/iolowookere217/xdulist/pkg/log"
)

type Reminder struct {
	ID          string    `json:"id"`
	TodoID      string    `json:"todoId"`
	UserID      string    `json:"userId"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"startTime"`
}

type Notifier interface {
	TodoReminder(ctx context.Context, reminder Reminder) error
}

// ReminderSweeper finds due, unsent reminders on incomplete todos and pushes
// them through the notifier. A failed publish stays unsent and is retried on
// the next tick.
type ReminderSweeper struct {
	logger   pkglog.Logger
	todos    repo.TodoRepository
	notifier Notifier
	newID    func() string
}

func NewReminderSweeper(logger pkglog.Logger, todos repo.TodoRepository, notifier Notifier, newID func() string) *ReminderSweeper {
	return &ReminderSweeper{logger: logger, todos: todos, notifier: notifier, newID: newID}
}

func (s *ReminderSweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *ReminderSweeper) Sweep(ctx context.Context) {
	due, err := s.todos.FindDueReminders(ctx, time.Now())
	if err != nil {
		s.logger.Error().Err(err).Msg("reminder sweep query failed")
		return
	}
	for i := range due {
		s.send(ctx, &due[i])
	}
}

func (s *ReminderSweeper) send(ctx context.Context, todo *domain.Todo) {
	if s.notifier == nil {
		return
	}
	reminder := Reminder{
		ID:          s.newID(),
		TodoID:      todo.ID,
		UserID:      todo.UserID,
		Description: todo.Description,
		StartTime:   todo.StartTime,
	}
	if err := s.notifier.TodoReminder(ctx, reminder); err != nil {
		s.logger.Error().Err(err).Str("todo_id", todo.ID).Msg("reminder publish failed")
		return
	}
	todo.ReminderSent = true
	if err := s.todos.Update(ctx, todo); err != nil {
		s.logger.Error().Err(err).Str("todo_id", todo.ID).Msg("failed to mark reminder sent")
	}
}
