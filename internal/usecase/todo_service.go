package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	repo "github.com/iolowookere217/xdulist/internal/adapters/postgres"
	"github.com/iolowookere217/xdulist/internal/domain"
	pkglog "github.com/iolowookere217/xdulist/pkg/log"
)

var (
	ErrTodoNotFound = errors.New("todo not found")
	ErrInvalidTodo  = errors.New("invalid todo")
)

type TodoInput struct {
	Description string     `json:"description"`
	StartTime   time.Time  `json:"startTime"`
	ReminderAt  *time.Time `json:"reminderAt,omitempty"`
}

// TodoSummary is the completion picture for a period: day, week (Monday
// start), or month.
type TodoSummary struct {
	Period         string              `json:"period"`
	StartDate      time.Time           `json:"startDate"`
	Total          int                 `json:"total"`
	Completed      int                 `json:"completed"`
	Pending        int                 `json:"pending"`
	CompletionRate int                 `json:"completionRate"`
	ByDate         map[string]DayCount `json:"byDate"`
}

type DayCount struct {
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

type TodoService interface {
	Create(ctx context.Context, traceID, userID string, in TodoInput) (*domain.Todo, error)
	Get(ctx context.Context, traceID, userID, id string) (*domain.Todo, error)
	List(ctx context.Context, traceID, userID string) ([]domain.Todo, error)
	Update(ctx context.Context, traceID, userID, id string, in TodoInput) (*domain.Todo, error)
	Delete(ctx context.Context, traceID, userID, id string) error
	Complete(ctx context.Context, traceID, userID, id string) (*domain.Todo, error)
	Summary(ctx context.Context, traceID, userID, period string) (*TodoSummary, error)
}

type todoService struct {
	logger pkglog.Logger
	todos  repo.TodoRepository
}

func NewTodoService(logger pkglog.Logger, todos repo.TodoRepository) TodoService {
	return &todoService{logger: logger, todos: todos}
}

func (s *todoService) Create(ctx context.Context, traceID, userID string, in TodoInput) (*domain.Todo, error) {
	if err := validateTodo(in); err != nil {
		return nil, err
	}
	todo := &domain.Todo{
		UserID:      userID,
		Description: strings.TrimSpace(in.Description),
		StartTime:   in.StartTime,
		ReminderAt:  in.ReminderAt,
	}
	if err := s.todos.Create(ctx, todo); err != nil {
		return nil, err
	}
	s.logger.Info().Str("trace_id", traceID).Str("todo_id", todo.ID).Msg("todo created")
	return todo, nil
}

func (s *todoService) Get(ctx context.Context, traceID, userID, id string) (*domain.Todo, error) {
	todo, err := s.todos.FindByID(ctx, userID, id)
	if err != nil {
		return nil, ErrTodoNotFound
	}
	return todo, nil
}

func (s *todoService) List(ctx context.Context, traceID, userID string) ([]domain.Todo, error) {
	return s.todos.List(ctx, userID)
}

func (s *todoService) Update(ctx context.Context, traceID, userID, id string, in TodoInput) (*domain.Todo, error) {
	if err := validateTodo(in); err != nil {
		return nil, err
	}
	todo, err := s.todos.FindByID(ctx, userID, id)
	if err != nil {
		return nil, ErrTodoNotFound
	}
	todo.Description = strings.TrimSpace(in.Description)
	todo.StartTime = in.StartTime
	// Moving the reminder re-arms it.
	if in.ReminderAt != nil && (todo.ReminderAt == nil || !in.ReminderAt.Equal(*todo.ReminderAt)) {
		todo.ReminderSent = false
	}
	todo.ReminderAt = in.ReminderAt
	if err := s.todos.Update(ctx, todo); err != nil {
		return nil, err
	}
	return todo, nil
}

func (s *todoService) Delete(ctx context.Context, traceID, userID, id string) error {
	if err := s.todos.Delete(ctx, userID, id); err != nil {
		return ErrTodoNotFound
	}
	return nil
}

func (s *todoService) Complete(ctx context.Context, traceID, userID, id string) (*domain.Todo, error) {
	todo, err := s.todos.FindByID(ctx, userID, id)
	if err != nil {
		return nil, ErrTodoNotFound
	}
	todo.Completed = true
	if err := s.todos.Update(ctx, todo); err != nil {
		return nil, err
	}
	s.logger.Info().Str("trace_id", traceID).Str("todo_id", todo.ID).Msg("todo completed")
	return todo, nil
}

func (s *todoService) Summary(ctx context.Context, traceID, userID, period string) (*TodoSummary, error) {
	start := periodStart(period, time.Now())
	todos, err := s.todos.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := &TodoSummary{Period: period, StartDate: start, ByDate: map[string]DayCount{}}
	if summary.Period == "" {
		summary.Period = "day"
	}
	for _, td := range todos {
		if td.CreatedAt.Before(start) {
			continue
		}
		summary.Total++
		key := td.CreatedAt.UTC().Format("2006-01-02")
		day := summary.ByDate[key]
		if td.Completed {
			summary.Completed++
			day.Completed++
		} else {
			summary.Pending++
			day.Pending++
		}
		summary.ByDate[key] = day
	}
	if summary.Total > 0 {
		summary.CompletionRate = int(float64(summary.Completed)/float64(summary.Total)*100 + 0.5)
	}
	return summary, nil
}

// periodStart resolves "day", "week" and "month" to their opening instant;
// anything else falls back to the start of today.
func periodStart(period string, now time.Time) time.Time {
	switch period {
	case "week":
		// Week opens on Monday.
		offset := int(now.Weekday()) - 1
		if offset < 0 {
			offset = 6
		}
		day := now.AddDate(0, 0, -offset)
		return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, now.Location())
	case "month":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}
}

func validateTodo(in TodoInput) error {
	if strings.TrimSpace(in.Description) == "" || in.StartTime.IsZero() {
		return ErrInvalidTodo
	}
	return nil
}
