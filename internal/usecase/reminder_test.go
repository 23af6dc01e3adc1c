package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/iolowookere217/xdulist/internal/domain"
	pkglog "github.com/iolowookere217/xdulist/pkg/log"
)

type mockTodoRepo struct {
	todos  map[string]*domain.Todo
	nextID int
}

func newMockTodoRepo() *mockTodoRepo {
	return &mockTodoRepo{todos: map[string]*domain.Todo{}}
}

func (r *mockTodoRepo) Create(_ context.Context, todo *domain.Todo) error {
	r.nextID++
	if todo.ID == "" {
		todo.ID = fmt.Sprintf("todo-%d", r.nextID)
	}
	cp := *todo
	r.todos[todo.ID] = &cp
	return nil
}

func (r *mockTodoRepo) FindByID(_ context.Context, userID, id string) (*domain.Todo, error) {
	if td, ok := r.todos[id]; ok && td.UserID == userID {
		cp := *td
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockTodoRepo) List(_ context.Context, userID string) ([]domain.Todo, error) {
	var out []domain.Todo
	for _, td := range r.todos {
		if td.UserID == userID {
			out = append(out, *td)
		}
	}
	return out, nil
}

func (r *mockTodoRepo) Update(_ context.Context, todo *domain.Todo) error {
	cp := *todo
	r.todos[todo.ID] = &cp
	return nil
}

func (r *mockTodoRepo) Delete(_ context.Context, userID, id string) error {
	if td, ok := r.todos[id]; ok && td.UserID == userID {
		delete(r.todos, id)
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (r *mockTodoRepo) FindDueReminders(_ context.Context, now time.Time) ([]domain.Todo, error) {
	var out []domain.Todo
	for _, td := range r.todos {
		if td.ReminderAt != nil && !td.ReminderAt.After(now) && !td.ReminderSent && !td.Completed {
			out = append(out, *td)
		}
	}
	return out, nil
}

type captureNotifier struct {
	err  error
	sent []Reminder
}

func (n *captureNotifier) TodoReminder(_ context.Context, reminder Reminder) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, reminder)
	return nil
}

func seedTodo(t *testing.T, todos *mockTodoRepo, remindAt *time.Time, completed bool) *domain.Todo {
	t.Helper()
	todo := &domain.Todo{
		UserID:      "user-1",
		Description: "dentist appointment",
		StartTime:   time.Now().Add(time.Hour),
		ReminderAt:  remindAt,
		Completed:   completed,
	}
	if err := todos.Create(context.Background(), todo); err != nil {
		t.Fatalf("seed todo: %v", err)
	}
	return todo
}

func sweeperIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("reminder-%d", n)
	}
}

func TestSweepSendsDueReminderOnce(t *testing.T) {
	todos := newMockTodoRepo()
	notifier := &captureNotifier{}
	past := time.Now().Add(-time.Minute)
	todo := seedTodo(t, todos, &past, false)

	sweeper := NewReminderSweeper(pkglog.Nop(), todos, notifier, sweeperIDs())
	sweeper.Sweep(context.Background())

	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(notifier.sent))
	}
	got := notifier.sent[0]
	if got.TodoID != todo.ID || got.UserID != "user-1" || got.Description != "dentist appointment" {
		t.Fatalf("unexpected reminder: %+v", got)
	}
	stored, _ := todos.FindByID(context.Background(), "user-1", todo.ID)
	if !stored.ReminderSent {
		t.Fatal("todo not marked sent")
	}

	// Second sweep finds nothing new.
	sweeper.Sweep(context.Background())
	if len(notifier.sent) != 1 {
		t.Fatalf("reminder sent twice, got %d", len(notifier.sent))
	}
}

func TestSweepSkipsFutureCompletedAndSent(t *testing.T) {
	todos := newMockTodoRepo()
	notifier := &captureNotifier{}
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Minute)
	seedTodo(t, todos, &future, false)
	seedTodo(t, todos, &past, true)
	seedTodo(t, todos, nil, false)
	alreadySent := seedTodo(t, todos, &past, false)
	alreadySent.ReminderSent = true
	todos.Update(context.Background(), alreadySent)

	NewReminderSweeper(pkglog.Nop(), todos, notifier, sweeperIDs()).Sweep(context.Background())
	if len(notifier.sent) != 0 {
		t.Fatalf("expected no reminders, got %d", len(notifier.sent))
	}
}

func TestSweepRetriesAfterPublishFailure(t *testing.T) {
	todos := newMockTodoRepo()
	notifier := &captureNotifier{err: errors.New("nats down")}
	past := time.Now().Add(-time.Minute)
	todo := seedTodo(t, todos, &past, false)

	sweeper := NewReminderSweeper(pkglog.Nop(), todos, notifier, sweeperIDs())
	sweeper.Sweep(context.Background())

	stored, _ := todos.FindByID(context.Background(), "user-1", todo.ID)
	if stored.ReminderSent {
		t.Fatal("failed publish must leave the reminder unsent")
	}

	// Broker recovers; next tick delivers.
	notifier.err = nil
	sweeper.Sweep(context.Background())
	if len(notifier.sent) != 1 {
		t.Fatalf("expected delivery on retry, got %d", len(notifier.sent))
	}
	stored, _ = todos.FindByID(context.Background(), "user-1", todo.ID)
	if !stored.ReminderSent {
		t.Fatal("todo not marked sent after retry")
	}
}
