package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/iolowookere217/xdulist/internal/domain"
)

type ExpenseFilter struct {
	Category string
	From     time.Time
	To       time.Time
}

type ExpenseRepository interface {
	Create(ctx context.Context, expense *domain.Expense) error
	FindByID(ctx context.Context, userID, id string) (*domain.Expense, error)
	List(ctx context.Context, userID string, filter ExpenseFilter) ([]domain.Expense, error)
	Update(ctx context.Context, expense *domain.Expense) error
	Delete(ctx context.Context, userID, id string) error
}

type TodoRepository interface {
	Create(ctx context.Context, todo *domain.Todo) error
	FindByID(ctx context.Context, userID, id string) (*domain.Todo, error)
	List(ctx context.Context, userID string) ([]domain.Todo, error)
	Update(ctx context.Context, todo *domain.Todo) error
	Delete(ctx context.Context, userID, id string) error
	FindDueReminders(ctx context.Context, now time.Time) ([]domain.Todo, error)
}

type expenseRepo struct{ db *gorm.DB }

type todoRepo struct{ db *gorm.DB }

func NewExpenseRepository(db *gorm.DB) ExpenseRepository { return &expenseRepo{db: db} }

func NewTodoRepository(db *gorm.DB) TodoRepository { return &todoRepo{db: db} }

func (r *expenseRepo) Create(ctx context.Context, expense *domain.Expense) error {
	return r.db.WithContext(ctx).Create(expense).Error
}

func (r *expenseRepo) FindByID(ctx context.Context, userID, id string) (*domain.Expense, error) {
	var expense domain.Expense
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&expense).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

func (r *expenseRepo) List(ctx context.Context, userID string, filter ExpenseFilter) ([]domain.Expense, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if !filter.From.IsZero() {
		q = q.Where("date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("date < ?", filter.To)
	}
	var expenses []domain.Expense
	if err := q.Order("date DESC").Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *expenseRepo) Update(ctx context.Context, expense *domain.Expense) error {
	return r.db.WithContext(ctx).Save(expense).Error
}

func (r *expenseRepo) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Expense{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *todoRepo) Create(ctx context.Context, todo *domain.Todo) error {
	return r.db.WithContext(ctx).Create(todo).Error
}

func (r *todoRepo) FindByID(ctx context.Context, userID, id string) (*domain.Todo, error) {
	var todo domain.Todo
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&todo).Error; err != nil {
		return nil, err
	}
	return &todo, nil
}

func (r *todoRepo) List(ctx context.Context, userID string) ([]domain.Todo, error) {
	var todos []domain.Todo
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_time ASC").
		Find(&todos).Error; err != nil {
		return nil, err
	}
	return todos, nil
}

func (r *todoRepo) Update(ctx context.Context, todo *domain.Todo) error {
	return r.db.WithContext(ctx).Save(todo).Error
}

func (r *todoRepo) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Todo{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *todoRepo) FindDueReminders(ctx context.Context, now time.Time) ([]domain.Todo, error) {
	var todos []domain.Todo
	if err := r.db.WithContext(ctx).
		Where("reminder_at IS NOT NULL AND reminder_at <= ? AND reminder_sent = ? AND completed = ?", now, false, false).
		Find(&todos).Error; err != nil {
		return nil, err
	}
	return todos, nil
}
