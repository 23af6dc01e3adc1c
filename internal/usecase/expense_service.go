package usecase

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/iolowookere217/xdulist/config"
	repo "github.com/iolowookere217/xdulist/internal/adapters/postgres"
	"github.com/iolowookere217/xdulist/internal/domain"
	pkglog "github.com/iolowookere217/xdulist/pkg/log"
)

var (
	ErrExpenseNotFound  = errors.New("expense not found")
	ErrInvalidExpense   = errors.New("invalid expense")
	ErrScanLimitReached = errors.New("monthly receipt scan limit reached")
)

// ExpenseDraft is what the extractor proposes from a receipt image or a voice
// transcript. The user confirms it client-side before it becomes an Expense.
type ExpenseDraft struct {
	Vendor      string    `json:"vendorName,omitempty"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

// Insight is one observation over recent spending: a pattern, a
// recommendation, or an alert.
type Insight struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ReceiptExtractor interface {
	ExtractReceipt(ctx context.Context, imageURL string) (*ExpenseDraft, error)
	ParseTranscript(ctx context.Context, transcript string) (*ExpenseDraft, error)
	GenerateInsights(ctx context.Context, expenses []domain.Expense) ([]Insight, error)
}

type ImageStore interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

type ExpenseInput struct {
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

type ScanResult struct {
	Draft          *ExpenseDraft `json:"draft"`
	ReceiptURL     string        `json:"receiptUrl"`
	ScansRemaining int           `json:"scansRemaining"`
	Unlimited      bool          `json:"unlimited"`
}

type AnalyticsSummary struct {
	Total      float64            `json:"total"`
	ByCategory map[string]float64 `json:"byCategory"`
	Daily      []DailyTotal       `json:"daily"`
}

type DailyTotal struct {
	Day   string  `json:"day"`
	Total float64 `json:"total"`
}

type ExpenseService interface {
	Create(ctx context.Context, traceID, userID string, in ExpenseInput) (*domain.Expense, error)
	List(ctx context.Context, traceID, userID string, filter repo.ExpenseFilter) ([]domain.Expense, error)
	Get(ctx context.Context, traceID, userID, id string) (*domain.Expense, error)
	Update(ctx context.Context, traceID, userID, id string, in ExpenseInput) (*domain.Expense, error)
	Delete(ctx context.Context, traceID, userID, id string) error
	Summary(ctx context.Context, traceID, userID string, month time.Time) (*AnalyticsSummary, error)
	Insights(ctx context.Context, traceID, userID string) ([]Insight, error)
	ScanReceipt(ctx context.Context, traceID, userID, filename string, image io.Reader) (*ScanResult, error)
	ParseVoice(ctx context.Context, traceID, userID, transcript string) (*ExpenseDraft, error)
}

type expenseService struct {
	cfg           *config.Config
	logger        pkglog.Logger
	expenses      repo.ExpenseRepository
	subscriptions repo.SubscriptionRepository
	extractor     ReceiptExtractor
	images        ImageStore
}

func NewExpenseService(cfg *config.Config, logger pkglog.Logger, expenses repo.ExpenseRepository, subscriptions repo.SubscriptionRepository, extractor ReceiptExtractor, images ImageStore) ExpenseService {
	return &expenseService{cfg: cfg, logger: logger, expenses: expenses, subscriptions: subscriptions, extractor: extractor, images: images}
}

func (s *expenseService) Create(ctx context.Context, traceID, userID string, in ExpenseInput) (*domain.Expense, error) {
	if err := validateExpense(in); err != nil {
		return nil, err
	}
	expense := &domain.Expense{
		UserID:      userID,
		Amount:      in.Amount,
		Category:    in.Category,
		Description: in.Description,
		Date:        in.Date,
		Source:      domain.ExpenseSourceManual,
	}
	if err := s.expenses.Create(ctx, expense); err != nil {
		return nil, err
	}
	s.logger.Info().Str("trace_id", traceID).Str("expense_id", expense.ID).Msg("expense created")
	return expense, nil
}

func (s *expenseService) List(ctx context.Context, traceID, userID string, filter repo.ExpenseFilter) ([]domain.Expense, error) {
	return s.expenses.List(ctx, userID, filter)
}

func (s *expenseService) Get(ctx context.Context, traceID, userID, id string) (*domain.Expense, error) {
	expense, err := s.expenses.FindByID(ctx, userID, id)
	if err != nil {
		return nil, ErrExpenseNotFound
	}
	return expense, nil
}

func (s *expenseService) Update(ctx context.Context, traceID, userID, id string, in ExpenseInput) (*domain.Expense, error) {
	if err := validateExpense(in); err != nil {
		return nil, err
	}
	expense, err := s.expenses.FindByID(ctx, userID, id)
	if err != nil {
		return nil, ErrExpenseNotFound
	}
	expense.Amount = in.Amount
	expense.Category = in.Category
	expense.Description = in.Description
	expense.Date = in.Date
	if err := s.expenses.Update(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *expenseService) Delete(ctx context.Context, traceID, userID, id string) error {
	if err := s.expenses.Delete(ctx, userID, id); err != nil {
		return ErrExpenseNotFound
	}
	return nil
}

func (s *expenseService) Summary(ctx context.Context, traceID, userID string, month time.Time) (*AnalyticsSummary, error) {
	from := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	expenses, err := s.expenses.List(ctx, userID, repo.ExpenseFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}
	summary := &AnalyticsSummary{ByCategory: map[string]float64{}}
	daily := map[string]float64{}
	for _, e := range expenses {
		summary.Total += e.Amount
		summary.ByCategory[e.Category] += e.Amount
		daily[e.Date.UTC().Format("2006-01-02")] += e.Amount
	}
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		summary.Daily = append(summary.Daily, DailyTotal{Day: key, Total: daily[key]})
	}
	return summary, nil
}

// Insights needs a minimum of history to say anything useful; below that it
// returns an empty set rather than an error. At most the 100 most recent
// expenses go to the model.
const (
	insightsMinExpenses = 5
	insightsMaxExpenses = 100
)

func (s *expenseService) Insights(ctx context.Context, traceID, userID string) ([]Insight, error) {
	expenses, err := s.expenses.List(ctx, userID, repo.ExpenseFilter{})
	if err != nil {
		return nil, err
	}
	if len(expenses) < insightsMinExpenses {
		return []Insight{}, nil
	}
	if len(expenses) > insightsMaxExpenses {
		expenses = expenses[:insightsMaxExpenses]
	}
	insights, err := s.extractor.GenerateInsights(ctx, expenses)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("trace_id", traceID).Str("user_id", userID).Int("insights", len(insights)).Msg("insights generated")
	return insights, nil
}

func (s *expenseService) ScanReceipt(ctx context.Context, traceID, userID, filename string, image io.Reader) (*ScanResult, error) {
	sub, err := s.subscriptions.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if !now.Before(sub.MonthResetDate) {
		sub.ReceiptsScannedThisMonth = 0
		sub.MonthResetDate = nextMonthStart(now)
	}
	if sub.Tier != domain.TierPremium && sub.ReceiptsScannedThisMonth >= s.cfg.FreeScanLimit {
		return nil, ErrScanLimitReached
	}

	url, err := s.images.Upload(ctx, filename, image)
	if err != nil {
		return nil, err
	}
	draft, err := s.extractor.ExtractReceipt(ctx, url)
	if err != nil {
		return nil, err
	}
	if !domain.ValidCategory(draft.Category) {
		draft.Category = "other"
	}

	sub.ReceiptsScannedThisMonth++
	if err := s.subscriptions.Update(ctx, sub); err != nil {
		return nil, err
	}

	result := &ScanResult{Draft: draft, ReceiptURL: url, Unlimited: sub.Tier == domain.TierPremium}
	if !result.Unlimited {
		result.ScansRemaining = s.cfg.FreeScanLimit - sub.ReceiptsScannedThisMonth
	}
	s.logger.Info().Str("trace_id", traceID).Str("user_id", userID).Msg("receipt scanned")
	return result, nil
}

func (s *expenseService) ParseVoice(ctx context.Context, traceID, userID, transcript string) (*ExpenseDraft, error) {
	if transcript == "" {
		return nil, ErrInvalidExpense
	}
	draft, err := s.extractor.ParseTranscript(ctx, transcript)
	if err != nil {
		return nil, err
	}
	if !domain.ValidCategory(draft.Category) {
		draft.Category = "other"
	}
	if draft.Date.IsZero() {
		draft.Date = time.Now().UTC()
	}
	s.logger.Info().Str("trace_id", traceID).Str("user_id", userID).Msg("voice transcript parsed")
	return draft, nil
}

func validateExpense(in ExpenseInput) error {
	if in.Amount <= 0 || !domain.ValidCategory(in.Category) || in.Date.IsZero() {
		return ErrInvalidExpense
	}
	return nil
}
