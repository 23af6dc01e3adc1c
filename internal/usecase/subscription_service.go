package usecase

import (
	"context"
	"time"

	"github.com/iolowookere217/xdulist/config"
	repo "github.com/iolowookere217/xdulist/internal/adapters/postgres"
	"github.com/iolowookere217/xdulist/internal/domain"
	pkglog "github.com/iolowookere217/xdulist/pkg/log"
)

type SubscriptionInfo struct {
	Tier                     string    `json:"tier"`
	ReceiptsScannedThisMonth int       `json:"receiptsScannedThisMonth"`
	ScanLimit                int       `json:"scanLimit,omitempty"`
	Unlimited                bool      `json:"unlimited"`
	MonthResetDate           time.Time `json:"monthResetDate"`
}

type SubscriptionService interface {
	Get(ctx context.Context, traceID, userID string) (*SubscriptionInfo, error)
	Upgrade(ctx context.Context, traceID, userID string) (*SubscriptionInfo, error)
}

type subscriptionService struct {
	cfg           *config.Config
	logger        pkglog.Logger
	subscriptions repo.SubscriptionRepository
}

func NewSubscriptionService(cfg *config.Config, logger pkglog.Logger, subscriptions repo.SubscriptionRepository) SubscriptionService {
	return &subscriptionService{cfg: cfg, logger: logger, subscriptions: subscriptions}
}

func (s *subscriptionService) Get(ctx context.Context, traceID, userID string) (*SubscriptionInfo, error) {
	sub, err := s.subscriptions.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.info(sub), nil
}

// Upgrade flips the stored tier. A token minted before the upgrade keeps its
// old tier claim until it expires or is refreshed; that staleness window is
// bounded by the access TTL and accepted.
func (s *subscriptionService) Upgrade(ctx context.Context, traceID, userID string) (*SubscriptionInfo, error) {
	sub, err := s.subscriptions.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	sub.Tier = domain.TierPremium
	if err := s.subscriptions.Update(ctx, sub); err != nil {
		return nil, err
	}
	s.logger.Info().Str("trace_id", traceID).Str("user_id", userID).Msg("subscription upgraded")
	return s.info(sub), nil
}

func (s *subscriptionService) info(sub *domain.Subscription) *SubscriptionInfo {
	info := &SubscriptionInfo{
		Tier:                     sub.Tier,
		ReceiptsScannedThisMonth: sub.ReceiptsScannedThisMonth,
		Unlimited:                sub.Tier == domain.TierPremium,
		MonthResetDate:           sub.MonthResetDate,
	}
	if !info.Unlimited {
		info.ScanLimit = s.cfg.FreeScanLimit
	}
	return info
}
