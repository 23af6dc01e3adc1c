package usecase

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	repo "github.com/iolowookere217/xdulist/internal/adapters/postgres"
	"github.com/iolowookere217/xdulist/internal/domain"
	pkglog "github.com/iolowookere217/xdulist/pkg/log"
)

var ErrWrongPassword = errors.New("current password is incorrect")

type ProfileUpdate struct {
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// Profile bundles the identity with its subscription state; the account page
// renders both from one call.
type Profile struct {
	User         *UserProfile         `json:"user"`
	Subscription *domain.Subscription `json:"subscription"`
}

type UserService interface {
	Profile(ctx context.Context, traceID, userID string) (*Profile, error)
	UpdateProfile(ctx context.Context, traceID, userID string, in ProfileUpdate) (*UserProfile, error)
	ChangePassword(ctx context.Context, traceID, userID, currentPassword, newPassword string) error
}

type userService struct {
	logger        pkglog.Logger
	users         repo.UserRepository
	subscriptions repo.SubscriptionRepository
}

func NewUserService(logger pkglog.Logger, users repo.UserRepository, subscriptions repo.SubscriptionRepository) UserService {
	return &userService{logger: logger, users: users, subscriptions: subscriptions}
}

func (s *userService) Profile(ctx context.Context, traceID, userID string) (*Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	sub, err := s.subscriptions.FindByUserID(ctx, userID)
	if err != nil {
		sub = &domain.Subscription{UserID: userID, Tier: domain.TierFree}
	}
	return &Profile{
		User: &UserProfile{
			ID:            user.ID,
			Email:         user.Email,
			FullName:      user.FullName,
			Avatar:        user.AvatarURL,
			EmailVerified: user.EmailVerified,
			Tier:          sub.Tier,
		},
		Subscription: sub,
	}, nil
}

// UpdateProfile changes display fields only; email and password have their own
// paths.
func (s *userService) UpdateProfile(ctx context.Context, traceID, userID string, in ProfileUpdate) (*UserProfile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if name := strings.TrimSpace(in.FullName); name != "" {
		user.FullName = name
	}
	if in.Avatar != "" {
		user.AvatarURL = in.Avatar
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info().Str("trace_id", traceID).Str("user_id", userID).Msg("profile updated")
	return &UserProfile{
		ID:            user.ID,
		Email:         user.Email,
		FullName:      user.FullName,
		Avatar:        user.AvatarURL,
		EmailVerified: user.EmailVerified,
	}, nil
}

func (s *userService) ChangePassword(ctx context.Context, traceID, userID, currentPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}
	// Google-only accounts have no password to verify against.
	if user.PasswordHash == "" {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrWrongPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	s.logger.Info().Str("trace_id", traceID).Str("user_id", userID).Msg("password changed")
	return nil
}
