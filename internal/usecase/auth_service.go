package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/iolowookere217/xdulist/config"
	repo "github.com/iolowookere217/xdulist/internal/adapters/postgres"
	"github.com/iolowookere217/xdulist/internal/domain"
	pkglog "github.com/iolowookere217/xdulist/pkg/log"
)

// Refresh records whose expiry is older than this are eligible for the
// background purge. Expired records already fail lookup; this is housekeeping.
const refreshPurgeGrace = 24 * time.Hour

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailTaken          = errors.New("email already registered")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrAlreadyVerified     = errors.New("email already verified")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrInvalidVerification = errors.New("invalid or expired verification token")
)

type Mailer interface {
	SendVerification(ctx context.Context, email, fullName, link string) error
	SendWelcome(ctx context.Context, email, fullName string) error
}

type UserProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FullName      string `json:"fullName"`
	Avatar        string `json:"avatar,omitempty"`
	EmailVerified bool   `json:"isEmailVerified"`
	Tier          string `json:"tier"`
}

// Session is a freshly minted credential set. RefreshToken is the raw opaque
// value; the transport layer puts it in the cookie and nowhere else.
type Session struct {
	User             *UserProfile
	AccessToken      string
	ExpiresIn        int64
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// GoogleProfile is the identity asserted by Google sign-in, already validated
// at the OAuth boundary.
type GoogleProfile struct {
	GoogleID string `json:"googleId"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

type AuthService interface {
	Register(ctx context.Context, traceID, email, password, fullName string) (*UserProfile, error)
	Login(ctx context.Context, traceID, email, password string) (*Session, error)
	GoogleAuth(ctx context.Context, traceID string, profile GoogleProfile) (*Session, error)
	Logout(ctx context.Context, traceID, rawRefresh string) error
	Refresh(ctx context.Context, traceID, rawRefresh string) (*Session, error)
	Me(ctx context.Context, traceID, userID string) (*UserProfile, error)
	VerifyEmail(ctx context.Context, traceID, rawToken string) (*Session, error)
	ResendVerification(ctx context.Context, traceID, email string) error
	PurgeExpiredTokens(ctx context.Context) error
}

type authService struct {
	cfg           *config.Config
	logger        pkglog.Logger
	users         repo.UserRepository
	subscriptions repo.SubscriptionRepository
	refresh       repo.RefreshTokenRepository
	verifications repo.EmailVerificationRepository
	mailer        Mailer
	issuer        TokenIssuer
}

func NewAuthService(cfg *config.Config, logger pkglog.Logger, users repo.UserRepository, subscriptions repo.SubscriptionRepository, refresh repo.RefreshTokenRepository, verifications repo.EmailVerificationRepository, mailer Mailer, issuer TokenIssuer) AuthService {
	return &authService{cfg: cfg, logger: logger, users: users, subscriptions: subscriptions, refresh: refresh, verifications: verifications, mailer: mailer, issuer: issuer}
}

func (s *authService) Register(ctx context.Context, traceID, email, password, fullName string) (*UserProfile, error) {
	norm := normalizeEmail(email)
	if err := validateEmail(norm); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if strings.TrimSpace(fullName) == "" {
		return nil, fmt.Errorf("full name is required")
	}
	if _, err := s.users.FindByEmail(ctx, norm); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Hashing happens here, at the call site, never in a persistence hook.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{Email: norm, PasswordHash: string(hash), FullName: strings.TrimSpace(fullName)}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	sub := &domain.Subscription{
		UserID:         user.ID,
		Tier:           domain.TierFree,
		MonthResetDate: nextMonthStart(time.Now()),
	}
	if err := s.subscriptions.Create(ctx, sub); err != nil {
		return nil, err
	}

	if err := s.createVerification(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("trace_id", traceID).Str("user_id", user.ID).Msg("user registered")
	return s.profile(user, domain.TierFree), nil
}

func (s *authService) Login(ctx context.Context, traceID, email, password string) (*Session, error) {
	norm := normalizeEmail(email)
	user, err := s.users.FindByEmail(ctx, norm)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	now := time.Now()
	user.LastLoginAt = &now
	_ = s.users.Update(ctx, user)

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("trace_id", traceID).Str("user_id", user.ID).Msg("login")
	return session, nil
}

// GoogleAuth finds the account by Google ID, links it into an existing email
// account, or creates a fresh one. Google has already verified the address, so
// the email-verification gate does not apply here.
func (s *authService) GoogleAuth(ctx context.Context, traceID string, profile GoogleProfile) (*Session, error) {
	if profile.GoogleID == "" {
		return nil, ErrInvalidCredentials
	}
	norm := normalizeEmail(profile.Email)
	if err := validateEmail(norm); err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByGoogleID(ctx, profile.GoogleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err = s.users.FindByEmail(ctx, norm)
	}
	switch {
	case err == nil && user.GoogleID == nil:
		// Existing password account: link it.
		user.GoogleID = &profile.GoogleID
		user.EmailVerified = true
		if user.AvatarURL == "" && profile.Avatar != "" {
			user.AvatarURL = profile.Avatar
		}
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info().Str("trace_id", traceID).Str("user_id", user.ID).Msg("google account linked")
	case errors.Is(err, gorm.ErrRecordNotFound):
		fullName := strings.TrimSpace(profile.FullName)
		if fullName == "" {
			fullName = strings.SplitN(norm, "@", 2)[0]
		}
		user = &domain.User{
			Email:         norm,
			FullName:      fullName,
			GoogleID:      &profile.GoogleID,
			AvatarURL:     profile.Avatar,
			EmailVerified: true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
		sub := &domain.Subscription{
			UserID:         user.ID,
			Tier:           domain.TierFree,
			MonthResetDate: nextMonthStart(time.Now()),
		}
		if err := s.subscriptions.Create(ctx, sub); err != nil {
			return nil, err
		}
		s.sendAsync(traceID, "welcome email", func(ctx context.Context) error {
			return s.mailer.SendWelcome(ctx, user.Email, user.FullName)
		})
		s.logger.Info().Str("trace_id", traceID).Str("user_id", user.ID).Msg("user registered via google")
	case err != nil:
		return nil, err
	}

	now := time.Now()
	user.LastLoginAt = &now
	_ = s.users.Update(ctx, user)

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("trace_id", traceID).Str("user_id", user.ID).Msg("google login")
	return session, nil
}

// Logout is idempotent; revoking an unknown or already-deleted token is fine.
func (s *authService) Logout(ctx context.Context, traceID, rawRefresh string) error {
	if rawRefresh == "" {
		return nil
	}
	if err := s.refresh.DeleteByHash(ctx, HashToken(rawRefresh)); err != nil {
		return err
	}
	s.logger.Info().Str("trace_id", traceID).Msg("logout")
	return nil
}

func (s *authService) Refresh(ctx context.Context, traceID, rawRefresh string) (*Session, error) {
	if strings.TrimSpace(rawRefresh) == "" {
		return nil, ErrInvalidRefreshToken
	}
	record, err := s.refresh.FindValid(ctx, HashToken(rawRefresh))
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	user, err := s.users.FindByID(ctx, record.UserID)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	tier := s.tierFor(ctx, user.ID)
	pair, err := s.issuer.Issue(user.ID, user.Email, tier)
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(s.issuer.RefreshTTL())
	replacement := &domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: HashToken(pair.RefreshToken),
		ExpiresAt: expiresAt,
	}
	// Losing the rotation race means another consumer of this raw value got
	// there first; the correct outcome is a forced re-authentication.
	if err := s.refresh.Rotate(ctx, record.ID, replacement); err != nil {
		return nil, ErrInvalidRefreshToken
	}
	s.logger.Info().Str("trace_id", traceID).Str("user_id", user.ID).Msg("token refreshed")
	return &Session{
		User:             s.profile(user, tier),
		AccessToken:      pair.AccessToken,
		ExpiresIn:        pair.ExpiresIn,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: expiresAt,
	}, nil
}

func (s *authService) Me(ctx context.Context, traceID, userID string) (*UserProfile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return s.profile(user, s.tierFor(ctx, user.ID)), nil
}

func (s *authService) VerifyEmail(ctx context.Context, traceID, rawToken string) (*Session, error) {
	if rawToken == "" {
		return nil, ErrInvalidVerification
	}
	record, err := s.verifications.FindValid(ctx, HashToken(rawToken))
	if err != nil {
		return nil, ErrInvalidVerification
	}
	user, err := s.users.FindByID(ctx, record.UserID)
	if err != nil {
		return nil, ErrInvalidVerification
	}
	user.EmailVerified = true
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	_ = s.verifications.DeleteByID(ctx, record.ID)

	s.sendAsync(traceID, "welcome email", func(ctx context.Context) error {
		return s.mailer.SendWelcome(ctx, user.Email, user.FullName)
	})

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("trace_id", traceID).Str("user_id", user.ID).Msg("email verified")
	return session, nil
}

func (s *authService) ResendVerification(ctx context.Context, traceID, email string) error {
	norm := normalizeEmail(email)
	user, err := s.users.FindByEmail(ctx, norm)
	if err != nil {
		return ErrUserNotFound
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}
	// Older tokens for this owner stop working the moment a resend happens.
	if err := s.verifications.DeleteByUserID(ctx, user.ID); err != nil {
		return err
	}
	if err := s.createVerification(ctx, user); err != nil {
		return err
	}
	s.logger.Info().Str("trace_id", traceID).Str("user_id", user.ID).Msg("verification resent")
	return nil
}

func (s *authService) PurgeExpiredTokens(ctx context.Context) error {
	return s.refresh.DeleteExpiredBefore(ctx, time.Now().Add(-refreshPurgeGrace))
}

func (s *authService) issueSession(ctx context.Context, user *domain.User) (*Session, error) {
	tier := s.tierFor(ctx, user.ID)
	pair, err := s.issuer.Issue(user.ID, user.Email, tier)
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(s.issuer.RefreshTTL())
	record := &domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: HashToken(pair.RefreshToken),
		ExpiresAt: expiresAt,
	}
	if err := s.refresh.Create(ctx, record); err != nil {
		return nil, err
	}
	return &Session{
		User:             s.profile(user, tier),
		AccessToken:      pair.AccessToken,
		ExpiresIn:        pair.ExpiresIn,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: expiresAt,
	}, nil
}

func (s *authService) createVerification(ctx context.Context, user *domain.User) error {
	raw, err := NewOpaqueToken()
	if err != nil {
		return err
	}
	record := &domain.EmailVerification{
		UserID:    user.ID,
		TokenHash: HashToken(raw),
		ExpiresAt: time.Now().Add(s.cfg.VerificationTTL),
	}
	if err := s.verifications.Create(ctx, record); err != nil {
		return err
	}
	link := fmt.Sprintf("%s/verify-email?token=%s", s.cfg.FrontendURL, raw)
	s.sendAsync("", "verification email", func(ctx context.Context) error {
		return s.mailer.SendVerification(ctx, user.Email, user.FullName, link)
	})
	return nil
}

// sendAsync fires mail without blocking the caller's response. Mail provider
// latency or failure never turns a successful registration into an error.
func (s *authService) sendAsync(traceID, what string, send func(ctx context.Context) error) {
	if s.mailer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := send(ctx); err != nil {
			s.logger.Error().Str("trace_id", traceID).Err(err).Msgf("failed to send %s", what)
		}
	}()
}

func (s *authService) tierFor(ctx context.Context, userID string) string {
	sub, err := s.subscriptions.FindByUserID(ctx, userID)
	if err != nil {
		return domain.TierFree
	}
	return sub.Tier
}

func (s *authService) profile(user *domain.User, tier string) *UserProfile {
	return &UserProfile{
		ID:            user.ID,
		Email:         user.Email,
		FullName:      user.FullName,
		Avatar:        user.AvatarURL,
		EmailVerified: user.EmailVerified,
		Tier:          tier,
	}
}

func nextMonthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func validateEmail(email string) error {
	if !strings.Contains(email, "@") || len(email) > 255 {
		return fmt.Errorf("invalid email")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("password too short")
	}
	return nil
}
