package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/iolowookere217/xdulist/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *domain.Subscription) error
	FindByUserID(ctx context.Context, userID string) (*domain.Subscription, error)
	Update(ctx context.Context, sub *domain.Subscription) error
}

// RefreshTokenRepository stores only token hashes. Lookup is non-destructive;
// rotation and revocation are the explicit deletion paths.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	FindValid(ctx context.Context, hash string) (*domain.RefreshToken, error)
	Rotate(ctx context.Context, oldID string, replacement *domain.RefreshToken) error
	DeleteByHash(ctx context.Context, hash string) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) error
}

type EmailVerificationRepository interface {
	Create(ctx context.Context, token *domain.EmailVerification) error
	FindValid(ctx context.Context, hash string) (*domain.EmailVerification, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string) error
}

type userRepo struct{ db *gorm.DB }

type subscriptionRepo struct{ db *gorm.DB }

type refreshTokenRepo struct{ db *gorm.DB }

type emailVerificationRepo struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepo{db: db} }

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepo{db: db}
}

func NewEmailVerificationRepository(db *gorm.DB) EmailVerificationRepository {
	return &emailVerificationRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) FindByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where("google_id = ?", googleID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Update(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *subscriptionRepo) Create(ctx context.Context, sub *domain.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *subscriptionRepo) FindByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepo) Update(ctx context.Context, sub *domain.Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

func (r *refreshTokenRepo) Create(ctx context.Context, token *domain.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// FindValid treats absent and expired identically: callers get
// gorm.ErrRecordNotFound either way and learn nothing about which it was.
func (r *refreshTokenRepo) FindValid(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	var token domain.RefreshToken
	if err := r.db.WithContext(ctx).
		Where("token_hash = ? AND expires_at > ?", hash, time.Now()).
		First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// Rotate deletes the consumed record before inserting its replacement. The
// delete must remove exactly one row; a zero count means a concurrent rotation
// of the same token already won, and this caller must fail. If the insert
// fails after the delete the session is simply gone and the owner
// re-authenticates.
func (r *refreshTokenRepo) Rotate(ctx context.Context, oldID string, replacement *domain.RefreshToken) error {
	res := r.db.WithContext(ctx).Where("id = ?", oldID).Delete(&domain.RefreshToken{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return r.db.WithContext(ctx).Create(replacement).Error
}

func (r *refreshTokenRepo) DeleteByHash(ctx context.Context, hash string) error {
	return r.db.WithContext(ctx).Where("token_hash = ?", hash).Delete(&domain.RefreshToken{}).Error
}

func (r *refreshTokenRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) error {
	return r.db.WithContext(ctx).Where("expires_at < ?", cutoff).Delete(&domain.RefreshToken{}).Error
}

func (r *emailVerificationRepo) Create(ctx context.Context, token *domain.EmailVerification) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *emailVerificationRepo) FindValid(ctx context.Context, hash string) (*domain.EmailVerification, error) {
	var token domain.EmailVerification
	if err := r.db.WithContext(ctx).
		Where("token_hash = ? AND expires_at > ?", hash, time.Now()).
		First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *emailVerificationRepo) DeleteByID(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.EmailVerification{}).Error
}

func (r *emailVerificationRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.EmailVerification{}).Error
}
