package domain

import "time"

const (
	TierFree    = "free"
	TierPremium = "premium"
)

type User struct {
	ID    string `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email string `gorm:"uniqueIndex;not null" json:"email"`
	// Empty for accounts created through Google sign-in only.
	PasswordHash  string     `json:"-"`
	GoogleID      *string    `gorm:"uniqueIndex" json:"-"`
	FullName      string     `gorm:"not null" json:"fullName"`
	AvatarURL     string     `json:"avatar,omitempty"`
	EmailVerified bool       `gorm:"not null;default:false" json:"isEmailVerified"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string { return "app_user" }

// Subscription carries the tier gate and the receipt-scan quota window.
type Subscription struct {
	ID                       string    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID                   string    `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	Tier                     string    `gorm:"type:text;not null;default:'free'" json:"tier"`
	ReceiptsScannedThisMonth int       `gorm:"not null;default:0" json:"receiptsScannedThisMonth"`
	MonthResetDate           time.Time `gorm:"not null" json:"monthResetDate"`
	CreatedAt                time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt                time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Subscription) TableName() string { return "subscription" }
