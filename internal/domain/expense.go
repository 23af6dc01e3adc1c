package domain

import "time"

const (
	ExpenseSourceManual  = "manual"
	ExpenseSourceReceipt = "receipt"
	ExpenseSourceVoice   = "voice"
)

var ExpenseCategories = []string{
	"food", "transport", "shopping", "entertainment", "bills", "health", "education", "other",
}

type Expense struct {
	ID          string    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      string    `gorm:"type:uuid;index;not null" json:"userId"`
	Amount      float64   `gorm:"not null" json:"amount"`
	Category    string    `gorm:"type:text;not null" json:"category"`
	Description string    `gorm:"type:text" json:"description"`
	Date        time.Time `gorm:"not null;index" json:"date"`
	Source      string    `gorm:"type:text;not null;default:'manual'" json:"source"`
	ReceiptURL  string    `gorm:"type:text" json:"receiptUrl,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Expense) TableName() string { return "expense" }

func ValidCategory(category string) bool {
	for _, c := range ExpenseCategories {
		if c == category {
			return true
		}
	}
	return false
}
