package domain

import "time"

type Todo struct {
	ID           string     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID       string     `gorm:"type:uuid;index;not null" json:"userId"`
	Description  string     `gorm:"type:text;not null" json:"description"`
	StartTime    time.Time  `gorm:"not null" json:"startTime"`
	ReminderAt   *time.Time `gorm:"index" json:"reminderAt,omitempty"`
	ReminderSent bool       `gorm:"not null;default:false" json:"reminderSent"`
	Completed    bool       `gorm:"not null;default:false" json:"isCompleted"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Todo) TableName() string { return "todo" }
