package models

import "time"

type Withdrawal struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	UserID      uint             `gorm:"not null;index" json:"user_id"`
	OrderID     string           `gorm:"type:varchar(191);not null;uniqueIndex" json:"order_id"`
	Amount      float64          `gorm:"type:decimal(15,2);not null" json:"amount"`
	Method      string           `gorm:"size:50;not null" json:"method"`
	Details     string           `gorm:"type:text" json:"details"`
	Status      WithdrawalStatus `gorm:"size:10;not null;default:'pending';index" json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"-"`
	ProcessedAt *time.Time       `json:"processed_at,omitempty"`
}

func (Withdrawal) TableName() string {
	return "withdrawals"
}
