package models

import "time"

// WorkAccount is a user's account on an external review platform. Only
// approved accounts off cooldown may be used to claim a task.
type WorkAccount struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	UserID        uint              `gorm:"not null;index" json:"user_id"`
	Platform      string            `gorm:"size:50;not null" json:"platform"`
	AccountName   string            `gorm:"size:100;not null" json:"account_name"`
	AccountLink   string            `gorm:"size:255" json:"account_link"`
	Screenshot    *string           `gorm:"size:255" json:"screenshot,omitempty"`
	ProofText     *string           `gorm:"type:text" json:"proof_text,omitempty"`
	Status        WorkAccountStatus `gorm:"size:10;not null;default:'pending';index" json:"status"`
	AdminComment  *string           `gorm:"type:text" json:"admin_comment,omitempty"`
	LastUsedAt    *time.Time        `json:"last_used_at,omitempty"`
	CooldownUntil *time.Time        `gorm:"index" json:"cooldown_until,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	ReviewedAt    *time.Time        `json:"reviewed_at,omitempty"`
}

func (WorkAccount) TableName() string {
	return "work_accounts"
}

// Available reports whether the account is off cooldown at now.
func (a WorkAccount) Available(now time.Time) bool {
	return a.CooldownUntil == nil || !a.CooldownUntil.After(now)
}
