package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Email            string     `gorm:"size:191;uniqueIndex;not null" json:"email"`
	Password         string     `gorm:"size:255;not null" json:"-"`
	Name             string     `gorm:"size:100;not null" json:"name"`
	Role             string     `gorm:"size:10;not null;default:'user'" json:"role"`
	AccountStatus    UserStatus `gorm:"size:20;not null;default:'pending';index" json:"account_status"`
	Balance          float64    `gorm:"type:decimal(15,2);not null;default:0" json:"balance"`
	TasksCompleted   int64      `gorm:"not null;default:0" json:"tasks_completed"`
	TotalEarned      float64    `gorm:"type:decimal(15,2);not null;default:0" json:"total_earned"`
	ReferralCode     string     `gorm:"size:20;uniqueIndex;not null" json:"referral_code"`
	ReferredBy       *uint      `gorm:"index" json:"referred_by,omitempty"`
	ReferralEarnings float64    `gorm:"type:decimal(15,2);not null;default:0" json:"referral_earnings"`
	ReferralsCount   int64      `gorm:"not null;default:0" json:"referrals_count"`
	LastLogin        *time.Time `json:"last_login,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"-"`
}

func (User) TableName() string {
	return "users"
}

// HashPassword replaces the plain password with its bcrypt hash.
func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) ValidatePassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
