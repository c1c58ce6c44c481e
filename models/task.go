package models

import "time"

type TaskStatus string

const (
	TaskActive   TaskStatus = "active"
	TaskInactive TaskStatus = "inactive"
)

func (s TaskStatus) Valid() bool {
	return s == TaskActive || s == TaskInactive
}

// Task is a paid job with a fixed number of slots. 0 <= RemainingSlots <= TotalSlots
// always holds in the store.
type Task struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Title          string     `gorm:"size:200;not null" json:"title"`
	Description    string     `gorm:"type:text" json:"description"`
	Instructions   string     `gorm:"type:text" json:"instructions"`
	TimeEstimate   string     `gorm:"size:50" json:"time_estimate"`
	Reward         float64    `gorm:"type:decimal(15,2);not null" json:"reward"`
	ReferralReward float64    `gorm:"type:decimal(15,2);not null;default:0" json:"referral_reward"`
	TotalSlots     int        `gorm:"not null" json:"total_slots"`
	RemainingSlots int        `gorm:"not null" json:"remaining_slots"`
	Status         TaskStatus `gorm:"size:10;not null;default:'active';index" json:"status"`
	CreatedBy      uint       `gorm:"index" json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"-"`
}

func (Task) TableName() string {
	return "tasks"
}
