package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type Submission struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	TaskID        uint             `gorm:"not null;index" json:"task_id"`
	UserID        uint             `gorm:"not null;index" json:"user_id"`
	WorkAccountID uint             `gorm:"not null;index" json:"work_account_id"`
	ProofText     *string          `gorm:"type:text" json:"proof_text,omitempty"`
	ProofImages   datatypes.JSON   `json:"proof_images"`
	Status        SubmissionStatus `gorm:"size:10;not null;default:'pending';index" json:"status"`
	AdminComment  *string          `gorm:"type:text" json:"admin_comment,omitempty"`
	// ActiveKey is set while the submission is pending or approved and NULL
	// once rejected, so its unique index allows one live claim per task and user.
	ActiveKey   *string    `gorm:"size:64;uniqueIndex" json:"-"`
	SubmittedAt time.Time  `gorm:"not null;index" json:"submitted_at"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
}

func (Submission) TableName() string {
	return "submissions"
}

func ActiveKey(taskID, userID uint) string {
	return fmt.Sprintf("%d:%d", taskID, userID)
}
