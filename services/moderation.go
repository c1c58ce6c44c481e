package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"yanfarm/logger"
	"yanfarm/models"
	"yanfarm/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ReviewItem struct {
	models.Submission
	TaskTitle   string  `json:"task_title"`
	TaskReward  float64 `json:"task_reward"`
	UserName    string  `json:"user_name"`
	UserEmail   string  `json:"user_email"`
	Platform    string  `json:"platform"`
	AccountName string  `json:"account_name"`
	AccountLink string  `json:"account_link"`
}

// Moderation settles submissions. Every decision is a conditional status
// change, so a submission is paid or refunded at most once.
type Moderation struct {
	db      *gorm.DB
	catalog *Catalog
}

func NewModeration(db *gorm.DB) *Moderation {
	return &Moderation{db: db, catalog: NewCatalog(db)}
}

// ListForReview returns submissions in status, oldest first. An empty status
// lists everything.
func (m *Moderation) ListForReview(status models.SubmissionStatus) ([]ReviewItem, error) {
	q := m.db.Table("submissions").
		Select("submissions.*, tasks.title AS task_title, tasks.reward AS task_reward, " +
			"users.name AS user_name, users.email AS user_email, " +
			"work_accounts.platform AS platform, work_accounts.account_name AS account_name, work_accounts.account_link AS account_link").
		Joins("LEFT JOIN tasks ON tasks.id = submissions.task_id").
		Joins("LEFT JOIN users ON users.id = submissions.user_id").
		Joins("LEFT JOIN work_accounts ON work_accounts.id = submissions.work_account_id")
	if status != "" {
		q = q.Where("submissions.status = ?", status)
	}
	var out []ReviewItem
	if err := q.Order("submissions.submitted_at ASC, submissions.id ASC").Scan(&out).Error; err != nil {
		return nil, classify("list submissions for review", err)
	}
	return out, nil
}

func (m *Moderation) ListPending() ([]ReviewItem, error) {
	return m.ListForReview(models.SubmissionPending)
}

// transition moves a submission along action inside tx and returns the row
// as it was before the change.
func (m *Moderation) transition(tx *gorm.DB, id uint, action models.Action, updates map[string]any) (*models.Submission, error) {
	var sub models.Submission
	if err := tx.First(&sub, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("submission")
		}
		return nil, err
	}

	to, _ := models.SubmissionFlow.Target(action)
	updates["status"] = to
	res := tx.Model(&models.Submission{}).
		Where("id = ? AND status IN ?", id, models.SubmissionFlow.Sources(action)).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, invalidState("submission has already been reviewed")
	}
	return &sub, nil
}

// Approve accepts a pending submission and pays the task reward, plus the
// referral bonus to whoever invited the submitter.
func (m *Moderation) Approve(id uint, now time.Time) error {
	now = now.UTC().Truncate(time.Second)
	err := m.db.Transaction(func(tx *gorm.DB) error {
		sub, err := m.transition(tx, id, models.ActionApprove, map[string]any{"reviewed_at": now})
		if err != nil {
			return err
		}

		var task models.Task
		if err := tx.First(&task, sub.TaskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("task")
			}
			return err
		}

		res := tx.Model(&models.User{}).Where("id = ?", sub.UserID).Updates(map[string]any{
			"balance":         gorm.Expr("balance + ?", task.Reward),
			"tasks_completed": gorm.Expr("tasks_completed + 1"),
			"total_earned":    gorm.Expr("total_earned + ?", task.Reward),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound("user")
		}
		if err := credit(tx, sub.UserID, task.Reward, models.TxTaskReward,
			fmt.Sprintf("Reward for task %q", task.Title), now); err != nil {
			return err
		}

		return payReferral(tx, sub.UserID, &task, now)
	})
	return classify("approve submission", err)
}

func payReferral(tx *gorm.DB, userID uint, task *models.Task, now time.Time) error {
	if task.ReferralReward <= 0 {
		return nil
	}
	var user models.User
	if err := tx.Select("id", "referred_by").First(&user, userID).Error; err != nil {
		return err
	}
	if user.ReferredBy == nil {
		return nil
	}
	res := tx.Model(&models.User{}).Where("id = ?", *user.ReferredBy).Updates(map[string]any{
		"balance":           gorm.Expr("balance + ?", task.ReferralReward),
		"referral_earnings": gorm.Expr("referral_earnings + ?", task.ReferralReward),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		logger.Warn("referrer no longer exists", zap.Uint("user_id", userID), zap.Uint("referrer_id", *user.ReferredBy))
		return nil
	}
	return credit(tx, *user.ReferredBy, task.ReferralReward, models.TxReferralBonus,
		fmt.Sprintf("Referral bonus for task %q", task.Title), now)
}

// Reject declines a pending submission and gives its slot back to the task.
func (m *Moderation) Reject(id uint, comment string, now time.Time) error {
	now = now.UTC().Truncate(time.Second)
	updates := map[string]any{"reviewed_at": now, "active_key": nil, "admin_comment": nil}
	if c := strings.TrimSpace(comment); c != "" {
		updates["admin_comment"] = c
	}
	err := m.db.Transaction(func(tx *gorm.DB) error {
		sub, err := m.transition(tx, id, models.ActionReject, updates)
		if err != nil {
			return err
		}
		ok, err := m.catalog.IncrementSlot(tx, sub.TaskID)
		if err != nil {
			return err
		}
		if !ok {
			logger.Warn("slot not restored, task is full or gone",
				zap.Uint("submission_id", id), zap.Uint("task_id", sub.TaskID))
		}
		return nil
	})
	return classify("reject submission", err)
}

// credit writes a successful ledger entry for an amount already added to
// the user's balance.
func credit(tx *gorm.DB, userID uint, amount float64, kind, message string, now time.Time) error {
	return tx.Create(&models.Transaction{
		UserID:          userID,
		Amount:          amount,
		OrderID:         utils.GenerateOrderID(userID),
		TransactionFlow: models.FlowCredit,
		TransactionType: kind,
		Message:         &message,
		Status:          models.TxSuccess,
		CreatedAt:       now,
	}).Error
}
