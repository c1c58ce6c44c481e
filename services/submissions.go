package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"yanfarm/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const MaxProofImages = 5

type ClaimResult struct {
	SubmissionID  uint `json:"submissionId"`
	CooldownHours int  `json:"cooldownHours"`
}

type SubmissionView struct {
	models.Submission
	TaskTitle   string  `json:"task_title"`
	TaskReward  float64 `json:"task_reward"`
	Platform    string  `json:"platform"`
	AccountName string  `json:"account_name"`
}

// SubmissionEngine turns a claim into a pending submission and lets the
// owner attach proof while it waits for review.
type SubmissionEngine struct {
	db       *gorm.DB
	catalog  *Catalog
	registry *Registry

	drawCooldown func() time.Duration
}

func NewSubmissionEngine(db *gorm.DB) *SubmissionEngine {
	return &SubmissionEngine{
		db:           db,
		catalog:      NewCatalog(db),
		registry:     NewRegistry(db),
		drawCooldown: DrawCooldown,
	}
}

// Claim reserves a slot of taskID for userID using accountID. The slot, the
// account cooldown and the pending submission are written together or not
// at all.
func (e *SubmissionEngine) Claim(userID, taskID, accountID uint, now time.Time) (ClaimResult, error) {
	now = now.UTC().Truncate(time.Second)
	cooldown := e.drawCooldown()

	var result ClaimResult
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var acc models.WorkAccount
		if err := tx.Where("id = ? AND user_id = ?", accountID, userID).First(&acc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: work account not found", ErrAccountIneligible)
			}
			return err
		}
		if acc.Status != models.WorkAccountApproved {
			return fmt.Errorf("%w: work account %q is %s", ErrAccountIneligible, acc.AccountName, acc.Status)
		}
		if !acc.Available(now) {
			return &CooldownError{AccountName: acc.AccountName, HoursLeft: hoursLeft(*acc.CooldownUntil, now)}
		}

		var active int64
		err := tx.Model(&models.Submission{}).
			Where("task_id = ? AND user_id = ? AND status IN ?", taskID, userID,
				[]models.SubmissionStatus{models.SubmissionPending, models.SubmissionApproved}).
			Count(&active).Error
		if err != nil {
			return err
		}
		if active > 0 {
			return ErrAlreadyClaimed
		}

		key := models.ActiveKey(taskID, userID)
		sub := models.Submission{
			TaskID:        taskID,
			UserID:        userID,
			WorkAccountID: acc.ID,
			ProofImages:   datatypes.JSON("[]"),
			Status:        models.SubmissionPending,
			ActiveKey:     &key,
			SubmittedAt:   now,
		}
		if err := tx.Create(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyClaimed
			}
			return err
		}

		ok, err := e.catalog.DecrementSlot(tx, taskID)
		if err != nil {
			return err
		}
		if !ok {
			var task models.Task
			if err := tx.Select("id", "status").First(&task, taskID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFound("task")
				}
				return err
			}
			if task.Status != models.TaskActive {
				return notFound("active task")
			}
			return ErrNoSlots
		}

		if err := e.registry.Arm(tx, acc.ID, userID, now, cooldown); err != nil {
			return err
		}

		result = ClaimResult{
			SubmissionID:  sub.ID,
			CooldownHours: int(math.Round(cooldown.Hours())),
		}
		return nil
	})
	if err != nil {
		return ClaimResult{}, classify("claim task", err)
	}
	return result, nil
}

// AttachProof stores proof on a pending submission owned by userID,
// replacing what was attached before.
func (e *SubmissionEngine) AttachProof(submissionID, userID uint, proofText string, images []string) error {
	proofText = strings.TrimSpace(proofText)
	if len(images) > MaxProofImages {
		return validationf("at most %d proof images are allowed", MaxProofImages)
	}
	if proofText == "" && len(images) == 0 {
		return validationf("proof text or at least one image is required")
	}
	if images == nil {
		images = []string{}
	}
	raw, err := json.Marshal(images)
	if err != nil {
		return validationf("invalid image list")
	}

	updates := map[string]any{"proof_images": datatypes.JSON(raw), "proof_text": nil}
	if proofText != "" {
		updates["proof_text"] = proofText
	}
	res := e.db.Model(&models.Submission{}).
		Where("id = ? AND user_id = ? AND status = ?", submissionID, userID, models.SubmissionPending).
		Updates(updates)
	if res.Error != nil {
		return classify("attach proof", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// MySQL reports zero affected rows when the same proof is sent twice, so
	// a pending submission here means the update was a no-op.
	return e.PendingOwned(submissionID, userID)
}

// PendingOwned returns nil when submissionID belongs to userID and still
// accepts proof. Handlers call it before storing any upload.
func (e *SubmissionEngine) PendingOwned(submissionID, userID uint) error {
	var sub models.Submission
	if err := e.db.Select("id", "status").Where("id = ? AND user_id = ?", submissionID, userID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("submission")
		}
		return classify("check submission", err)
	}
	if sub.Status != models.SubmissionPending {
		return invalidState("submission is already %s", sub.Status)
	}
	return nil
}

// ListMine returns the user's submissions with their task and account, most
// recent first.
func (e *SubmissionEngine) ListMine(userID uint) ([]SubmissionView, error) {
	var out []SubmissionView
	err := e.db.Table("submissions").
		Select("submissions.*, tasks.title AS task_title, tasks.reward AS task_reward, work_accounts.platform AS platform, work_accounts.account_name AS account_name").
		Joins("LEFT JOIN tasks ON tasks.id = submissions.task_id").
		Joins("LEFT JOIN work_accounts ON work_accounts.id = submissions.work_account_id").
		Where("submissions.user_id = ?", userID).
		Order("submissions.submitted_at DESC, submissions.id DESC").
		Scan(&out).Error
	if err != nil {
		return nil, classify("list submissions", err)
	}
	return out, nil
}
