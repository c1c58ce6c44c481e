package services

import (
	"errors"
	"strings"
	"time"

	"yanfarm/models"
	"yanfarm/utils"

	"gorm.io/gorm"
)

type TaskInput struct {
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Instructions   string            `json:"instructions"`
	TimeEstimate   string            `json:"time_estimate"`
	Reward         float64           `json:"reward"`
	ReferralReward float64           `json:"referral_reward"`
	TotalSlots     int               `json:"total_slots"`
	Status         models.TaskStatus `json:"status"`
}

func (in *TaskInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Instructions = strings.TrimSpace(in.Instructions)
	in.TimeEstimate = strings.TrimSpace(in.TimeEstimate)
	in.Reward = utils.RoundMoney(in.Reward)
	in.ReferralReward = utils.RoundMoney(in.ReferralReward)
	if in.Status == "" {
		in.Status = models.TaskActive
	}
	switch {
	case in.Title == "":
		return validationf("title is required")
	case len(in.Title) > 200:
		return validationf("title is too long")
	case in.Reward <= 0:
		return validationf("reward must be positive")
	case in.ReferralReward < 0:
		return validationf("referral reward cannot be negative")
	case in.TotalSlots < 1:
		return validationf("total slots must be at least 1")
	case !in.Status.Valid():
		return validationf("unknown status %q", in.Status)
	}
	return nil
}

// Catalog manages tasks and their slot counters.
type Catalog struct {
	db *gorm.DB
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// ListActive returns claimable tasks, newest first.
func (c *Catalog) ListActive() ([]models.Task, error) {
	var tasks []models.Task
	err := c.db.Where("status = ? AND remaining_slots > 0", models.TaskActive).
		Order("created_at DESC, id DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, classify("list active tasks", err)
	}
	return tasks, nil
}

func (c *Catalog) ListAll() ([]models.Task, error) {
	var tasks []models.Task
	if err := c.db.Order("created_at DESC, id DESC").Find(&tasks).Error; err != nil {
		return nil, classify("list tasks", err)
	}
	return tasks, nil
}

func (c *Catalog) Get(id uint) (*models.Task, error) {
	var task models.Task
	if err := c.db.First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("task")
		}
		return nil, classify("get task", err)
	}
	return &task, nil
}

func (c *Catalog) Create(in TaskInput, createdBy uint, now time.Time) (*models.Task, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	task := models.Task{
		Title:          in.Title,
		Description:    in.Description,
		Instructions:   in.Instructions,
		TimeEstimate:   in.TimeEstimate,
		Reward:         in.Reward,
		ReferralReward: in.ReferralReward,
		TotalSlots:     in.TotalSlots,
		RemainingSlots: in.TotalSlots,
		Status:         in.Status,
		CreatedBy:      createdBy,
		CreatedAt:      now,
	}
	if err := c.db.Create(&task).Error; err != nil {
		return nil, classify("create task", err)
	}
	return &task, nil
}

// reconcileSlots shifts remaining_slots by the change in total_slots and
// clamps it into [0, new total]. It is assigned before total_slots so both
// MySQL (left to right) and SQLite (old values) read the old total.
const reconcileSlots = `UPDATE tasks SET
	remaining_slots = CASE
		WHEN remaining_slots + (? - total_slots) < 0 THEN 0
		WHEN remaining_slots + (? - total_slots) > ? THEN ?
		ELSE remaining_slots + (? - total_slots)
	END,
	total_slots = ?,
	title = ?, description = ?, instructions = ?, time_estimate = ?,
	reward = ?, referral_reward = ?, status = ?, updated_at = ?
WHERE id = ?`

// Update replaces every editable field of a task in one statement.
func (c *Catalog) Update(id uint, in TaskInput, now time.Time) (*models.Task, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	n := in.TotalSlots
	err := c.db.Exec(reconcileSlots,
		n, n, n, n, n,
		n,
		in.Title, in.Description, in.Instructions, in.TimeEstimate,
		in.Reward, in.ReferralReward, in.Status, now,
		id,
	).Error
	if err != nil {
		return nil, classify("update task", err)
	}
	// MySQL reports zero affected rows for an unchanged row, so existence is
	// decided by reading it back.
	return c.Get(id)
}

// Delete removes a task that no submission references.
func (c *Catalog) Delete(id uint) error {
	res := c.db.Where("id = ?", id).
		Where("NOT EXISTS (SELECT 1 FROM submissions WHERE submissions.task_id = tasks.id)").
		Delete(&models.Task{})
	if res.Error != nil {
		return classify("delete task", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	if _, err := c.Get(id); err != nil {
		return err
	}
	return ErrHasDependents
}

// DecrementSlot takes one slot from an active task. It reports false when
// the task is missing, inactive or full.
func (c *Catalog) DecrementSlot(tx *gorm.DB, id uint) (bool, error) {
	res := tx.Model(&models.Task{}).
		Where("id = ? AND status = ? AND remaining_slots > 0", id, models.TaskActive).
		UpdateColumn("remaining_slots", gorm.Expr("remaining_slots - 1"))
	return res.RowsAffected == 1, res.Error
}

// IncrementSlot gives one slot back without passing total_slots.
func (c *Catalog) IncrementSlot(tx *gorm.DB, id uint) (bool, error) {
	res := tx.Model(&models.Task{}).
		Where("id = ? AND remaining_slots < total_slots", id).
		UpdateColumn("remaining_slots", gorm.Expr("remaining_slots + 1"))
	return res.RowsAffected == 1, res.Error
}
