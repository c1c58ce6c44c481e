package services

import (
	"errors"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"yanfarm/models"

	"gorm.io/gorm"
)

const (
	MinCooldown = 36 * time.Hour
	MaxCooldown = 48 * time.Hour
)

// DrawCooldown picks a cooldown uniformly from [MinCooldown, MaxCooldown]
// at one second resolution, both ends included.
func DrawCooldown() time.Duration {
	span := int64((MaxCooldown - MinCooldown) / time.Second)
	return MinCooldown + time.Duration(rand.Int64N(span+1))*time.Second
}

// hoursLeft rounds the remaining cooldown up to whole hours.
func hoursLeft(until, now time.Time) int {
	if !until.After(now) {
		return 0
	}
	return int(math.Ceil(until.Sub(now).Hours()))
}

type EligibleAccount struct {
	models.WorkAccount
	IsAvailable       bool `json:"is_available"`
	CooldownHoursLeft int  `json:"cooldown_hours_left"`
}

type WorkAccountInput struct {
	Platform    string
	AccountName string
	AccountLink string
	ProofText   string
	Screenshot  string
}

// Registry owns work accounts: registration, moderation, eligibility and the
// claim cooldown.
type Registry struct {
	db *gorm.DB
}

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// ListEligible returns the user's approved accounts, available ones first and
// the rest by the time they come off cooldown.
func (r *Registry) ListEligible(userID uint, now time.Time) ([]EligibleAccount, error) {
	var accounts []models.WorkAccount
	err := r.db.Where("user_id = ? AND status = ?", userID, models.WorkAccountApproved).
		Order("id ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, classify("list eligible accounts", err)
	}

	out := make([]EligibleAccount, 0, len(accounts))
	for _, a := range accounts {
		e := EligibleAccount{WorkAccount: a, IsAvailable: a.Available(now)}
		if !e.IsAvailable {
			e.CooldownHoursLeft = hoursLeft(*a.CooldownUntil, now)
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsAvailable != b.IsAvailable {
			return a.IsAvailable
		}
		switch {
		case a.CooldownUntil == nil && b.CooldownUntil == nil:
			return false
		case a.CooldownUntil == nil:
			return true
		case b.CooldownUntil == nil:
			return false
		}
		return a.CooldownUntil.Before(*b.CooldownUntil)
	})
	return out, nil
}

// Arm puts an approved, idle account on cooldown. It must run inside the
// claim transaction; zero matched rows means someone else used the account
// first or it is no longer approved.
func (r *Registry) Arm(tx *gorm.DB, accountID, userID uint, now time.Time, d time.Duration) error {
	until := now.Add(d)
	res := tx.Model(&models.WorkAccount{}).
		Where("id = ? AND user_id = ? AND status = ?", accountID, userID, models.WorkAccountApproved).
		Where("(cooldown_until IS NULL OR cooldown_until <= ?)", now).
		Updates(map[string]any{"last_used_at": now, "cooldown_until": until})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAccountIneligible
	}
	return nil
}

// Normalize trims the input and checks required fields and lengths.
func (in *WorkAccountInput) Normalize() error {
	in.Platform = strings.TrimSpace(in.Platform)
	in.AccountName = strings.TrimSpace(in.AccountName)
	in.AccountLink = strings.TrimSpace(in.AccountLink)
	switch {
	case in.Platform == "":
		return validationf("platform is required")
	case in.AccountName == "":
		return validationf("account name is required")
	case len(in.AccountName) > 100 || len(in.Platform) > 50 || len(in.AccountLink) > 255:
		return validationf("field too long")
	}
	return nil
}

func (r *Registry) Create(userID uint, in WorkAccountInput, now time.Time) (*models.WorkAccount, error) {
	if err := in.Normalize(); err != nil {
		return nil, err
	}

	acc := models.WorkAccount{
		UserID:      userID,
		Platform:    in.Platform,
		AccountName: in.AccountName,
		AccountLink: in.AccountLink,
		Status:      models.WorkAccountPending,
		CreatedAt:   now,
	}
	if t := strings.TrimSpace(in.ProofText); t != "" {
		acc.ProofText = &t
	}
	if in.Screenshot != "" {
		acc.Screenshot = &in.Screenshot
	}
	if err := r.db.Create(&acc).Error; err != nil {
		return nil, classify("create work account", err)
	}
	return &acc, nil
}

func (r *Registry) ListMine(userID uint) ([]models.WorkAccount, error) {
	var accounts []models.WorkAccount
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&accounts).Error; err != nil {
		return nil, classify("list work accounts", err)
	}
	return accounts, nil
}

func (r *Registry) CountApproved(userID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.WorkAccount{}).
		Where("user_id = ? AND status = ?", userID, models.WorkAccountApproved).
		Count(&n).Error
	return n, classify("count approved accounts", err)
}

type ModerationAccount struct {
	models.WorkAccount
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

// ListForModeration lists accounts for the admin queue, optionally filtered
// by status, oldest first.
func (r *Registry) ListForModeration(status models.WorkAccountStatus) ([]ModerationAccount, error) {
	q := r.db.Table("work_accounts").
		Select("work_accounts.*, users.name AS user_name, users.email AS user_email").
		Joins("LEFT JOIN users ON users.id = work_accounts.user_id")
	if status != "" {
		q = q.Where("work_accounts.status = ?", status)
	}
	var out []ModerationAccount
	if err := q.Order("work_accounts.created_at ASC, work_accounts.id ASC").Scan(&out).Error; err != nil {
		return nil, classify("list accounts for moderation", err)
	}
	return out, nil
}

func (r *Registry) Approve(id uint, now time.Time) error {
	return r.moderate(id, models.ActionApprove, "", now)
}

func (r *Registry) Reject(id uint, comment string, now time.Time) error {
	return r.moderate(id, models.ActionReject, comment, now)
}

func (r *Registry) moderate(id uint, action models.Action, comment string, now time.Time) error {
	to, _ := models.WorkAccountFlow.Target(action)
	updates := map[string]any{"status": to, "reviewed_at": now, "admin_comment": nil}
	if c := strings.TrimSpace(comment); c != "" {
		updates["admin_comment"] = c
	}
	res := r.db.Model(&models.WorkAccount{}).
		Where("id = ? AND status IN ?", id, models.WorkAccountFlow.Sources(action)).
		Updates(updates)
	if res.Error != nil {
		return classify("moderate work account", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var acc models.WorkAccount
	if err := r.db.Select("id", "status").First(&acc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("work account")
		}
		return classify("moderate work account", err)
	}
	return invalidState("work account is already %s", acc.Status)
}

// Delete removes an account owned by ownerID. Accounts that any submission
// references are kept.
func (r *Registry) Delete(id, ownerID uint) error {
	res := r.db.Where("id = ? AND user_id = ?", id, ownerID).
		Where("NOT EXISTS (SELECT 1 FROM submissions WHERE submissions.work_account_id = work_accounts.id)").
		Delete(&models.WorkAccount{})
	if res.Error != nil {
		return classify("delete work account", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var n int64
	if err := r.db.Model(&models.WorkAccount{}).Where("id = ? AND user_id = ?", id, ownerID).Count(&n).Error; err != nil {
		return classify("delete work account", err)
	}
	if n == 0 {
		return notFound("work account")
	}
	return ErrHasDependents
}
