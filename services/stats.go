package services

import (
	"time"

	"yanfarm/models"

	"gorm.io/gorm"
)

type AdminStats struct {
	ActiveUsers         int64   `json:"active_users"`
	ActiveTasks         int64   `json:"active_tasks"`
	TodayPayouts        float64 `json:"today_payouts"`
	PendingSubmissions  int64   `json:"pending_submissions"`
	PendingWorkAccounts int64   `json:"pending_work_accounts"`
	PendingWithdrawals  int64   `json:"pending_withdrawals"`
}

type Dashboard struct {
	User               *models.User `json:"user"`
	TodayEarned        float64      `json:"today_earned"`
	PendingSubmissions int64        `json:"pending_submissions"`
	ApprovedAccounts   int64        `json:"approved_accounts"`
}

type Stats struct {
	db *gorm.DB
}

func NewStats(db *gorm.DB) *Stats {
	return &Stats{db: db}
}

func startOfDay(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Admin summarises platform activity. Payouts count task rewards and
// referral bonuses credited since midnight UTC.
func (s *Stats) Admin(now time.Time) (*AdminStats, error) {
	var st AdminStats
	from := startOfDay(now)

	counts := []struct {
		dst   *int64
		model any
		where string
		args  []any
	}{
		{&st.ActiveUsers, &models.User{}, "role = ?", []any{models.RoleUser}},
		{&st.ActiveTasks, &models.Task{}, "status = ? AND remaining_slots > 0", []any{models.TaskActive}},
		{&st.PendingSubmissions, &models.Submission{}, "status = ?", []any{models.SubmissionPending}},
		{&st.PendingWorkAccounts, &models.WorkAccount{}, "status = ?", []any{models.WorkAccountPending}},
		{&st.PendingWithdrawals, &models.Withdrawal{}, "status = ?", []any{models.WithdrawalPending}},
	}
	for _, c := range counts {
		if err := s.db.Model(c.model).Where(c.where, c.args...).Count(c.dst).Error; err != nil {
			return nil, classify("admin stats", err)
		}
	}

	err := s.db.Model(&models.Transaction{}).
		Where("transaction_flow = ? AND transaction_type IN ? AND created_at >= ?",
			models.FlowCredit, []string{models.TxTaskReward, models.TxReferralBonus}, from).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&st.TodayPayouts).Error
	if err != nil {
		return nil, classify("admin stats", err)
	}
	return &st, nil
}

// UserDashboard returns the account summary shown on /api/me.
func (s *Stats) UserDashboard(userID uint, now time.Time) (*Dashboard, error) {
	user, err := NewUsers(s.db).Get(userID)
	if err != nil {
		return nil, err
	}
	d := Dashboard{User: user}

	err = s.db.Model(&models.Transaction{}).
		Where("user_id = ? AND transaction_flow = ? AND transaction_type IN ? AND created_at >= ?",
			userID, models.FlowCredit, []string{models.TxTaskReward, models.TxReferralBonus}, startOfDay(now)).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&d.TodayEarned).Error
	if err != nil {
		return nil, classify("user dashboard", err)
	}
	if err := s.db.Model(&models.Submission{}).
		Where("user_id = ? AND status = ?", userID, models.SubmissionPending).
		Count(&d.PendingSubmissions).Error; err != nil {
		return nil, classify("user dashboard", err)
	}
	if d.ApprovedAccounts, err = NewRegistry(s.db).CountApproved(userID); err != nil {
		return nil, err
	}
	return &d, nil
}
