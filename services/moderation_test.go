package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"yanfarm/models"
)

func claimOne(t *testing.T, engine *SubmissionEngine, userID, taskID, accID uint) uint {
	t.Helper()
	res, err := engine.Claim(userID, taskID, accID, baseTime)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	return res.SubmissionID
}

func TestRejectRestoresSlot(t *testing.T) {
	db := newTestDB(t)
	engine := NewSubmissionEngine(db)
	mod := NewModeration(db)

	task := seedTask(t, db, 2, 25)
	user := seedUser(t, db, 0)
	acc := seedAccount(t, db, user.ID, models.WorkAccountApproved)
	subID := claimOne(t, engine, user.ID, task.ID, acc.ID)
	if got := reloadTask(t, db, task.ID).RemainingSlots; got != 1 {
		t.Fatalf("expected 1 remaining after claim, got %d", got)
	}

	if err := mod.Reject(subID, "blurry screenshot", baseTime.Add(time.Hour)); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got := reloadTask(t, db, task.ID).RemainingSlots; got != 2 {
		t.Fatalf("expected slot restored to 2, got %d", got)
	}
	var sub models.Submission
	db.First(&sub, subID)
	if sub.Status != models.SubmissionRejected || sub.AdminComment == nil || *sub.AdminComment != "blurry screenshot" {
		t.Fatalf("unexpected submission after reject: %+v", sub)
	}
	if sub.ActiveKey != nil {
		t.Fatalf("active key must be cleared on reject")
	}
	if u := reloadUser(t, db, user.ID); u.Balance != 0 {
		t.Fatalf("reject must not pay, balance=%v", u.Balance)
	}

	if err := mod.Reject(subID, "again", baseTime.Add(2*time.Hour)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("double reject should be ErrInvalidState, got %v", err)
	}
	if err := mod.Approve(subID, baseTime.Add(2*time.Hour)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("approve after reject should be ErrInvalidState, got %v", err)
	}
	if got := reloadTask(t, db, task.ID).RemainingSlots; got != 2 {
		t.Fatalf("double reject changed slots: %d", got)
	}

	// a rejected claim frees the user to try the task again once the account cools down
	acc2 := seedAccount(t, db, user.ID, models.WorkAccountApproved)
	if _, err := engine.Claim(user.ID, task.ID, acc2.ID, baseTime.Add(3*time.Hour)); err != nil {
		t.Fatalf("reclaim after reject: %v", err)
	}
}

func TestModerationNotFound(t *testing.T) {
	db := newTestDB(t)
	mod := NewModeration(db)
	if err := mod.Approve(777, baseTime); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mod.Reject(777, "", baseTime); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentApproveCreditsOnce(t *testing.T) {
	db := newTestDB(t)
	engine := NewSubmissionEngine(db)
	mod := NewModeration(db)

	task := seedTask(t, db, 1, 25)
	user := seedUser(t, db, 0)
	acc := seedAccount(t, db, user.ID, models.WorkAccountApproved)
	subID := claimOne(t, engine, user.ID, task.ID, acc.ID)

	const admins = 8
	var wg sync.WaitGroup
	errs := make([]error, admins)
	for i := 0; i < admins; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = mod.Approve(subID, baseTime)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else if !errors.Is(err, ErrInvalidState) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected one winning approve, got %d", ok)
	}
	if u := reloadUser(t, db, user.ID); u.Balance != 25 || u.TasksCompleted != 1 {
		t.Fatalf("reward paid more than once: %+v", u)
	}
}

func TestConcurrentApproveAndReject(t *testing.T) {
	db := newTestDB(t)
	engine := NewSubmissionEngine(db)
	mod := NewModeration(db)

	task := seedTask(t, db, 1, 25)
	user := seedUser(t, db, 0)
	acc := seedAccount(t, db, user.ID, models.WorkAccountApproved)
	subID := claimOne(t, engine, user.ID, task.ID, acc.ID)

	var wg sync.WaitGroup
	var approveErr, rejectErr error
	wg.Add(2)
	go func() { defer wg.Done(); approveErr = mod.Approve(subID, baseTime) }()
	go func() { defer wg.Done(); rejectErr = mod.Reject(subID, "dup", baseTime) }()
	wg.Wait()

	if (approveErr == nil) == (rejectErr == nil) {
		t.Fatalf("exactly one decision must win: approve=%v reject=%v", approveErr, rejectErr)
	}
	u := reloadUser(t, db, user.ID)
	slots := reloadTask(t, db, task.ID).RemainingSlots
	if approveErr == nil && (u.Balance != 25 || slots != 0) {
		t.Fatalf("approve won but state is balance=%v slots=%d", u.Balance, slots)
	}
	if rejectErr == nil && (u.Balance != 0 || slots != 1) {
		t.Fatalf("reject won but state is balance=%v slots=%d", u.Balance, slots)
	}
}

func TestApprovePaysReferrer(t *testing.T) {
	db := newTestDB(t)
	engine := NewSubmissionEngine(db)
	mod := NewModeration(db)

	inviter := seedUser(t, db, 0)
	user := seedUser(t, db, 0)
	db.Model(&models.User{}).Where("id = ?", user.ID).Update("referred_by", inviter.ID)

	task, err := NewCatalog(db).Create(TaskInput{Title: "Map review", Reward: 30, ReferralReward: 3, TotalSlots: 4}, 1, baseTime)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	acc := seedAccount(t, db, user.ID, models.WorkAccountApproved)
	subID := claimOne(t, engine, user.ID, task.ID, acc.ID)

	if err := mod.Approve(subID, baseTime); err != nil {
		t.Fatalf("approve: %v", err)
	}
	inv := reloadUser(t, db, inviter.ID)
	if inv.Balance != 3 || inv.ReferralEarnings != 3 {
		t.Fatalf("referrer not paid: balance=%v earnings=%v", inv.Balance, inv.ReferralEarnings)
	}
	if inv.TasksCompleted != 0 || inv.TotalEarned != 0 {
		t.Fatalf("referral bonus must not count as completed work")
	}
	if u := reloadUser(t, db, user.ID); u.Balance != 30 {
		t.Fatalf("user balance %v, want 30", u.Balance)
	}

	st, err := NewStats(db).Admin(baseTime)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TodayPayouts != 33 {
		t.Fatalf("today payouts %v, want 33", st.TodayPayouts)
	}
	dash, err := NewStats(db).UserDashboard(user.ID, baseTime)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.TodayEarned != 30 || dash.ApprovedAccounts != 1 || dash.PendingSubmissions != 0 {
		t.Fatalf("unexpected dashboard %+v", dash)
	}
	if next, _ := NewStats(db).UserDashboard(user.ID, baseTime.Add(24*time.Hour)); next.TodayEarned != 0 {
		t.Fatalf("yesterday's reward counted today: %v", next.TodayEarned)
	}
}

func TestListForReview(t *testing.T) {
	db := newTestDB(t)
	engine := NewSubmissionEngine(db)
	mod := NewModeration(db)
	task := seedTask(t, db, 5, 10)

	var ids []uint
	for i := 0; i < 3; i++ {
		u := seedUser(t, db, 0)
		a := seedAccount(t, db, u.ID, models.WorkAccountApproved)
		ids = append(ids, claimOne(t, engine, u.ID, task.ID, a.ID))
	}
	if err := mod.Reject(ids[1], "", baseTime); err != nil {
		t.Fatalf("reject: %v", err)
	}

	pending, err := mod.ListPending()
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != ids[0] || pending[1].ID != ids[2] {
		t.Fatalf("unexpected pending queue: %+v", pending)
	}
	if pending[0].TaskTitle != task.Title || pending[0].UserEmail == "" || pending[0].Platform != "google_maps" {
		t.Fatalf("review item not joined: %+v", pending[0])
	}
	all, _ := mod.ListForReview("")
	if len(all) != 3 {
		t.Fatalf("expected 3 submissions overall, got %d", len(all))
	}
}
