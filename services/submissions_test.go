package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"yanfarm/models"
)

func TestClaimThenApproveScenario(t *testing.T) {
	db := newTestDB(t)
	engine := NewSubmissionEngine(db)
	mod := NewModeration(db)

	task := seedTask(t, db, 1, 25)
	alice := seedUser(t, db, 0)
	bob := seedUser(t, db, 0)
	aliceAcc := seedAccount(t, db, alice.ID, models.WorkAccountApproved)
	bobAcc := seedAccount(t, db, bob.ID, models.WorkAccountApproved)

	res, err := engine.Claim(alice.ID, task.ID, aliceAcc.ID, baseTime)
	if err != nil {
		t.Fatalf("alice claim: %v", err)
	}
	if res.CooldownHours < 36 || res.CooldownHours > 48 {
		t.Fatalf("cooldown hours out of range: %d", res.CooldownHours)
	}
	if got := reloadTask(t, db, task.ID).RemainingSlots; got != 0 {
		t.Fatalf("expected 0 remaining slots, got %d", got)
	}
	acc := reloadAccount(t, db, aliceAcc.ID)
	if acc.CooldownUntil == nil || acc.LastUsedAt == nil {
		t.Fatalf("cooldown not armed: %+v", acc)
	}
	if d := acc.CooldownUntil.Sub(baseTime); d < MinCooldown || d > MaxCooldown {
		t.Fatalf("stored cooldown %s out of range", d)
	}

	if _, err := engine.Claim(bob.ID, task.ID, bobAcc.ID, baseTime); !errors.Is(err, ErrNoSlots) {
		t.Fatalf("bob should hit ErrNoSlots, got %v", err)
	}
	if a := reloadAccount(t, db, bobAcc.ID); a.CooldownUntil != nil {
		t.Fatalf("failed claim must not arm bob's cooldown")
	}

	if err := mod.Approve(res.SubmissionID, baseTime.Add(time.Hour)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	u := reloadUser(t, db, alice.ID)
	if u.Balance != 25 || u.TasksCompleted != 1 || u.TotalEarned != 25 {
		t.Fatalf("unexpected user after approve: balance=%v tasks=%d earned=%v", u.Balance, u.TasksCompleted, u.TotalEarned)
	}

	if err := mod.Approve(res.SubmissionID, baseTime.Add(2*time.Hour)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second approve should be ErrInvalidState, got %v", err)
	}
	if u := reloadUser(t, db, alice.ID); u.Balance != 25 || u.TasksCompleted != 1 {
		t.Fatalf("second approve changed the user: %+v", u)
	}

	var ledger int64
	db.Model(&models.Transaction{}).Where("user_id = ? AND transaction_type = ?", alice.ID, models.TxTaskReward).Count(&ledger)
	if ledger != 1 {
		t.Fatalf("expected one ledger row, got %d", ledger)
	}
}

func TestClaimIneligibleAccounts(t *testing.T) {
	db := newTestDB(t)
	engine := NewSubmissionEngine(db)
	task := seedTask(t, db, 5, 10)
	user := seedUser(t, db, 0)
	other := seedUser(t, db, 0)

	pending := seedAccount(t, db, user.ID, models.WorkAccountPending)
	if _, err := engine.Claim(user.ID, task.ID, pending.ID, baseTime); !errors.Is(err, ErrAccountIneligible) {
		t.Fatalf("pending account: expected ErrAccountIneligible, got %v", err)
	}

	foreign := seedAccount(t, db, other.ID, models.WorkAccountApproved)
	if _, err := engine.Claim(user.ID, task.ID, foreign.ID, baseTime); !errors.Is(err, ErrAccountIneligible) {
		t.Fatalf("foreign account: expected ErrAccountIneligible, got %v", err)
	}

	if _, err := engine.Claim(user.ID, task.ID, 9999, baseTime); !errors.Is(err, ErrAccountIneligible) {
		t.Fatalf("missing account: expected ErrAccountIneligible, got %v", err)
	}

	if got := reloadTask(t, db, task.ID).RemainingSlots; got != 5 {
		t.Fatalf("ineligible claims must not take slots, remaining=%d", got)
	}
}

func TestClaimCooldownEnforced(t *testing.T) {
	db := newTestDB(t)
	engine := NewSubmissionEngine(db)
	engine.drawCooldown = fixedCooldown(40 * time.Hour)

	user := seedUser(t, db, 0)
	acc := seedAccount(t, db, user.ID, models.WorkAccountApproved)
	first := seedTask(t, db, 3, 10)
	second := seedTask(t, db, 3, 10)

	res, err := engine.Claim(user.ID, first.ID, acc.ID, baseTime)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if res.CooldownHours != 40 {
		t.Fatalf("expected 40 cooldown hours, got %d", res.CooldownHours)
	}

	_, err = engine.Claim(user.ID, second.ID, acc.ID, baseTime.Add(10*time.Hour+30*time.Minute))
	var cd *CooldownError
	if !errors.As(err, &cd) {
		t.Fatalf("expected CooldownError, got %v", err)
	}
	if !errors.Is(err, ErrAccountIneligible) {
		t.Fatalf("cooldown error must unwrap to ErrAccountIneligible")
	}
	if cd.HoursLeft != 30 {
		t.Fatalf("expected 30 hours left (29.5 rounded up), got %d", cd.HoursLeft)
	}
	if got := reloadTask(t, db, second.ID).RemainingSlots; got != 3 {
		t.Fatalf("rejected claim took a slot, remaining=%d", got)
	}

	if _, err := engine.Claim(user.ID, second.ID, acc.ID, baseTime.Add(40*time.Hour)); err != nil {
		t.Fatalf("claim at cooldown expiry should succeed: %v", err)
	}
}

func TestClaimSameTaskTwice(t *testing.T) {
	db := newTestDB(t)
	engine := NewSubmissionEngine(db)
	engine.drawCooldown = fixedCooldown(36 * time.Hour)

	user := seedUser(t, db, 0)
	acc1 := seedAccount(t, db, user.ID, models.WorkAccountApproved)
	acc2 := seedAccount(t, db, user.ID, models.WorkAccountApproved)
	task := seedTask(t, db, 5, 10)

	if _, err := engine.Claim(user.ID, task.ID, acc1.ID, baseTime); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if _, err := engine.Claim(user.ID, task.ID, acc2.ID, baseTime); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
	if got := reloadTask(t, db, task.ID).RemainingSlots; got != 4 {
		t.Fatalf("expected 4 remaining, got %d", got)
	}
	if a := reloadAccount(t, db, acc2.ID); a.CooldownUntil != nil {
		t.Fatalf("second account must stay idle")
	}
}

func TestClaimUnknownOrInactiveTask(t *testing.T) {
	db := newTestDB(t)
	engine := NewSubmissionEngine(db)
	user := seedUser(t, db, 0)
	acc := seedAccount(t, db, user.ID, models.WorkAccountApproved)

	if _, err := engine.Claim(user.ID, 4242, acc.ID, baseTime); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown task, got %v", err)
	}

	task := seedTask(t, db, 2, 10)
	db.Model(&models.Task{}).Where("id = ?", task.ID).Update("status", models.TaskInactive)
	if _, err := engine.Claim(user.ID, task.ID, acc.ID, baseTime); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for inactive task, got %v", err)
	}

	var n int64
	db.Model(&models.Submission{}).Count(&n)
	if n != 0 {
		t.Fatalf("failed claims left %d submissions behind", n)
	}
	if a := reloadAccount(t, db, acc.ID); a.CooldownUntil != nil {
		t.Fatalf("failed claims must not arm the cooldown")
	}
}

func TestConcurrentClaimsNeverOversell(t *testing.T) {
	db := newTestDB(t)
	engine := NewSubmissionEngine(db)

	const slots, claimers = 3, 12
	task := seedTask(t, db, slots, 5)
	type claimer struct{ user, acc uint }
	var cs []claimer
	for i := 0; i < claimers; i++ {
		u := seedUser(t, db, 0)
		a := seedAccount(t, db, u.ID, models.WorkAccountApproved)
		cs = append(cs, claimer{u.ID, a.ID})
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		noSlots int
		other   []error
	)
	for _, c := range cs {
		wg.Add(1)
		go func(c claimer) {
			defer wg.Done()
			_, err := engine.Claim(c.user, task.ID, c.acc, baseTime)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrNoSlots):
				noSlots++
			default:
				other = append(other, err)
			}
		}(c)
	}
	wg.Wait()

	if len(other) > 0 {
		t.Fatalf("unexpected errors: %v", other)
	}
	if ok != slots || noSlots != claimers-slots {
		t.Fatalf("expected %d successes and %d ErrNoSlots, got %d and %d", slots, claimers-slots, ok, noSlots)
	}
	if got := reloadTask(t, db, task.ID).RemainingSlots; got != 0 {
		t.Fatalf("expected 0 remaining slots, got %d", got)
	}
	var subs int64
	db.Model(&models.Submission{}).Where("task_id = ?", task.ID).Count(&subs)
	if subs != slots {
		t.Fatalf("expected %d submissions, got %d", slots, subs)
	}
}

func TestConcurrentClaimsBySameUser(t *testing.T) {
	db := newTestDB(t)
	engine := NewSubmissionEngine(db)
	task := seedTask(t, db, 10, 5)
	user := seedUser(t, db, 0)

	var accounts []uint
	for i := 0; i < 6; i++ {
		accounts = append(accounts, seedAccount(t, db, user.ID, models.WorkAccountApproved).ID)
	}

	var wg sync.WaitGroup
	results := make([]error, len(accounts))
	for i, acc := range accounts {
		wg.Add(1)
		go func(i int, acc uint) {
			defer wg.Done()
			_, results[i] = engine.Claim(user.ID, task.ID, acc, baseTime)
		}(i, acc)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrAlreadyClaimed) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one successful claim, got %d", succeeded)
	}
	if got := reloadTask(t, db, task.ID).RemainingSlots; got != 9 {
		t.Fatalf("expected 9 remaining slots, got %d", got)
	}
}

func TestConcurrentClaimsWithOneAccount(t *testing.T) {
	db := newTestDB(t)
	engine := NewSubmissionEngine(db)
	user := seedUser(t, db, 0)
	acc := seedAccount(t, db, user.ID, models.WorkAccountApproved)

	var tasks []uint
	for i := 0; i < 5; i++ {
		tasks = append(tasks, seedTask(t, db, 2, 5).ID)
	}

	var wg sync.WaitGroup
	results := make([]error, len(tasks))
	for i, id := range tasks {
		wg.Add(1)
		go func(i int, id uint) {
			defer wg.Done()
			_, results[i] = engine.Claim(user.ID, id, acc.ID, baseTime)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrAccountIneligible) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("one account must serve one claim per cooldown, got %d", succeeded)
	}
}

func TestAttachProof(t *testing.T) {
	db := newTestDB(t)
	engine := NewSubmissionEngine(db)
	mod := NewModeration(db)
	user := seedUser(t, db, 0)
	stranger := seedUser(t, db, 0)
	acc := seedAccount(t, db, user.ID, models.WorkAccountApproved)
	task := seedTask(t, db, 2, 10)

	res, err := engine.Claim(user.ID, task.ID, acc.ID, baseTime)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := engine.AttachProof(res.SubmissionID, stranger.ID, "mine now", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("stranger must not attach proof, got %v", err)
	}
	if err := engine.AttachProof(res.SubmissionID, user.ID, "", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty proof should be rejected, got %v", err)
	}
	six := []string{"1.png", "2.png", "3.png", "4.png", "5.png", "6.png"}
	if err := engine.AttachProof(res.SubmissionID, user.ID, "ok", six); !errors.Is(err, ErrValidation) {
		t.Fatalf("six images should be rejected, got %v", err)
	}

	if err := engine.AttachProof(res.SubmissionID, user.ID, "first", []string{"a.png"}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := engine.AttachProof(res.SubmissionID, user.ID, "posted review", []string{"b.png", "c.png"}); err != nil {
		t.Fatalf("re-attach: %v", err)
	}

	mine, err := engine.ListMine(user.ID)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("expected one submission, got %d", len(mine))
	}
	if got := string(mine[0].ProofImages); got != `["b.png","c.png"]` {
		t.Fatalf("proof images not replaced: %s", got)
	}
	if mine[0].ProofText == nil || *mine[0].ProofText != "posted review" {
		t.Fatalf("proof text not replaced")
	}
	if mine[0].TaskTitle != task.Title || mine[0].TaskReward != 10 {
		t.Fatalf("task data not joined: %+v", mine[0])
	}

	if err := mod.Approve(res.SubmissionID, baseTime); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := engine.AttachProof(res.SubmissionID, user.ID, "late edit", nil); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("proof on approved submission should be ErrInvalidState, got %v", err)
	}
}

func TestPendingOwned(t *testing.T) {
	db := newTestDB(t)
	engine := NewSubmissionEngine(db)
	user := seedUser(t, db, 0)
	stranger := seedUser(t, db, 0)
	acc := seedAccount(t, db, user.ID, models.WorkAccountApproved)
	task := seedTask(t, db, 2, 10)

	res, err := engine.Claim(user.ID, task.ID, acc.ID, baseTime)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := engine.PendingOwned(res.SubmissionID, user.ID); err != nil {
		t.Fatalf("owner should be able to submit: %v", err)
	}
	if err := engine.PendingOwned(res.SubmissionID, stranger.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("stranger: got %v, want ErrNotFound", err)
	}
	if err := engine.PendingOwned(999, user.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown submission: got %v, want ErrNotFound", err)
	}
	if err := NewModeration(db).Reject(res.SubmissionID, "", baseTime); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := engine.PendingOwned(res.SubmissionID, user.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("rejected submission: got %v, want ErrInvalidState", err)
	}
}
