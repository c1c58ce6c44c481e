package services

import (
	"errors"
	"testing"

	"yanfarm/models"
)

func TestRegisterWithReferral(t *testing.T) {
	db := newTestDB(t)
	users := NewUsers(db)

	inviter, err := users.Register(RegisterInput{Name: "Ina", Email: "Ina@Example.com", Password: "secret1"}, baseTime)
	if err != nil {
		t.Fatalf("register inviter: %v", err)
	}
	if inviter.Email != "ina@example.com" || len(inviter.ReferralCode) != 8 || inviter.Role != models.RoleUser {
		t.Fatalf("unexpected inviter %+v", inviter)
	}
	if inviter.Password == "secret1" {
		t.Fatalf("password stored in plain text")
	}

	if _, err := users.Register(RegisterInput{Name: "X", Email: "x@example.com", Password: "secret1", ReferralCode: "NOPE0000"}, baseTime); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown referral code should fail validation, got %v", err)
	}
	if _, err := users.Register(RegisterInput{Name: "Dup", Email: "ina@example.com", Password: "secret1"}, baseTime); !errors.Is(err, ErrValidation) {
		t.Fatalf("duplicate email should fail validation, got %v", err)
	}

	joined, err := users.Register(RegisterInput{Name: "Joe", Email: "joe@example.com", Password: "secret1", ReferralCode: inviter.ReferralCode}, baseTime)
	if err != nil {
		t.Fatalf("register with referral: %v", err)
	}
	if joined.ReferredBy == nil || *joined.ReferredBy != inviter.ID {
		t.Fatalf("referral not recorded")
	}
	if u := reloadUser(t, db, inviter.ID); u.ReferralsCount != 1 {
		t.Fatalf("referrals count %d, want 1", u.ReferralsCount)
	}

	if _, err := users.Authenticate("joe@example.com", "wrong", baseTime); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	u, err := users.Authenticate(" JOE@example.com", "secret1", baseTime)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if u.LastLogin == nil {
		t.Fatalf("last login not set")
	}
}

func TestDeleteUser(t *testing.T) {
	db := newTestDB(t)
	users := NewUsers(db)
	engine := NewSubmissionEngine(db)

	idle := seedUser(t, db, 0)
	seedAccount(t, db, idle.ID, models.WorkAccountPending)
	busy := seedUser(t, db, 0)
	acc := seedAccount(t, db, busy.ID, models.WorkAccountApproved)
	claimOne(t, engine, busy.ID, seedTask(t, db, 1, 5).ID, acc.ID)

	if err := users.Delete(busy.ID); !errors.Is(err, ErrHasDependents) {
		t.Fatalf("expected ErrHasDependents, got %v", err)
	}
	if err := users.Delete(idle.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var n int64
	db.Model(&models.WorkAccount{}).Where("user_id = ?", idle.ID).Count(&n)
	if n != 0 {
		t.Fatalf("work accounts of a deleted user must go too")
	}
	if err := users.Delete(idle.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, _ := users.List()
	if len(list) != 1 || list[0].ID != busy.ID {
		t.Fatalf("unexpected user list %+v", list)
	}
}

func TestEnsureAdmin(t *testing.T) {
	db := newTestDB(t)
	users := NewUsers(db)

	if err := users.EnsureAdmin("", "", "", baseTime); err != nil {
		t.Fatalf("missing credentials should be a no-op, got %v", err)
	}
	if err := users.EnsureAdmin("root@example.com", "hunter22", "", baseTime); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	if err := users.EnsureAdmin("other@example.com", "hunter22", "", baseTime); err != nil {
		t.Fatalf("second ensure admin: %v", err)
	}
	var admins []models.User
	db.Where("role = ?", models.RoleAdmin).Find(&admins)
	if len(admins) != 1 || admins[0].Email != "root@example.com" {
		t.Fatalf("unexpected admins %+v", admins)
	}
	if !admins[0].ValidatePassword("hunter22") {
		t.Fatalf("admin password not hashed correctly")
	}
	if err := users.Delete(admins[0].ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("admins cannot be deleted through the user list, got %v", err)
	}
}

func TestModerateUser(t *testing.T) {
	db := newTestDB(t)
	users := NewUsers(db)

	u, err := users.Register(RegisterInput{Name: "Mo", Email: "mo@example.com", Password: "secret1"}, baseTime)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.AccountStatus != models.UserPending {
		t.Fatalf("new users start pending, got %q", u.AccountStatus)
	}

	if err := users.Approve(u.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := users.Approve(u.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second approve: got %v, want ErrInvalidState", err)
	}
	if err := users.Reject(u.ID); err != nil {
		t.Fatalf("reject after approve: %v", err)
	}
	got, _ := users.Get(u.ID)
	if got.AccountStatus != models.UserRejected {
		t.Fatalf("status %q, want rejected", got.AccountStatus)
	}

	rejected, err := users.ListByStatus(models.UserRejected)
	if err != nil || len(rejected) != 1 || rejected[0].ID != u.ID {
		t.Fatalf("list rejected: %v %+v", err, rejected)
	}
	if pending, _ := users.ListByStatus(models.UserPending); len(pending) != 0 {
		t.Fatalf("no pending users expected, got %d", len(pending))
	}

	if err := users.Approve(999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown user: got %v, want ErrNotFound", err)
	}
	if err := users.EnsureAdmin("root@example.com", "hunter22", "", baseTime); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	var admin models.User
	db.Where("role = ?", models.RoleAdmin).First(&admin)
	if admin.AccountStatus != models.UserApproved {
		t.Fatalf("bootstrap admin status %q", admin.AccountStatus)
	}
	if err := users.Reject(admin.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("admins are not moderated, got %v", err)
	}
}
