package services

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"yanfarm/database"
	"yanfarm/models"

	"gorm.io/gorm"
)

var baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"), false)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

var userSeq int

func seedUser(t *testing.T, db *gorm.DB, balance float64) *models.User {
	t.Helper()
	userSeq++
	u := models.User{
		Name:         fmt.Sprintf("user %d", userSeq),
		Email:        fmt.Sprintf("user%d@example.com", userSeq),
		Password:     "x",
		Role:         models.RoleUser,
		Balance:      balance,
		ReferralCode: fmt.Sprintf("REF%05d", userSeq),
		CreatedAt:    baseTime,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &u
}

func seedAccount(t *testing.T, db *gorm.DB, userID uint, status models.WorkAccountStatus) *models.WorkAccount {
	t.Helper()
	a := models.WorkAccount{
		UserID:      userID,
		Platform:    "google_maps",
		AccountName: fmt.Sprintf("acct-%d-%d", userID, time.Now().UnixNano()),
		Status:      status,
		CreatedAt:   baseTime,
	}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return &a
}

func seedTask(t *testing.T, db *gorm.DB, slots int, reward float64) *models.Task {
	t.Helper()
	task, err := NewCatalog(db).Create(TaskInput{
		Title:        fmt.Sprintf("Review cafe %d", time.Now().UnixNano()),
		Instructions: "Leave a 5 star review",
		Reward:       reward,
		TotalSlots:   slots,
	}, 1, baseTime)
	if err != nil {
		t.Fatalf("seed task: %v", err)
	}
	return task
}

func reloadTask(t *testing.T, db *gorm.DB, id uint) models.Task {
	t.Helper()
	var task models.Task
	if err := db.First(&task, id).Error; err != nil {
		t.Fatalf("reload task: %v", err)
	}
	return task
}

func reloadUser(t *testing.T, db *gorm.DB, id uint) models.User {
	t.Helper()
	var u models.User
	if err := db.First(&u, id).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return u
}

func reloadAccount(t *testing.T, db *gorm.DB, id uint) models.WorkAccount {
	t.Helper()
	var a models.WorkAccount
	if err := db.First(&a, id).Error; err != nil {
		t.Fatalf("reload account: %v", err)
	}
	return a
}

func fixedCooldown(d time.Duration) func() time.Duration {
	return func() time.Duration { return d }
}
