package database

import (
	"yanfarm/models"

	"gorm.io/gorm"
)

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.WorkAccount{},
		&models.Task{},
		&models.Submission{},
		&models.Withdrawal{},
		&models.Transaction{},
		&models.RevokedToken{},
	)
}
