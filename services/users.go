package services

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"yanfarm/logger"
	"yanfarm/models"
	"yanfarm/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	ReferralCode string `json:"referral_code"`
}

type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// Register creates a user account. A valid referral code links the new user
// to the inviter, who then earns referral bonuses on approved work.
func (s *Users) Register(in RegisterInput, now time.Time) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.ReferralCode = strings.ToUpper(strings.TrimSpace(in.ReferralCode))
	if in.Name == "" {
		return nil, validationf("name is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, validationf("email address is invalid")
	}
	if len(in.Password) < 6 {
		return nil, validationf("password must be at least 6 characters")
	}

	user := models.User{
		Name:          in.Name,
		Email:         in.Email,
		Password:      in.Password,
		Role:          models.RoleUser,
		AccountStatus: models.UserPending,
		CreatedAt:     now,
	}
	if err := user.HashPassword(); err != nil {
		return nil, classify("register", err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if in.ReferralCode != "" {
			var inviter models.User
			if err := tx.Select("id").Where("referral_code = ?", in.ReferralCode).First(&inviter).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return validationf("referral code is not valid")
				}
				return err
			}
			user.ReferredBy = &inviter.ID
		}

		code, err := utils.GenerateReferralCode(tx, 8)
		if err != nil {
			return err
		}
		user.ReferralCode = code

		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return validationf("email is already registered")
			}
			return err
		}
		if user.ReferredBy != nil {
			return tx.Model(&models.User{}).Where("id = ?", *user.ReferredBy).
				UpdateColumn("referrals_count", gorm.Expr("referrals_count + 1")).Error
		}
		return nil
	})
	if err != nil {
		return nil, classify("register", err)
	}
	return &user, nil
}

// Authenticate checks credentials and records the login time.
func (s *Users) Authenticate(email, password string, now time.Time) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, classify("login", err)
	}
	if !user.ValidatePassword(password) {
		return nil, ErrInvalidCredentials
	}
	if err := s.db.Model(&models.User{}).Where("id = ?", user.ID).UpdateColumn("last_login", now).Error; err != nil {
		logger.Warn("failed to record last login", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	user.LastLogin = &now
	return &user, nil
}

func (s *Users) Get(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user")
		}
		return nil, classify("get user", err)
	}
	return &user, nil
}

func (s *Users) List() ([]models.User, error) {
	return s.ListByStatus("")
}

// ListByStatus returns regular users, newest first. An empty status lists
// all of them.
func (s *Users) ListByStatus(status models.UserStatus) ([]models.User, error) {
	q := s.db.Where("role = ?", models.RoleUser)
	if status != "" {
		q = q.Where("account_status = ?", status)
	}
	var users []models.User
	if err := q.Order("created_at DESC, id DESC").Find(&users).Error; err != nil {
		return nil, classify("list users", err)
	}
	return users, nil
}

func (s *Users) Approve(id uint) error {
	return s.moderate(id, models.ActionApprove)
}

func (s *Users) Reject(id uint) error {
	return s.moderate(id, models.ActionReject)
}

// moderate changes the account status of a regular user. Repeating the
// current decision is an invalid state.
func (s *Users) moderate(id uint, action models.Action) error {
	to, _ := models.UserFlow.Target(action)
	res := s.db.Model(&models.User{}).
		Where("id = ? AND role = ? AND account_status IN ?", id, models.RoleUser, models.UserFlow.Sources(action)).
		Update("account_status", to)
	if res.Error != nil {
		return classify("moderate user", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var user models.User
	if err := s.db.Select("id", "role", "account_status").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("user")
		}
		return classify("moderate user", err)
	}
	if user.IsAdmin() {
		return invalidState("admin accounts are not moderated")
	}
	return invalidState("user is already %s", user.AccountStatus)
}

// Delete removes a regular user with no submission or withdrawal history,
// together with their work accounts.
func (s *Users) Delete(id uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND role = ?", id, models.RoleUser).
			Where("NOT EXISTS (SELECT 1 FROM submissions WHERE submissions.user_id = users.id)").
			Where("NOT EXISTS (SELECT 1 FROM withdrawals WHERE withdrawals.user_id = users.id)").
			Delete(&models.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var user models.User
			if err := tx.Select("id", "role").First(&user, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFound("user")
				}
				return err
			}
			if user.IsAdmin() {
				return invalidState("admin accounts cannot be deleted")
			}
			return ErrHasDependents
		}
		return tx.Where("user_id = ?", id).Delete(&models.WorkAccount{}).Error
	})
	return classify("delete user", err)
}

// EnsureAdmin creates the first admin from the given credentials when no
// admin exists yet.
func (s *Users) EnsureAdmin(email, password, name string, now time.Time) error {
	var n int64
	if err := s.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&n).Error; err != nil {
		return classify("ensure admin", err)
	}
	if n > 0 {
		return nil
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		logger.Warn("no admin account exists and ADMIN_EMAIL/ADMIN_PASSWORD are not set")
		return nil
	}
	if name == "" {
		name = "Administrator"
	}

	admin := models.User{
		Name:          name,
		Email:         email,
		Password:      password,
		Role:          models.RoleAdmin,
		AccountStatus: models.UserApproved,
		CreatedAt:     now,
	}
	if err := admin.HashPassword(); err != nil {
		return classify("ensure admin", err)
	}
	code, err := utils.GenerateReferralCode(s.db, 8)
	if err != nil {
		return classify("ensure admin", err)
	}
	admin.ReferralCode = code
	if err := s.db.Create(&admin).Error; err != nil {
		return classify("ensure admin", err)
	}
	logger.Info("bootstrap admin created", zap.String("email", email))
	return nil
}
