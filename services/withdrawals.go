package services

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"yanfarm/models"
	"yanfarm/utils"

	"gorm.io/gorm"
)

const DefaultMinWithdrawal = 50.0

type WithdrawalInput struct {
	Amount  float64 `json:"amount"`
	Method  string  `json:"method"`
	Details string  `json:"details"`
}

type WithdrawalView struct {
	models.Withdrawal
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

// Withdrawals moves money out of user balances. The balance is taken when
// the request is made and given back only if an admin rejects it.
type Withdrawals struct {
	db        *gorm.DB
	minAmount float64
}

func NewWithdrawals(db *gorm.DB, minAmount float64) *Withdrawals {
	if minAmount <= 0 {
		minAmount = DefaultMinWithdrawal
	}
	return &Withdrawals{db: db, minAmount: minAmount}
}

func (s *Withdrawals) Request(userID uint, in WithdrawalInput, now time.Time) (*models.Withdrawal, error) {
	now = now.UTC().Truncate(time.Second)
	in.Method = strings.TrimSpace(in.Method)
	in.Details = strings.TrimSpace(in.Details)
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) || in.Amount <= 0 {
		return nil, validationf("amount must be positive")
	}
	in.Amount = utils.RoundMoney(in.Amount)
	if in.Method == "" {
		return nil, validationf("withdrawal method is required")
	}
	if in.Details == "" {
		return nil, validationf("payout details are required")
	}
	if in.Amount < s.minAmount {
		return nil, fmt.Errorf("%w of %.2f", ErrBelowMinimumWithdrawal, s.minAmount)
	}

	w := models.Withdrawal{
		UserID:    userID,
		OrderID:   utils.GenerateOrderID(userID),
		Amount:    in.Amount,
		Method:    in.Method,
		Details:   in.Details,
		Status:    models.WithdrawalPending,
		CreatedAt: now,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND balance >= ?", userID, in.Amount).
			Update("balance", gorm.Expr("balance - ?", in.Amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return notFound("user")
			}
			return ErrInsufficientBalance
		}

		if err := tx.Create(&w).Error; err != nil {
			return err
		}
		msg := fmt.Sprintf("Withdrawal via %s", w.Method)
		return tx.Create(&models.Transaction{
			UserID:          userID,
			Amount:          w.Amount,
			OrderID:         w.OrderID,
			TransactionFlow: models.FlowDebit,
			TransactionType: models.TxWithdrawal,
			Message:         &msg,
			Status:          models.TxPending,
			CreatedAt:       now,
		}).Error
	})
	if err != nil {
		return nil, classify("request withdrawal", err)
	}
	return &w, nil
}

func (s *Withdrawals) ListMine(userID uint) ([]models.Withdrawal, error) {
	var out []models.Withdrawal
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, classify("list withdrawals", err)
	}
	return out, nil
}

func (s *Withdrawals) ListAll(status models.WithdrawalStatus) ([]WithdrawalView, error) {
	q := s.db.Table("withdrawals").
		Select("withdrawals.*, users.name AS user_name, users.email AS user_email").
		Joins("LEFT JOIN users ON users.id = withdrawals.user_id")
	if status != "" {
		q = q.Where("withdrawals.status = ?", status)
	}
	var out []WithdrawalView
	if err := q.Order("withdrawals.created_at DESC, withdrawals.id DESC").Scan(&out).Error; err != nil {
		return nil, classify("list withdrawals", err)
	}
	return out, nil
}

// Approve marks a pending withdrawal as paid out.
func (s *Withdrawals) Approve(id uint, now time.Time) error {
	now = now.UTC().Truncate(time.Second)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		w, err := s.transition(tx, id, models.ActionApprove, now)
		if err != nil {
			return err
		}
		return tx.Model(&models.Transaction{}).
			Where("order_id = ?", w.OrderID).
			Update("status", models.TxSuccess).Error
	})
	return classify("approve withdrawal", err)
}

// Reject cancels a pending withdrawal and refunds the amount once.
func (s *Withdrawals) Reject(id uint, now time.Time) error {
	now = now.UTC().Truncate(time.Second)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		w, err := s.transition(tx, id, models.ActionReject, now)
		if err != nil {
			return err
		}
		res := tx.Model(&models.User{}).Where("id = ?", w.UserID).
			Update("balance", gorm.Expr("balance + ?", w.Amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound("user")
		}
		if err := tx.Model(&models.Transaction{}).
			Where("order_id = ?", w.OrderID).
			Update("status", models.TxFailed).Error; err != nil {
			return err
		}
		return credit(tx, w.UserID, w.Amount, models.TxWithdrawalRefund,
			fmt.Sprintf("Refund for withdrawal %s", w.OrderID), now)
	})
	return classify("reject withdrawal", err)
}

func (s *Withdrawals) transition(tx *gorm.DB, id uint, action models.Action, now time.Time) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := tx.First(&w, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("withdrawal")
		}
		return nil, err
	}
	to, _ := models.WithdrawalFlow.Target(action)
	res := tx.Model(&models.Withdrawal{}).
		Where("id = ? AND status IN ?", id, models.WithdrawalFlow.Sources(action)).
		Updates(map[string]any{"status": to, "processed_at": now})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, invalidState("withdrawal is already %s", w.Status)
	}
	return &w, nil
}
