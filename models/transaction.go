package models

import "time"

const (
	FlowCredit = "credit"
	FlowDebit  = "debit"
)

const (
	TxTaskReward       = "task_reward"
	TxReferralBonus    = "referral_bonus"
	TxWithdrawal       = "withdrawal"
	TxWithdrawalRefund = "withdrawal_refund"
)

const (
	TxSuccess = "success"
	TxPending = "pending"
	TxFailed  = "failed"
)

// Transaction is the balance ledger. Every change to users.balance writes
// exactly one row in the same database transaction.
type Transaction struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	Amount          float64   `gorm:"type:decimal(15,2);not null" json:"amount"`
	OrderID         string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"order_id"`
	TransactionFlow string    `gorm:"size:10;not null" json:"transaction_flow"`
	TransactionType string    `gorm:"size:50;not null" json:"transaction_type"`
	Message         *string   `gorm:"type:text" json:"message,omitempty"`
	Status          string    `gorm:"size:10;not null;default:'pending'" json:"status"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
