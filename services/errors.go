package services

import (
	"errors"
	"fmt"

	"yanfarm/logger"

	"go.uber.org/zap"
)

var (
	ErrValidation             = errors.New("invalid input")
	ErrAccountIneligible      = errors.New("work account is not eligible")
	ErrAlreadyClaimed         = errors.New("task already claimed")
	ErrNoSlots                = errors.New("no slots left for this task")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrBelowMinimumWithdrawal = errors.New("amount is below the minimum withdrawal")
	ErrNotFound               = errors.New("not found")
	ErrInvalidState           = errors.New("invalid state for this action")
	ErrHasDependents          = errors.New("record is referenced by other records")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrStorage                = errors.New("storage failure")
)

var businessErrors = []error{
	ErrValidation,
	ErrAccountIneligible,
	ErrAlreadyClaimed,
	ErrNoSlots,
	ErrInsufficientBalance,
	ErrBelowMinimumWithdrawal,
	ErrNotFound,
	ErrInvalidState,
	ErrHasDependents,
	ErrInvalidCredentials,
	ErrStorage,
}

// CooldownError is returned when a work account is still cooling down.
type CooldownError struct {
	AccountName string
	HoursLeft   int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("work account %q is on cooldown for %d more hour(s)", e.AccountName, e.HoursLeft)
}

func (e *CooldownError) Unwrap() error {
	return ErrAccountIneligible
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}

func invalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// classify passes business errors through untouched and turns anything else
// into a logged ErrStorage.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	logger.Error("storage error", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
