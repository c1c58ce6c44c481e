package users

import (
	"net/http"
	"time"

	"yanfarm/controllers"
	"yanfarm/database"
	"yanfarm/logger"
	"yanfarm/middleware"
	"yanfarm/services"
	"yanfarm/utils"

	"go.uber.org/zap"
)

type WithdrawalRequest struct {
	Amount  float64 `json:"amount" validate:"required"`
	Method  string  `json:"method" validate:"required,max=50"`
	Details string  `json:"details" validate:"required,max=255"`
}

// POST /api/withdrawals
func WithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := controllers.CurrentUser(w, r)
	if !ok {
		return
	}
	var req WithdrawalRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	wd, err := services.NewWithdrawals(database.DB, controllers.Settings.Policy.MinWithdrawal).
		Request(uid, services.WithdrawalInput{Amount: req.Amount, Method: req.Method, Details: req.Details}, time.Now().UTC())
	if err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	logger.Info("withdrawal requested", zap.Uint("user_id", uid), zap.String("order_id", wd.OrderID), zap.Float64("amount", wd.Amount))
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Withdrawal requested", Data: wd})
}

// GET /api/my-withdrawals
func ListWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := controllers.CurrentUser(w, r)
	if !ok {
		return
	}
	list, err := services.NewWithdrawals(database.DB, controllers.Settings.Policy.MinWithdrawal).ListMine(uid)
	if err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: list})
}
