package admins

import (
	"net/http"
	"time"

	"yanfarm/controllers"
	"yanfarm/database"
	"yanfarm/logger"
	"yanfarm/models"
	"yanfarm/services"
	"yanfarm/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func withdrawals() *services.Withdrawals {
	return services.NewWithdrawals(database.DB, controllers.Settings.Policy.MinWithdrawal)
}

// GET /api/admin/withdrawals?status=pending|approved|rejected
func GetWithdrawals(w http.ResponseWriter, r *http.Request) {
	status, ok := statusFilter(w, r, "", models.ParseWithdrawalStatus)
	if !ok {
		return
	}
	list, err := withdrawals().ListAll(status)
	if err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: list})
}

// POST /api/admin/withdrawals/{id}/approve
func ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, ok := controllers.PathID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	if err := withdrawals().Approve(id, time.Now().UTC()); err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	adminID, _ := utils.GetUserID(r)
	logger.Info("withdrawal approved", zap.Uint("withdrawal_id", id), zap.Uint("admin_id", adminID))
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Withdrawal approved"})
}

// POST /api/admin/withdrawals/{id}/reject refunds the amount to the user.
func RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, ok := controllers.PathID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	if err := withdrawals().Reject(id, time.Now().UTC()); err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	adminID, _ := utils.GetUserID(r)
	logger.Info("withdrawal rejected", zap.Uint("withdrawal_id", id), zap.Uint("admin_id", adminID))
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Withdrawal rejected and refunded"})
}
