package admins

import (
	"net/http"

	"yanfarm/controllers"
	"yanfarm/database"
	"yanfarm/logger"
	"yanfarm/models"
	"yanfarm/services"
	"yanfarm/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// GET /api/admin/users?status=pending|approved|rejected
func GetUsers(w http.ResponseWriter, r *http.Request) {
	status, ok := statusFilter(w, r, "", models.ParseUserStatus)
	if !ok {
		return
	}
	users, err := services.NewUsers(database.DB).ListByStatus(status)
	if err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: users})
}

// DELETE /api/admin/users/{id}
//
// Users with submissions or withdrawals on record are kept; the response is
// a 409.
func DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := controllers.PathID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	if err := services.NewUsers(database.DB).Delete(id); err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "User deleted"})
}

// POST /api/admin/users/{id}/approve
func ApproveUser(w http.ResponseWriter, r *http.Request) {
	moderateUser(w, r, models.ActionApprove)
}

// POST /api/admin/users/{id}/reject
func RejectUser(w http.ResponseWriter, r *http.Request) {
	moderateUser(w, r, models.ActionReject)
}

func moderateUser(w http.ResponseWriter, r *http.Request, action models.Action) {
	id, ok := controllers.PathID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	users := services.NewUsers(database.DB)
	var err error
	if action == models.ActionApprove {
		err = users.Approve(id)
	} else {
		err = users.Reject(id)
	}
	if err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	to, _ := models.UserFlow.Target(action)
	adminID, _ := utils.GetUserID(r)
	logger.Info("user moderated", zap.Uint("user_id", id), zap.String("status", string(to)), zap.Uint("admin_id", adminID))
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "User " + string(to)})
}
