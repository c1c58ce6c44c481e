package users

import (
	"net/http"
	"time"

	"yanfarm/controllers"
	"yanfarm/database"
	"yanfarm/services"
	"yanfarm/utils"
)

// GET /api/me
func InfoHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := controllers.CurrentUser(w, r)
	if !ok {
		return
	}
	dash, err := services.NewStats(database.DB).UserDashboard(uid, time.Now().UTC())
	if err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: dash})
}
