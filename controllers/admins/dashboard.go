package admins

import (
	"net/http"
	"time"

	"yanfarm/controllers"
	"yanfarm/database"
	"yanfarm/services"
	"yanfarm/utils"
)

// GET /api/admin/stats
func GetDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := services.NewStats(database.DB).Admin(time.Now().UTC())
	if err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: stats})
}
