package admins

import (
	"net/http"
	"time"

	"yanfarm/controllers"
	"yanfarm/database"
	"yanfarm/models"
	"yanfarm/services"
	"yanfarm/utils"

	"github.com/gorilla/mux"
)

type workAccountItem struct {
	services.ModerationAccount
	ScreenshotURL string `json:"screenshot_url,omitempty"`
}

// GET /api/admin/work-accounts?status=pending|approved|rejected|all
func WorkAccountListHandler(w http.ResponseWriter, r *http.Request) {
	status, ok := statusFilter(w, r, models.WorkAccountPending, models.ParseWorkAccountStatus)
	if !ok {
		return
	}
	accounts, err := services.NewRegistry(database.DB).ListForModeration(status)
	if err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	out := make([]workAccountItem, 0, len(accounts))
	for _, a := range accounts {
		item := workAccountItem{ModerationAccount: a}
		if a.Screenshot != nil && *a.Screenshot != "" {
			item.ScreenshotURL = objectURLs(r.Context(), []string{*a.Screenshot})[0]
		}
		out = append(out, item)
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: out})
}

// POST /api/admin/work-accounts/{id}/approve
func ApproveWorkAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := controllers.PathID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	if err := services.NewRegistry(database.DB).Approve(id, time.Now().UTC()); err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Work account approved"})
}

// POST /api/admin/work-accounts/{id}/reject
func RejectWorkAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := controllers.PathID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	comment, ok := readComment(w, r)
	if !ok {
		return
	}
	if err := services.NewRegistry(database.DB).Reject(id, comment, time.Now().UTC()); err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Work account rejected"})
}
