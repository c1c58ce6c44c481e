package admins

import (
	"encoding/json"
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

type submissionItem struct {
	services.ReviewItem
	ProofImageURLs []string `json:"proof_image_urls"`
}

// GET /api/admin/submissions?status=pending|approved|rejected|all
func SubmissionListHandler(w http.ResponseWriter, r *http.Request) {
	status, ok := statusFilter(w, r, models.SubmissionPending, models.ParseSubmissionStatus)
	if !ok {
		return
	}
	items, err := services.NewModeration(database.DB).ListForReview(status)
	if err != nil {
		controllers.WriteServiceError(w, err)
		return
	}

	out := make([]submissionItem, 0, len(items))
	for _, it := range items {
		var names []string
		if len(it.ProofImages) > 0 {
			if err := json.Unmarshal(it.ProofImages, &names); err != nil {
				logger.Warn("bad proof image list", zap.Uint("submission_id", it.ID), zap.Error(err))
			}
		}
		out = append(out, submissionItem{ReviewItem: it, ProofImageURLs: objectURLs(r.Context(), names)})
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: out})
}

// POST /api/admin/submissions/{id}/approve
func ApproveSubmissionHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := controllers.PathID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	if err := services.NewModeration(database.DB).Approve(id, time.Now().UTC()); err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	adminID, _ := utils.GetUserID(r)
	logger.Info("submission approved", zap.Uint("submission_id", id), zap.Uint("admin_id", adminID))
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Submission approved"})
}

// POST /api/admin/submissions/{id}/reject
func RejectSubmissionHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := controllers.PathID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	comment, ok := readComment(w, r)
	if !ok {
		return
	}
	if err := services.NewModeration(database.DB).Reject(id, comment, time.Now().UTC()); err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	adminID, _ := utils.GetUserID(r)
	logger.Info("submission rejected", zap.Uint("submission_id", id), zap.Uint("admin_id", adminID))
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Submission rejected"})
}
