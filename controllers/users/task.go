package users

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"yanfarm/controllers"
	"yanfarm/database"
	"yanfarm/logger"
	"yanfarm/middleware"
	"yanfarm/services"
	"yanfarm/storage"
	"yanfarm/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type TakeTaskRequest struct {
	WorkAccountID uint `json:"work_account_id" validate:"required"`
}

// GET /api/tasks
func TaskListHandler(w http.ResponseWriter, r *http.Request) {
	tasks, err := services.NewCatalog(database.DB).ListActive()
	if err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: tasks})
}

// POST /api/tasks/{id}/take
func TakeTaskHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := controllers.CurrentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := controllers.PathID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	var req TakeTaskRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	res, err := services.NewSubmissionEngine(database.DB).Claim(uid, taskID, req.WorkAccountID, time.Now().UTC())
	if err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	logger.Info("task claimed",
		zap.Uint("user_id", uid), zap.Uint("task_id", taskID),
		zap.Uint("submission_id", res.SubmissionID), zap.Int("cooldown_hours", res.CooldownHours))
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: fmt.Sprintf("Task claimed, work account rests for %d hours", res.CooldownHours),
		Data:    res,
	})
}

// GET /api/my-tasks
func MyTasksHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := controllers.CurrentUser(w, r)
	if !ok {
		return
	}
	subs, err := services.NewSubmissionEngine(database.DB).ListMine(uid)
	if err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: subs})
}

// POST /api/submissions/{id}/submit
//
// Multipart form: proof_text and up to the configured number of
// proof_images.
func SubmitProofHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := controllers.CurrentUser(w, r)
	if !ok {
		return
	}
	subID, ok := controllers.PathID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	if !parseMultipart(w, r) {
		return
	}

	files := r.MultipartForm.File["proof_images"]
	limit := min(controllers.Settings.Policy.MaxProofImages, services.MaxProofImages)
	if limit <= 0 {
		limit = services.MaxProofImages
	}
	if len(files) > limit {
		utils.WriteError(w, http.StatusBadRequest, fmt.Sprintf("At most %d proof images are allowed", limit))
		return
	}

	engine := services.NewSubmissionEngine(database.DB)
	if err := engine.PendingOwned(subID, uid); err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	names, ok := saveUploads(w, r, fmt.Sprintf("proof-%d", subID), files)
	if !ok {
		return
	}

	if err := engine.AttachProof(subID, uid, r.FormValue("proof_text"), names); err != nil {
		storage.Discard(r.Context(), storage.Proofs, names)
		controllers.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Proof submitted, waiting for review",
		Data:    map[string]interface{}{"submission_id": subID, "proof_images": names},
	})
}

// saveUploads stores files and returns their object names. Nothing is
// written for an empty list.
func saveUploads(w http.ResponseWriter, r *http.Request, prefix string, files []*multipart.FileHeader) ([]string, bool) {
	if len(files) == 0 {
		return nil, true
	}
	names, err := storage.SaveImages(r.Context(), storage.Proofs, prefix, files, controllers.Settings.Storage.MaxImageBytes)
	if err != nil {
		if errors.Is(err, storage.ErrBadImage) {
			utils.WriteError(w, http.StatusBadRequest, err.Error())
			return nil, false
		}
		logger.Error("upload failed", zap.String("prefix", prefix), zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "Could not store the images, please try again")
		return nil, false
	}
	return names, true
}

// parseMultipart reads a multipart body, writing a 400 or 413 on failure.
func parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.WriteError(w, http.StatusRequestEntityTooLarge, "Upload is too large")
			return false
		}
		utils.WriteError(w, http.StatusBadRequest, "Expected a multipart form")
		return false
	}
	return true
}
