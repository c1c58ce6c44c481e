package admins

import (
	"net/http"
	"time"

	"yanfarm/controllers"
	"yanfarm/database"
	"yanfarm/logger"
	"yanfarm/middleware"
	"yanfarm/services"
	"yanfarm/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// GET /api/admin/tasks
func TaskListHandler(w http.ResponseWriter, r *http.Request) {
	tasks, err := services.NewCatalog(database.DB).ListAll()
	if err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: tasks})
}

// GET /api/admin/tasks/{id}
func GetTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := controllers.PathID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	task, err := services.NewCatalog(database.DB).Get(id)
	if err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: task})
}

// POST /api/admin/tasks
func CreateTaskHandler(w http.ResponseWriter, r *http.Request) {
	var in services.TaskInput
	if err := middleware.ValidateJSON(w, r, &in); err != nil {
		return
	}
	adminID, _ := utils.GetUserID(r)
	task, err := services.NewCatalog(database.DB).Create(in, adminID, time.Now().UTC())
	if err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	logger.Info("task created", zap.Uint("task_id", task.ID), zap.Uint("admin_id", adminID), zap.Int("slots", task.TotalSlots))
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Task created", Data: task})
}

// PUT /api/admin/tasks/{id}
//
// Changing total_slots moves remaining_slots by the same amount, never below
// zero.
func UpdateTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := controllers.PathID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	var in services.TaskInput
	if err := middleware.ValidateJSON(w, r, &in); err != nil {
		return
	}
	task, err := services.NewCatalog(database.DB).Update(id, in, time.Now().UTC())
	if err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Task updated", Data: task})
}

// DELETE /api/admin/tasks/{id}
func DeleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := controllers.PathID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	if err := services.NewCatalog(database.DB).Delete(id); err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Task deleted"})
}
