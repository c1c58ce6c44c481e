package users

import (
	"fmt"
	"net/http"
	"time"

	"yanfarm/controllers"
	"yanfarm/database"
	"yanfarm/services"
	"yanfarm/storage"
	"yanfarm/utils"

	"github.com/gorilla/mux"
)

// GET /api/available-work-accounts
//
// Approved accounts with their cooldown state; the app greys out the ones
// still resting.
func AvailableWorkAccountsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := controllers.CurrentUser(w, r)
	if !ok {
		return
	}
	accounts, err := services.NewRegistry(database.DB).ListEligible(uid, time.Now().UTC())
	if err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: accounts})
}

// GET /api/my-work-accounts
func MyWorkAccountsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := controllers.CurrentUser(w, r)
	if !ok {
		return
	}
	accounts, err := services.NewRegistry(database.DB).ListMine(uid)
	if err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: accounts})
}

// GET /api/approved-accounts-count
func ApprovedAccountsCountHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := controllers.CurrentUser(w, r)
	if !ok {
		return
	}
	n, err := services.NewRegistry(database.DB).CountApproved(uid)
	if err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    map[string]int64{"count": n},
	})
}

// POST /api/work-accounts
//
// Multipart form: platform, account_name, account_link, proof_text and an
// optional screenshot.
func CreateWorkAccountHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := controllers.CurrentUser(w, r)
	if !ok {
		return
	}
	if !parseMultipart(w, r) {
		return
	}

	files := r.MultipartForm.File["screenshot"]
	if len(files) > 1 {
		utils.WriteError(w, http.StatusBadRequest, "Only one screenshot is allowed")
		return
	}
	in := services.WorkAccountInput{
		Platform:    r.FormValue("platform"),
		AccountName: r.FormValue("account_name"),
		AccountLink: r.FormValue("account_link"),
		ProofText:   r.FormValue("proof_text"),
	}
	if err := in.Normalize(); err != nil {
		controllers.WriteServiceError(w, err)
		return
	}

	names, ok := saveUploads(w, r, fmt.Sprintf("account-%d", uid), files)
	if !ok {
		return
	}
	if len(names) == 1 {
		in.Screenshot = names[0]
	}

	acc, err := services.NewRegistry(database.DB).Create(uid, in, time.Now().UTC())
	if err != nil {
		storage.Discard(r.Context(), storage.Proofs, names)
		controllers.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Work account submitted for review",
		Data:    acc,
	})
}

// DELETE /api/work-accounts/{id}
func DeleteWorkAccountHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := controllers.CurrentUser(w, r)
	if !ok {
		return
	}
	id, ok := controllers.PathID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	if err := services.NewRegistry(database.DB).Delete(id, uid); err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Work account deleted"})
}
