package auth

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"yanfarm/controllers"
	"yanfarm/database"
	"yanfarm/middleware"
	"yanfarm/services"
	"yanfarm/utils"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// POST /api/login serves both workers and admins; the role in the token
// decides which routes it opens.
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	ctx := r.Context()
	if locked, left := middleware.IsAccountLocked(ctx, req.Email); locked {
		minutes := int(math.Ceil(left.Minutes()))
		utils.WriteError(w, http.StatusTooManyRequests,
			fmt.Sprintf("Too many failed attempts, try again in %d minute(s)", minutes))
		return
	}

	user, err := services.NewUsers(database.DB).Authenticate(req.Email, req.Password, time.Now().UTC())
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			middleware.RecordFailedLogin(ctx, req.Email)
		}
		controllers.WriteServiceError(w, err)
		return
	}
	middleware.ResetFailedLogin(ctx, req.Email)
	issueSession(w, http.StatusOK, "Login successful", user)
}
