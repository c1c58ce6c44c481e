package auth

import (
	"net/http"
	"time"

	"yanfarm/controllers"
	"yanfarm/database"
	"yanfarm/logger"
	"yanfarm/middleware"
	"yanfarm/models"
	"yanfarm/services"
	"yanfarm/utils"

	"go.uber.org/zap"
)

type RegisterRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	Email        string `json:"email" validate:"required,email,max=191"`
	Password     string `json:"password" validate:"required,pwdmin,max=72"`
	ReferralCode string `json:"referral_code" validate:"max=20"`
}

type sessionData struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

func issueSession(w http.ResponseWriter, status int, message string, user *models.User) {
	token, exp, err := utils.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		logger.Error("token generation failed", zap.Uint("user_id", user.ID), zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "Something went wrong, please try again")
		return
	}
	utils.WriteJSON(w, status, utils.APIResponse{
		Success: true,
		Message: message,
		Data:    sessionData{Token: token, ExpiresAt: exp, User: user},
	})
}

// POST /api/register
func RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	user, err := services.NewUsers(database.DB).Register(services.RegisterInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		ReferralCode: req.ReferralCode,
	}, time.Now().UTC())
	if err != nil {
		controllers.WriteServiceError(w, err)
		return
	}
	logger.Info("user registered", zap.Uint("user_id", user.ID), zap.Bool("referred", user.ReferredBy != nil))
	issueSession(w, http.StatusCreated, "Registration successful", user)
}
