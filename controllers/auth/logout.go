package auth

import (
	"net/http"
	"time"

	"yanfarm/logger"
	"yanfarm/utils"

	"go.uber.org/zap"
)

// LogoutHandler blacklists the access token that made the request until it
// would have expired anyway.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	jti, exp := utils.GetTokenID(r)
	if jti == "" {
		utils.WriteError(w, http.StatusBadRequest, "Token has no id")
		return
	}
	ttl := time.Until(exp)
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := utils.RevokeJTI(r.Context(), jti, ttl); err != nil {
		logger.Error("token revocation failed", zap.String("jti", jti), zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "Something went wrong, please try again")
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Logged out"})
}
