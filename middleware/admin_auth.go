package middleware

import (
	"net/http"

	"yanfarm/database"
	"yanfarm/logger"
	"yanfarm/models"
	"yanfarm/utils"

	"go.uber.org/zap"
)

// AdminAuthMiddleware verifies that the request is from an authenticated admin
func AdminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := bearerClaims(w, r)
		if !ok {
			return
		}
		if claims.Role != models.RoleAdmin {
			utils.WriteError(w, http.StatusForbidden, "Forbidden: Admin access required")
			return
		}

		// The role in the token is not trusted on its own; the account must
		// still exist and still be an admin.
		var admin models.User
		if err := database.DB.Select("id", "role").First(&admin, claims.UserID).Error; err != nil {
			logger.Warn("admin token for unknown account", zap.Uint("user_id", claims.UserID), zap.Error(err))
			utils.WriteError(w, http.StatusUnauthorized, "Unauthorized: Admin not found")
			return
		}
		if !admin.IsAdmin() {
			utils.WriteError(w, http.StatusForbidden, "Forbidden")
			return
		}

		next.ServeHTTP(w, withClaims(r, claims))
	})
}
