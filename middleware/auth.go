package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"yanfarm/models"
	"yanfarm/utils"
)

// bearerClaims validates the Authorization header and writes a 401 when it
// is missing or the token does not check out.
func bearerClaims(w http.ResponseWriter, r *http.Request) (*utils.AccessClaims, bool) {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	tokenStr := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	claims, err := utils.ValidateAccessToken(r.Context(), tokenStr)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrTokenExpired):
			utils.WriteError(w, http.StatusUnauthorized, "Session expired, please log in again")
		case errors.Is(err, utils.ErrTokenRevoked):
			utils.WriteError(w, http.StatusUnauthorized, "Session has been logged out")
		default:
			utils.WriteError(w, http.StatusUnauthorized, "Invalid token")
		}
		return nil, false
	}
	return claims, true
}

func withClaims(r *http.Request, claims *utils.AccessClaims) *http.Request {
	ctx := context.WithValue(r.Context(), utils.UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, utils.UserRoleKey, claims.Role)
	ctx = context.WithValue(ctx, utils.TokenIDKey, claims.ID)
	if claims.ExpiresAt != nil {
		ctx = context.WithValue(ctx, utils.TokenExpiryKey, claims.ExpiresAt.Time)
	}
	return r.WithContext(ctx)
}

// AuthMiddleware admits regular users. Admin tokens are refused so the
// admin console and the worker app stay separate.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := bearerClaims(w, r)
		if !ok {
			return
		}
		if claims.Role == models.RoleAdmin {
			utils.WriteError(w, http.StatusForbidden, "Access denied")
			return
		}
		next.ServeHTTP(w, withClaims(r, claims))
	})
}

// SessionMiddleware admits any valid token, user or admin. Used by logout.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := bearerClaims(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, withClaims(r, claims))
	})
}
