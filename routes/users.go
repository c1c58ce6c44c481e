package routes

import (
	"net/http"
	"time"

	"yanfarm/config"
	"yanfarm/controllers/auth"
	"yanfarm/controllers/users"
	"yanfarm/middleware"

	"github.com/gorilla/mux"
)

// UsersRoutes registers the worker app endpoints on api.
func UsersRoutes(api *mux.Router, cfg config.Config, authLimiter *middleware.IPRateLimiter) {
	claimLimiter := middleware.NewUserRateLimiter("claim",
		cfg.Policy.ClaimRateLimit, time.Duration(cfg.Policy.ClaimRateWindow)*time.Second)
	user := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(h)
	}

	// Register, login & logout
	api.Handle("/register", authLimiter.Middleware(http.HandlerFunc(auth.RegisterHandler))).Methods(http.MethodPost)
	api.Handle("/login", authLimiter.Middleware(http.HandlerFunc(auth.LoginHandler))).Methods(http.MethodPost)
	api.Handle("/logout", middleware.SessionMiddleware(http.HandlerFunc(auth.LogoutHandler))).Methods(http.MethodPost)

	// Tasks
	api.Handle("/tasks", http.HandlerFunc(users.TaskListHandler)).Methods(http.MethodGet)
	api.Handle("/tasks/{id:[0-9]+}/take", middleware.AuthMiddleware(claimLimiter.Middleware(http.HandlerFunc(users.TakeTaskHandler)))).Methods(http.MethodPost)
	api.Handle("/my-tasks", user(users.MyTasksHandler)).Methods(http.MethodGet)
	api.Handle("/submissions/{id:[0-9]+}/submit", user(users.SubmitProofHandler)).Methods(http.MethodPost)

	// Work accounts
	api.Handle("/available-work-accounts", user(users.AvailableWorkAccountsHandler)).Methods(http.MethodGet)
	api.Handle("/my-work-accounts", user(users.MyWorkAccountsHandler)).Methods(http.MethodGet)
	api.Handle("/approved-accounts-count", user(users.ApprovedAccountsCountHandler)).Methods(http.MethodGet)
	api.Handle("/work-accounts", user(users.CreateWorkAccountHandler)).Methods(http.MethodPost)
	api.Handle("/work-accounts/{id:[0-9]+}", user(users.DeleteWorkAccountHandler)).Methods(http.MethodDelete)

	// Withdrawals
	api.Handle("/withdrawals", user(users.WithdrawalHandler)).Methods(http.MethodPost)
	api.Handle("/my-withdrawals", user(users.ListWithdrawalHandler)).Methods(http.MethodGet)

	// Dashboard
	api.Handle("/me", user(users.InfoHandler)).Methods(http.MethodGet)
}
