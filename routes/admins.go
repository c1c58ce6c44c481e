package routes

import (
	"net/http"

	"yanfarm/controllers/admins"
	"yanfarm/middleware"

	"github.com/gorilla/mux"
)

func SetAdminRoutes(api *mux.Router) {
	adminRouter := api.PathPrefix("/admin").Subrouter()
	adminRouter.Use(middleware.AdminAuthMiddleware)

	// Dashboard stats
	adminRouter.Handle("/stats", http.HandlerFunc(admins.GetDashboard)).Methods(http.MethodGet)

	// Submission review
	adminRouter.Handle("/submissions", http.HandlerFunc(admins.SubmissionListHandler)).Methods(http.MethodGet)
	adminRouter.Handle("/submissions/{id:[0-9]+}/approve", http.HandlerFunc(admins.ApproveSubmissionHandler)).Methods(http.MethodPost)
	adminRouter.Handle("/submissions/{id:[0-9]+}/reject", http.HandlerFunc(admins.RejectSubmissionHandler)).Methods(http.MethodPost)

	// Task management
	adminRouter.Handle("/tasks", http.HandlerFunc(admins.TaskListHandler)).Methods(http.MethodGet)
	adminRouter.Handle("/tasks", http.HandlerFunc(admins.CreateTaskHandler)).Methods(http.MethodPost)
	adminRouter.Handle("/tasks/{id:[0-9]+}", http.HandlerFunc(admins.GetTaskHandler)).Methods(http.MethodGet)
	adminRouter.Handle("/tasks/{id:[0-9]+}", http.HandlerFunc(admins.UpdateTaskHandler)).Methods(http.MethodPut)
	adminRouter.Handle("/tasks/{id:[0-9]+}", http.HandlerFunc(admins.DeleteTaskHandler)).Methods(http.MethodDelete)

	// Work account moderation
	adminRouter.Handle("/work-accounts", http.HandlerFunc(admins.WorkAccountListHandler)).Methods(http.MethodGet)
	adminRouter.Handle("/work-accounts/{id:[0-9]+}/approve", http.HandlerFunc(admins.ApproveWorkAccountHandler)).Methods(http.MethodPost)
	adminRouter.Handle("/work-accounts/{id:[0-9]+}/reject", http.HandlerFunc(admins.RejectWorkAccountHandler)).Methods(http.MethodPost)

	// User management
	adminRouter.Handle("/users", http.HandlerFunc(admins.GetUsers)).Methods(http.MethodGet)
	adminRouter.Handle("/users/{id:[0-9]+}", http.HandlerFunc(admins.DeleteUser)).Methods(http.MethodDelete)
	adminRouter.Handle("/users/{id:[0-9]+}/approve", http.HandlerFunc(admins.ApproveUser)).Methods(http.MethodPost)
	adminRouter.Handle("/users/{id:[0-9]+}/reject", http.HandlerFunc(admins.RejectUser)).Methods(http.MethodPost)

	// Withdrawals
	adminRouter.Handle("/withdrawals", http.HandlerFunc(admins.GetWithdrawals)).Methods(http.MethodGet)
	adminRouter.Handle("/withdrawals/{id:[0-9]+}/approve", http.HandlerFunc(admins.ApproveWithdrawal)).Methods(http.MethodPost)
	adminRouter.Handle("/withdrawals/{id:[0-9]+}/reject", http.HandlerFunc(admins.RejectWithdrawal)).Methods(http.MethodPost)
}
