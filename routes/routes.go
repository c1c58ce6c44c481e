package routes

import (
	"net/http"
	"strings"
	"time"

	"yanfarm/config"
	"yanfarm/controllers"
	"yanfarm/middleware"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

func optionsHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// InitRouter builds the full route tree. Handlers read their limits from
// controllers.Settings, which is set from cfg here.
func InitRouter(cfg config.Config) *mux.Router {
	controllers.Configure(cfg)

	r := mux.NewRouter()
	r.Handle("/health", http.HandlerFunc(controllers.HealthHandler)).Methods(http.MethodGet)

	origins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	for _, o := range cfg.Server.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	r.Use(handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With", "X-Request-ID"}),
		handlers.AllowCredentials(),
	))

	if cfg.Storage.Driver == "" || cfg.Storage.Driver == "local" {
		dir := cfg.Storage.Dir
		if dir == "" {
			dir = "uploads"
		}
		r.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(dir)))).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.PathPrefix("/").HandlerFunc(optionsHandler).Methods(http.MethodOptions)

	authLimiter := middleware.NewIPRateLimiter(60, 5*time.Minute, cfg.Server.TrustedProxies)
	UsersRoutes(api, cfg, authLimiter)
	SetAdminRoutes(api)

	return r
}
