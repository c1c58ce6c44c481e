package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"yanfarm/config"
	"yanfarm/database"
)

// Settings holds the policy and storage limits handlers enforce. It is set
// once at startup by Configure.
var Settings = struct {
	Policy  config.PolicyConfig
	Storage config.StorageConfig
}{
	Policy:  config.Default().Policy,
	Storage: config.Default().Storage,
}

func Configure(c config.Config) {
	Settings.Policy = c.Policy
	Settings.Storage = c.Storage
}

// HealthHandler reports liveness and whether the database answers.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	if database.DB == nil {
		status, code = "unavailable", http.StatusServiceUnavailable
	} else if sqlDB, err := database.DB.DB(); err != nil || sqlDB.PingContext(r.Context()) != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"service":   "yanfarm-api",
	})
}
