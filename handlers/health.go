package handlers

import (
	"errors"
	"net/http"

	"portfolio-views/config"
)

var errNotReady = errors.New("database not initialised")

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	unhealthy := func(err error) {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status":  "unhealthy",
			"message": "Database connectivity failed",
			"error":   err.Error(),
		})
	}

	if config.DB == nil {
		unhealthy(errNotReady)
		return
	}
	sqlDB, err := config.DB.DB()
	if err != nil {
		unhealthy(err)
		return
	}
	if err := sqlDB.PingContext(r.Context()); err != nil {
		unhealthy(err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"message": "Server and database are up and running",
	})
}
