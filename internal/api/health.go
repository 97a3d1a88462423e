package api

import (
	"net/http"
	"time"

	"github.com/snarg/captiond/internal/database"
	"github.com/snarg/captiond/internal/mqttclient"
)

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
}

type HealthHandler struct {
	db        *database.DB
	mqtt      *mqttclient.Client
	version   string
	startTime time.Time
}

// NewHealthHandler creates the health endpoint. db and mqtt may be nil when
// the corresponding subsystem is not configured; they report "disabled".
func NewHealthHandler(db *database.DB, mqtt *mqttclient.Client, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{db: db, mqtt: mqtt, version: version, startTime: startTime}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status := "ok"

	switch {
	case h.db == nil:
		checks["database"] = "disabled"
	case h.db.HealthCheck(r.Context()) != nil:
		checks["database"] = "down"
		status = "degraded"
	default:
		checks["database"] = "ok"
	}

	switch {
	case h.mqtt == nil:
		checks["mqtt"] = "disabled"
	case !h.mqtt.IsConnected():
		checks["mqtt"] = "down"
		status = "degraded"
	default:
		checks["mqtt"] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
	})
}
