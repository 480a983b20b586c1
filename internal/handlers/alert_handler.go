package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/aksjeradar/aksjeradar/internal/models"
	"github.com/aksjeradar/aksjeradar/internal/services"
)

type AlertHandler struct {
	alertService *services.AlertService
}

func NewAlertHandler(alertService *services.AlertService) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

// RegisterRoutes serves alerts under both /price-alerts and
// /api/price-alerts; older pages post to the latter.
func (h *AlertHandler) RegisterRoutes(router *mux.Router) {
	for _, prefix := range []string{"/price-alerts", "/api/price-alerts"} {
		router.HandleFunc(prefix, h.List).Methods("GET")
		router.HandleFunc(prefix+"/create", h.Create).Methods("POST")
	}
}

// Create registers a price alert
func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req models.AlertRequest
	if !decodeBody(w, r, &req) {
		return
	}
	alert, err := h.alertService.Create(userID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.AlertResponse{Success: true, Alert: alert})
}

// List returns the user's alerts
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	alerts, err := h.alertService.List(userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"alerts": alerts})
}
