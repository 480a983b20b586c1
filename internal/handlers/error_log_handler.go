package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/aksjeradar/aksjeradar/internal/models"
	"github.com/aksjeradar/aksjeradar/internal/services"
	"github.com/aksjeradar/aksjeradar/internal/utils"
)

// ErrorLogHandler accepts client error reports. Anonymous reports are
// accepted too.
type ErrorLogHandler struct {
	errorLogService *services.ErrorLogService
}

func NewErrorLogHandler(errorLogService *services.ErrorLogService) *ErrorLogHandler {
	return &ErrorLogHandler{errorLogService: errorLogService}
}

func (h *ErrorLogHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/log-error", h.LogError).Methods("POST")
}

func (h *ErrorLogHandler) LogError(w http.ResponseWriter, r *http.Request) {
	var report models.ClientError
	if !decodeBody(w, r, &report) {
		return
	}
	if userID, err := utils.GetUserIDFromContext(r.Context()); err == nil {
		report.UserID = &userID
	} else {
		report.UserID = nil
	}
	if report.UserAgent == "" {
		report.UserAgent = r.UserAgent()
	}

	saved, err := h.errorLogService.Record(report)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	log.Printf("[client-error] %s %s: %s", saved.Kind, saved.Path, saved.Message)
	w.WriteHeader(http.StatusNoContent)
}
