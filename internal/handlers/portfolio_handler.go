package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/aksjeradar/aksjeradar/internal/models"
	"github.com/aksjeradar/aksjeradar/internal/services"
)

type PortfolioHandler struct {
	portfolioService *services.PortfolioService
}

func NewPortfolioHandler(portfolioService *services.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolioService: portfolioService}
}

func (h *PortfolioHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/portfolio/create", h.Create).Methods("POST")
	router.HandleFunc("/portfolio/add", h.AddPosition).Methods("POST")
	router.HandleFunc("/portfolio/{id:[0-9]+}", h.Get).Methods("GET")
	router.HandleFunc("/portfolio/{id:[0-9]+}/add", h.AddPosition).Methods("POST")
	router.HandleFunc("/portfolio/{id:[0-9]+}/remove/{position:[0-9]+}", h.RemovePosition).Methods("POST")
}

func pathID(r *http.Request, name string) uint {
	id, _ := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	return uint(id)
}

// Create creates an empty portfolio
func (h *PortfolioHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req models.PortfolioRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.portfolioService.Create(userID, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.PortfolioResponse{Success: true, Portfolio: p})
}

// Get returns one portfolio with its positions
func (h *PortfolioHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	p, err := h.portfolioService.Get(userID, pathID(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.PortfolioResponse{Success: true, Portfolio: p})
}

// AddPosition adds a holding. Without an id in the path the portfolio
// comes from the body, falling back to the default portfolio.
func (h *PortfolioHandler) AddPosition(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req models.PositionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	portfolioID := req.PortfolioID
	if id := pathID(r, "id"); id != 0 {
		portfolioID = id
	}

	p, err := h.portfolioService.AddPosition(userID, portfolioID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.PortfolioResponse{Success: true, Portfolio: p})
}

// RemovePosition deletes a holding
func (h *PortfolioHandler) RemovePosition(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	p, err := h.portfolioService.RemovePosition(userID, pathID(r, "id"), pathID(r, "position"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.PortfolioResponse{Success: true, Portfolio: p})
}
