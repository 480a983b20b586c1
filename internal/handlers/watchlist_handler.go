package handlers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/aksjeradar/aksjeradar/internal/models"
	"github.com/aksjeradar/aksjeradar/internal/services"
)

type WatchlistHandler struct {
	watchlistService *services.WatchlistService
}

func NewWatchlistHandler(watchlistService *services.WatchlistService) *WatchlistHandler {
	return &WatchlistHandler{watchlistService: watchlistService}
}

func (h *WatchlistHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/watchlist", h.List).Methods("GET")
	router.HandleFunc("/api/watchlist/toggle", h.Toggle).Methods("POST")
	router.HandleFunc("/stocks/api/favorites/check/{symbol}", h.Check).Methods("GET")
}

// List returns the user's watchlist
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	entries, err := h.watchlistService.List(userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"watchlist": entries})
}

// Toggle adds or removes a symbol and reports which happened
func (h *WatchlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req models.ToggleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	action, err := h.watchlistService.Toggle(userID, req.Symbol)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	msg := fmt.Sprintf("%s lagt til i favoritter", req.Symbol)
	if action == models.WatchlistRemoved {
		msg = fmt.Sprintf("%s fjernet fra favoritter", req.Symbol)
	}
	writeJSON(w, http.StatusOK, models.ToggleResponse{Success: true, Action: action, Message: msg})
}

// Check reports whether a symbol is on the user's watchlist
func (h *WatchlistHandler) Check(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	symbol := mux.Vars(r)["symbol"]
	fav, err := h.watchlistService.IsFavorite(userID, symbol)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.FavoriteStatus{Symbol: symbol, Favorited: fav})
}
