package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/aksjeradar/aksjeradar/internal/models"
	"github.com/aksjeradar/aksjeradar/internal/services"
)

// maxBatchTickers bounds a single batch-prices request.
const maxBatchTickers = 100

// RealtimeHandler serves the public price endpoints polled by clients
type RealtimeHandler struct {
	quotes *services.QuoteService
}

func NewRealtimeHandler(quotes *services.QuoteService) *RealtimeHandler {
	return &RealtimeHandler{quotes: quotes}
}

func (h *RealtimeHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/realtime/market-summary", h.MarketSummary).Methods("GET")
	router.HandleFunc("/api/realtime/batch-prices", h.BatchPrices).Methods("GET")
	router.HandleFunc("/api/realtime/price/{ticker}", h.Price).Methods("GET")
}

// MarketSummary returns index quotes and the market state
func (h *RealtimeHandler) MarketSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.quotes.MarketSummary(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// BatchPrices returns the known quotes for ?tickers=a,b&category=c.
// Unknown tickers are left out of the response.
func (h *RealtimeHandler) BatchPrices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var tickers []string
	for _, t := range strings.Split(q.Get("tickers"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tickers = append(tickers, t)
		}
	}
	if len(tickers) == 0 || len(tickers) > maxBatchTickers {
		writeError(w, http.StatusBadRequest, msgInvalidInput)
		return
	}

	category := q.Get("category")
	prices, err := h.quotes.Batch(r.Context(), category, tickers)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.BatchPricesResponse{Category: category, Prices: prices})
}

// Price returns a single quote, optionally restricted to ?category=.
func (h *RealtimeHandler) Price(w http.ResponseWriter, r *http.Request) {
	quote, err := h.quotes.Quote(r.Context(), mux.Vars(r)["ticker"], r.URL.Query().Get("category"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}
