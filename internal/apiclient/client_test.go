package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/aksjeradar/aksjeradar/internal/models"
	"github.com/aksjeradar/aksjeradar/internal/transport"
)

func TestClientEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/realtime/batch-prices", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tickers") != "EQNR.OL,DNB.OL" || r.URL.Query().Get("category") != "oslo" {
			t.Errorf("batch query = %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(models.BatchPricesResponse{
			Category: "oslo",
			Prices: map[string]models.Quote{
				"EQNR.OL": {Symbol: "EQNR.OL", Price: decimal.RequireFromString("285.40")},
			},
		})
	})
	mux.HandleFunc("/stocks/api/favorites/check/DNB.OL", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.FavoriteStatus{Symbol: "DNB.OL", Favorited: true})
	})
	mux.HandleFunc("/portfolio/7/add", func(w http.ResponseWriter, r *http.Request) {
		var req models.PositionRequest
		json.NewDecoder(r.Body).Decode(&req)
		if r.Method != http.MethodPost || req.Ticker != "NHY.OL" {
			t.Errorf("add position: %s %+v", r.Method, req)
		}
		json.NewEncoder(w).Encode(models.PortfolioResponse{Success: true, Portfolio: &models.Portfolio{ID: 7}})
	})
	mux.HandleFunc("/price-alerts/create", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.AlertResponse{Error: "Ugyldig input"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL+"/", http.DefaultTransport)
	ctx := context.Background()

	prices, err := c.BatchPrices(ctx, "oslo", []string{"EQNR.OL", "DNB.OL"})
	if err != nil {
		t.Fatal(err)
	}
	if q := prices["EQNR.OL"]; !q.Price.Equal(decimal.RequireFromString("285.4")) {
		t.Errorf("EQNR.OL price = %s", q.Price)
	}

	fav, err := c.CheckFavorite(ctx, "DNB.OL")
	if err != nil || !fav {
		t.Errorf("CheckFavorite = %v, %v", fav, err)
	}

	res, err := c.AddPosition(ctx, models.PositionRequest{PortfolioID: 7, Ticker: "NHY.OL", Shares: "10", PurchasePrice: "60"})
	if err != nil || !res.Success || res.Portfolio.ID != 7 {
		t.Errorf("AddPosition = %+v, %v", res, err)
	}

	_, err = c.CreateAlert(ctx, models.AlertRequest{Symbol: "EQNR.OL"})
	var se *transport.StatusError
	if !errors.As(err, &se) || se.StatusCode != 400 || se.Message != "Ugyldig input" || se.Routed {
		t.Errorf("CreateAlert err = %#v", err)
	}
}

func TestErrorMessageTruncatesOnRuneBoundary(t *testing.T) {
	body := []byte(strings.Repeat("ø", 300))
	got := errorMessage(body)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated message is not valid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != maxMessageRunes {
		t.Errorf("message has %d runes, want %d", n, maxMessageRunes)
	}
	if got := errorMessage([]byte(`  Feil på serveren  `)); got != "Feil på serveren" {
		t.Errorf("short message = %q", got)
	}
}
