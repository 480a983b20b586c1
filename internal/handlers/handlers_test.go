package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aksjeradar/aksjeradar/internal/models"
	"github.com/aksjeradar/aksjeradar/internal/services"
	"github.com/aksjeradar/aksjeradar/internal/utils"
)

func newRouter(t *testing.T, userID uint) *mux.Router {
	t.Helper()
	return newRouterWithDB(t, newDB(t), userID)
}

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.WatchlistEntry{}, &models.Quote{}, &models.Portfolio{},
		&models.Position{}, &models.PriceAlert{}); err != nil {
		t.Fatalf("Failed to migrate schema: %v", err)
	}
	return db
}

func newRouterWithDB(t *testing.T, db *gorm.DB, userID uint) *mux.Router {
	t.Helper()
	router := mux.NewRouter()
	if userID != 0 {
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(utils.SetUserIDToContext(r.Context(), userID)))
			})
		})
	}
	NewWatchlistHandler(services.NewWatchlistService(db)).RegisterRoutes(router)
	NewPortfolioHandler(services.NewPortfolioService(db)).RegisterRoutes(router)
	NewAlertHandler(services.NewAlertService(db)).RegisterRoutes(router)
	NewRealtimeHandler(services.NewQuoteService(db, nil, time.Minute)).RegisterRoutes(router)
	return router
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestToggleReportsAction(t *testing.T) {
	router := newRouter(t, 1)

	rec := do(router, "POST", "/api/watchlist/toggle", `{"symbol":"EQNR.OL"}`)
	var resp models.ToggleResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if rec.Code != http.StatusOK || !resp.Success || resp.Action != models.WatchlistAdded {
		t.Fatalf("toggle = %d %+v", rec.Code, resp)
	}
	if resp.Message != "EQNR.OL lagt til i favoritter" {
		t.Errorf("message = %q", resp.Message)
	}

	rec = do(router, "GET", "/stocks/api/favorites/check/EQNR.OL", "")
	var status models.FavoriteStatus
	json.NewDecoder(rec.Body).Decode(&status)
	if !status.Favorited {
		t.Errorf("check = %+v", status)
	}

	rec = do(router, "POST", "/api/watchlist/toggle", `{"symbol":""}`)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), msgInvalidInput) {
		t.Errorf("blank toggle = %d %s", rec.Code, rec.Body)
	}
	rec = do(router, "POST", "/api/watchlist/toggle", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body = %d", rec.Code)
	}
}

func TestHandlersRequireUser(t *testing.T) {
	router := newRouter(t, 0)
	for _, path := range []string{"/api/watchlist", "/price-alerts", "/portfolio/1"} {
		if rec := do(router, "GET", path, ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s = %d", path, rec.Code)
		}
	}
}

func TestPortfolioEndpoints(t *testing.T) {
	router := newRouter(t, 1)

	rec := do(router, "POST", "/portfolio/add", `{"ticker":"DNB.OL","shares":"5","purchase_price":"210"}`)
	var resp models.PortfolioResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if rec.Code != http.StatusOK || resp.Portfolio == nil || len(resp.Portfolio.Positions) != 1 {
		t.Fatalf("add = %d %s", rec.Code, rec.Body)
	}
	p := resp.Portfolio

	rec = do(router, "POST", "/portfolio/"+itoa(p.ID)+"/remove/"+itoa(p.Positions[0].ID), "")
	if rec.Code != http.StatusOK {
		t.Errorf("remove = %d %s", rec.Code, rec.Body)
	}
	rec = do(router, "POST", "/portfolio/999/add", `{"ticker":"DNB.OL","shares":"5","purchase_price":"210"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign portfolio = %d", rec.Code)
	}
	rec = do(router, "POST", "/portfolio/create", `{"name":"Pensjon"}`)
	if rec.Code != http.StatusCreated {
		t.Errorf("create = %d", rec.Code)
	}
}

func TestAlertsOnBothPaths(t *testing.T) {
	router := newRouter(t, 1)
	for _, path := range []string{"/price-alerts/create", "/api/price-alerts/create"} {
		rec := do(router, "POST", path, `{"symbol":"EQNR.OL","price":"300","direction":"above"}`)
		if rec.Code != http.StatusCreated {
			t.Errorf("POST %s = %d %s", path, rec.Code, rec.Body)
		}
	}
	rec := do(router, "POST", "/price-alerts/create", `{"symbol":"EQNR.OL","price":"-1","direction":"above"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative price = %d", rec.Code)
	}
	rec = do(router, "GET", "/price-alerts", "")
	var list struct{ Alerts []models.PriceAlert }
	json.NewDecoder(rec.Body).Decode(&list)
	if len(list.Alerts) != 2 {
		t.Errorf("alerts = %d", len(list.Alerts))
	}
}

func TestPriceNotFound(t *testing.T) {
	router := newRouter(t, 0)
	if rec := do(router, "GET", "/api/realtime/price/NOPE", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestPriceHonoursCategory(t *testing.T) {
	db := newDB(t)
	quotes := services.NewQuoteService(db, nil, time.Minute)
	if err := quotes.Upsert(context.Background(), models.Quote{Symbol: "EQNR.OL", Category: models.CategoryOslo, Price: decimal.NewFromInt(300)}); err != nil {
		t.Fatal(err)
	}
	router := newRouterWithDB(t, db, 0)

	for path, want := range map[string]int{
		"/api/realtime/price/EQNR.OL":                 http.StatusOK,
		"/api/realtime/price/EQNR.OL?category=oslo":   http.StatusOK,
		"/api/realtime/price/EQNR.OL?category=crypto": http.StatusNotFound,
	} {
		if rec := do(router, "GET", path, ""); rec.Code != want {
			t.Errorf("GET %s = %d, want %d", path, rec.Code, want)
		}
	}
}

func itoa(n uint) string {
	return strconv.FormatUint(uint64(n), 10)
}
