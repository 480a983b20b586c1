// Package apiclient is the typed client for the Aksjeradar HTTP endpoints
// used by the realtime services. All requests go through the session's
// transport chain.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aksjeradar/aksjeradar/internal/models"
	"github.com/aksjeradar/aksjeradar/internal/transport"
)

// Client handles HTTP requests to the Aksjeradar server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for baseURL sending requests through rt.
func New(baseURL string, rt http.RoundTripper) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: rt,
			Timeout:   30 * time.Second,
		},
	}
}

// BaseURL returns the server root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &transport.StatusError{
			Method:     method,
			URL:        path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
			Routed:     resp.Header.Get(transport.RoutedHeader) == "1",
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// errorMessage extracts {"error": ...} or {"message": ...} from an error
// body, falling back to the trimmed text.
// maxMessageRunes bounds a non-JSON error body shown to the user.
const maxMessageRunes = 200

func errorMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	s := strings.TrimSpace(string(raw))
	if r := []rune(s); len(r) > maxMessageRunes {
		s = string(r[:maxMessageRunes])
	}
	return s
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out models.TokenResponse
	err := c.do(ctx, http.MethodPost, "/api/login", models.LoginRequest{Username: username, Password: password}, &out)
	return out.AccessToken, err
}

// CSRFToken fetches the token attached to mutating requests.
func (c *Client) CSRFToken(ctx context.Context) (string, error) {
	var out models.CSRFTokenResponse
	err := c.do(ctx, http.MethodGet, "/api/csrf-token", nil, &out)
	return out.Token, err
}

// MarketSummary fetches aggregate index data.
func (c *Client) MarketSummary(ctx context.Context) (models.MarketSummary, error) {
	var out models.MarketSummary
	err := c.do(ctx, http.MethodGet, "/api/realtime/market-summary", nil, &out)
	return out, err
}

// BatchPrices fetches the prices of tickers in one category.
func (c *Client) BatchPrices(ctx context.Context, category string, tickers []string) (map[string]models.Quote, error) {
	q := url.Values{}
	q.Set("tickers", strings.Join(tickers, ","))
	q.Set("category", category)
	var out models.BatchPricesResponse
	if err := c.do(ctx, http.MethodGet, "/api/realtime/batch-prices?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Prices, nil
}

// Price fetches a single ticker.
func (c *Client) Price(ctx context.Context, ticker, category string) (models.Quote, error) {
	q := url.Values{}
	q.Set("category", category)
	var out models.Quote
	err := c.do(ctx, http.MethodGet, "/api/realtime/price/"+url.PathEscape(ticker)+"?"+q.Encode(), nil, &out)
	return out, err
}

// ToggleWatchlist flips the favorite state of symbol.
func (c *Client) ToggleWatchlist(ctx context.Context, symbol string) (models.ToggleResponse, error) {
	var out models.ToggleResponse
	err := c.do(ctx, http.MethodPost, "/api/watchlist/toggle", models.ToggleRequest{Symbol: symbol}, &out)
	return out, err
}

// CheckFavorite reports whether symbol is on the user's watchlist.
func (c *Client) CheckFavorite(ctx context.Context, symbol string) (bool, error) {
	var out models.FavoriteStatus
	err := c.do(ctx, http.MethodGet, "/stocks/api/favorites/check/"+url.PathEscape(symbol), nil, &out)
	return out.Favorited, err
}

// AddPosition adds a holding. A zero PortfolioID targets the default
// portfolio.
func (c *Client) AddPosition(ctx context.Context, req models.PositionRequest) (models.PortfolioResponse, error) {
	path := "/portfolio/add"
	if req.PortfolioID != 0 {
		path = fmt.Sprintf("/portfolio/%d/add", req.PortfolioID)
	}
	var out models.PortfolioResponse
	err := c.do(ctx, http.MethodPost, path, req, &out)
	return out, err
}

// RemovePosition deletes a holding from a portfolio.
func (c *Client) RemovePosition(ctx context.Context, portfolioID, positionID uint) (models.PortfolioResponse, error) {
	var out models.PortfolioResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/portfolio/%d/remove/%d", portfolioID, positionID), nil, &out)
	return out, err
}

// CreatePortfolio creates an empty portfolio.
func (c *Client) CreatePortfolio(ctx context.Context, name string) (models.PortfolioResponse, error) {
	var out models.PortfolioResponse
	err := c.do(ctx, http.MethodPost, "/portfolio/create", models.PortfolioRequest{Name: name}, &out)
	return out, err
}

// CreateAlert registers a price alert.
func (c *Client) CreateAlert(ctx context.Context, req models.AlertRequest) (models.AlertResponse, error) {
	var out models.AlertResponse
	err := c.do(ctx, http.MethodPost, "/price-alerts/create", req, &out)
	return out, err
}

// LogError sends a client error report.
func (c *Client) LogError(ctx context.Context, report models.ClientError) error {
	return c.do(ctx, http.MethodPost, "/api/log-error", report, nil)
}
