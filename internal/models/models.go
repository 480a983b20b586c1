package models

// Message represents a WebSocket message
type Message struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content"`
}

// WebSocket message types
const (
	MessageMarketSummary = "market_summary"
	MessageQuote         = "quote"
	MessageAlert         = "alert"
)

// CSRFTokenResponse is returned by GET /api/csrf-token
type CSRFTokenResponse struct {
	Token string `json:"csrf_token"`
}
