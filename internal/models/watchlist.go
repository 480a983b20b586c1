package models

import (
	"time"
)

// WatchlistEntry marks a symbol as favorited by a user.
type WatchlistEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_watchlist_user_symbol" json:"userId"`
	Symbol    string    `gorm:"uniqueIndex:idx_watchlist_user_symbol;size:32" json:"symbol"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name for WatchlistEntry model
func (WatchlistEntry) TableName() string {
	return "watchlist_entries"
}

// Watchlist actions reported by a toggle.
const (
	WatchlistAdded   = "added"
	WatchlistRemoved = "removed"
)

// ToggleRequest is the body of POST /api/watchlist/toggle
type ToggleRequest struct {
	Symbol string `json:"symbol"`
}

// ToggleResponse is returned by POST /api/watchlist/toggle
type ToggleResponse struct {
	Success bool   `json:"success"`
	Action  string `json:"action,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// FavoriteStatus is returned by GET /stocks/api/favorites/check/{symbol}
type FavoriteStatus struct {
	Symbol    string `json:"symbol"`
	Favorited bool   `json:"favorited"`
}
