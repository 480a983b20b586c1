package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Market categories used to batch price requests.
const (
	CategoryOslo   = "oslo"
	CategoryGlobal = "global"
	CategoryCrypto = "crypto"
	CategoryIndex  = "index"
)

// Quote is the latest known price of a single instrument.
type Quote struct {
	Symbol        string          `gorm:"primaryKey;size:32" json:"ticker"`
	Category      string          `gorm:"index;size:16" json:"category"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `gorm:"type:numeric" json:"price"`
	Change        decimal.Decimal `gorm:"type:numeric" json:"change"`
	ChangePercent decimal.Decimal `gorm:"type:numeric" json:"change_percent"`
	Volume        int64           `json:"volume"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Quote model
func (Quote) TableName() string {
	return "quotes"
}

// MarketSummary is returned by GET /api/realtime/market-summary
type MarketSummary struct {
	Indices    []Quote   `json:"indices"`
	MarketOpen bool      `json:"market_open"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BatchPricesResponse is returned by GET /api/realtime/batch-prices
type BatchPricesResponse struct {
	Category string           `json:"category"`
	Prices   map[string]Quote `json:"prices"`
}
