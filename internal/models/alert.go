package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Alert directions.
const (
	DirectionAbove = "above"
	DirectionBelow = "below"
)

// PriceAlert fires when a symbol crosses TargetPrice in Direction.
type PriceAlert struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"index" json:"userId"`
	Symbol      string          `gorm:"size:32;index" json:"symbol"`
	TargetPrice decimal.Decimal `gorm:"type:numeric" json:"targetPrice"`
	Direction   string          `gorm:"size:8" json:"direction"`
	Active      bool            `gorm:"default:true" json:"active"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// TableName specifies the table name for PriceAlert model
func (PriceAlert) TableName() string {
	return "price_alerts"
}

// AlertRequest is the body of POST /price-alerts/create
type AlertRequest struct {
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Direction string `json:"direction"`
}

// AlertResponse is returned by POST /price-alerts/create
type AlertResponse struct {
	Success bool        `json:"success"`
	Alert   *PriceAlert `json:"alert,omitempty"`
	Error   string      `json:"error,omitempty"`
}
