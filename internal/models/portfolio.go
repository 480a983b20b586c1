package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio groups the positions a user tracks.
type Portfolio struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index" json:"userId"`
	Name      string     `json:"name"`
	Positions []Position `gorm:"foreignKey:PortfolioID;constraint:OnDelete:CASCADE" json:"positions"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// TableName specifies the table name for Portfolio model
func (Portfolio) TableName() string {
	return "portfolios"
}

// Position is a holding inside a portfolio.
type Position struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	PortfolioID   uint            `gorm:"index" json:"portfolioId"`
	Ticker        string          `gorm:"size:32" json:"ticker"`
	Shares        decimal.Decimal `gorm:"type:numeric" json:"shares"`
	PurchasePrice decimal.Decimal `gorm:"type:numeric" json:"purchasePrice"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// TableName specifies the table name for Position model
func (Position) TableName() string {
	return "positions"
}

// PositionRequest is the body of POST /portfolio/add and /portfolio/{id}/add
type PositionRequest struct {
	PortfolioID   uint   `json:"portfolio_id,omitempty"`
	Ticker        string `json:"ticker"`
	Shares        string `json:"shares"`
	PurchasePrice string `json:"purchase_price"`
}

// PortfolioRequest is the body of POST /portfolio/create
type PortfolioRequest struct {
	Name string `json:"name"`
}

// PortfolioResponse is returned by the portfolio mutation endpoints
type PortfolioResponse struct {
	Success   bool       `json:"success"`
	Portfolio *Portfolio `json:"portfolio,omitempty"`
	Error     string     `json:"error,omitempty"`
}
