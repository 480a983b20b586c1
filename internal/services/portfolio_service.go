package services

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aksjeradar/aksjeradar/internal/models"
)

// DefaultPortfolioName is used when a position is added without a portfolio.
const DefaultPortfolioName = "Min portefølje"

type PortfolioService struct {
	DB *gorm.DB
}

func NewPortfolioService(db *gorm.DB) *PortfolioService {
	return &PortfolioService{DB: db}
}

// Create creates an empty portfolio
func (s *PortfolioService) Create(userID uint, name string) (*models.Portfolio, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	p := models.Portfolio{UserID: userID, Name: name, Positions: []models.Position{}}
	if err := s.DB.Create(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Get returns a portfolio with its positions if it belongs to userID
func (s *PortfolioService) Get(userID, id uint) (*models.Portfolio, error) {
	var p models.Portfolio
	err := s.DB.Preload("Positions").Where("id = ? AND user_id = ?", id, userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Default returns the user's first portfolio, creating it if needed
func (s *PortfolioService) Default(userID uint) (*models.Portfolio, error) {
	var p models.Portfolio
	err := s.DB.Where("user_id = ?", userID).Order("id").First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.Create(userID, DefaultPortfolioName)
	}
	if err != nil {
		return nil, err
	}
	return s.Get(userID, p.ID)
}

// AddPosition adds a holding to portfolioID, or to the default portfolio
// when portfolioID is zero
func (s *PortfolioService) AddPosition(userID, portfolioID uint, req models.PositionRequest) (*models.Portfolio, error) {
	ticker := normalizeSymbol(req.Ticker)
	shares, err1 := decimal.NewFromString(strings.TrimSpace(req.Shares))
	price, err2 := decimal.NewFromString(strings.TrimSpace(req.PurchasePrice))
	if ticker == "" || err1 != nil || err2 != nil || !shares.IsPositive() || !price.IsPositive() {
		return nil, ErrInvalidInput
	}

	var p *models.Portfolio
	var err error
	if portfolioID == 0 {
		p, err = s.Default(userID)
	} else {
		p, err = s.Get(userID, portfolioID)
	}
	if err != nil {
		return nil, err
	}

	pos := models.Position{PortfolioID: p.ID, Ticker: ticker, Shares: shares, PurchasePrice: price}
	if err := s.DB.Create(&pos).Error; err != nil {
		return nil, err
	}
	return s.Get(userID, p.ID)
}

// RemovePosition deletes a holding from a portfolio owned by userID
func (s *PortfolioService) RemovePosition(userID, portfolioID, positionID uint) (*models.Portfolio, error) {
	if _, err := s.Get(userID, portfolioID); err != nil {
		return nil, err
	}
	result := s.DB.Where("id = ? AND portfolio_id = ?", positionID, portfolioID).Delete(&models.Position{})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(userID, portfolioID)
}
