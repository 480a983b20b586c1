package services

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aksjeradar/aksjeradar/internal/models"
)

type AlertService struct {
	DB *gorm.DB
}

func NewAlertService(db *gorm.DB) *AlertService {
	return &AlertService{DB: db}
}

// Create stores an active price alert. Missing or malformed fields
// yield ErrInvalidInput.
func (s *AlertService) Create(userID uint, req models.AlertRequest) (*models.PriceAlert, error) {
	symbol := normalizeSymbol(req.Symbol)
	direction := strings.ToLower(strings.TrimSpace(req.Direction))
	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if symbol == "" || err != nil || !price.IsPositive() ||
		(direction != models.DirectionAbove && direction != models.DirectionBelow) {
		return nil, ErrInvalidInput
	}

	alert := models.PriceAlert{
		UserID:      userID,
		Symbol:      symbol,
		TargetPrice: price,
		Direction:   direction,
		Active:      true,
		CreatedAt:   time.Now(),
	}
	if err := s.DB.Create(&alert).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

// List returns the user's alerts, newest first
func (s *AlertService) List(userID uint) ([]models.PriceAlert, error) {
	var alerts []models.PriceAlert
	err := s.DB.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&alerts).Error
	return alerts, err
}

// Triggered returns active alerts whose condition holds for q
func (s *AlertService) Triggered(q models.Quote) ([]models.PriceAlert, error) {
	var alerts []models.PriceAlert
	err := s.DB.Where("symbol = ? AND active = ?", q.Symbol, true).Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	var hit []models.PriceAlert
	for _, a := range alerts {
		if (a.Direction == models.DirectionAbove && q.Price.GreaterThanOrEqual(a.TargetPrice)) ||
			(a.Direction == models.DirectionBelow && q.Price.LessThanOrEqual(a.TargetPrice)) {
			hit = append(hit, a)
		}
	}
	return hit, nil
}

// ActiveSymbols returns the distinct symbols with at least one active alert
func (s *AlertService) ActiveSymbols() ([]string, error) {
	var symbols []string
	err := s.DB.Model(&models.PriceAlert{}).Where("active = ?", true).Distinct().Order("symbol").Pluck("symbol", &symbols).Error
	return symbols, err
}

// Deactivate marks an alert as fired
func (s *AlertService) Deactivate(id uint) error {
	return s.DB.Model(&models.PriceAlert{}).Where("id = ?", id).Update("active", false).Error
}
