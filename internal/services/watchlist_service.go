package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/aksjeradar/aksjeradar/internal/models"
)

type WatchlistService struct {
	DB *gorm.DB
}

func NewWatchlistService(db *gorm.DB) *WatchlistService {
	return &WatchlistService{DB: db}
}

// List gets all watchlist entries for a user, oldest first
func (s *WatchlistService) List(userID uint) ([]models.WatchlistEntry, error) {
	var entries []models.WatchlistEntry
	result := s.DB.Where("user_id = ?", userID).Order("created_at, id").Find(&entries)
	return entries, result.Error
}

// IsFavorite reports whether symbol is on the user's watchlist
func (s *WatchlistService) IsFavorite(userID uint, symbol string) (bool, error) {
	var n int64
	err := s.DB.Model(&models.WatchlistEntry{}).
		Where("user_id = ? AND symbol = ?", userID, normalizeSymbol(symbol)).
		Count(&n).Error
	return n > 0, err
}

// Toggle adds symbol when absent and removes it when present. It returns
// the action taken.
func (s *WatchlistService) Toggle(userID uint, symbol string) (string, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return "", ErrInvalidInput
	}

	action := ""
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.WatchlistEntry
		err := tx.Where("user_id = ? AND symbol = ?", userID, symbol).First(&existing).Error
		switch {
		case err == nil:
			action = models.WatchlistRemoved
			return tx.Delete(&existing).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			action = models.WatchlistAdded
			return tx.Create(&models.WatchlistEntry{UserID: userID, Symbol: symbol, CreatedAt: time.Now()}).Error
		default:
			return err
		}
	})
	if err != nil {
		return "", err
	}
	return action, nil
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
