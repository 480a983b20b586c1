package services

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aksjeradar/aksjeradar/internal/models"
)

const maxReportField = 4096

type ErrorLogService struct {
	DB *gorm.DB
}

func NewErrorLogService(db *gorm.DB) *ErrorLogService {
	return &ErrorLogService{DB: db}
}

// Record stores a client error report. Oversized fields are truncated and
// a missing or duplicate id is replaced.
func (s *ErrorLogService) Record(report models.ClientError) (*models.ClientError, error) {
	if _, err := uuid.Parse(report.ID); err != nil {
		report.ID = uuid.NewString()
	}
	report.Message = truncate(report.Message)
	report.Stack = truncate(report.Stack)
	report.Source = truncate(report.Source)
	report.CreatedAt = time.Now()

	var n int64
	s.DB.Model(&models.ClientError{}).Where("id = ?", report.ID).Count(&n)
	if n > 0 {
		report.ID = uuid.NewString()
	}
	if err := s.DB.Create(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// Recent returns the newest reports
func (s *ErrorLogService) Recent(limit int) ([]models.ClientError, error) {
	var reports []models.ClientError
	err := s.DB.Order("created_at DESC").Limit(limit).Find(&reports).Error
	return reports, err
}

func truncate(s string) string {
	if len(s) <= maxReportField {
		return s
	}
	return s[:maxReportField]
}
