package models

import (
	"time"
)

// ClientError is a best-effort error report sent by a client session.
type ClientError struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    *uint     `gorm:"index" json:"userId,omitempty"`
	Kind      string    `gorm:"size:32" json:"kind"`
	Message   string    `json:"message"`
	Source    string    `json:"source,omitempty"`
	Stack     string    `json:"stack,omitempty"`
	Path      string    `json:"path,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name for ClientError model
func (ClientError) TableName() string {
	return "client_errors"
}
