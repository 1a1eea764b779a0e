package models

import (
	"time"
)

// FAQ is a curated question/answer pair
type FAQ struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Category        string    `json:"category" gorm:"size:64;not null;index"`
	Question        string    `json:"question" gorm:"type:text;not null"`
	Answer          string    `json:"answer" gorm:"type:text;not null"`
	Keywords        []string  `json:"keywords" gorm:"type:text;serializer:json"`
	UsageCount      int       `json:"usage_count" gorm:"not null;default:0"`
	HelpfulCount    int       `json:"helpful_count" gorm:"not null;default:0"`
	NotHelpfulCount int       `json:"not_helpful_count" gorm:"not null;default:0"`
	Active          bool      `json:"active" gorm:"not null;index"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (FAQ) TableName() string {
	return "faqs"
}

// HelpfulRatio is helpful/(helpful+not_helpful), 0 without feedback
func (f *FAQ) HelpfulRatio() float64 {
	total := f.HelpfulCount + f.NotHelpfulCount
	if total <= 0 {
		return 0
	}
	return float64(f.HelpfulCount) / float64(total)
}
