// Package domain contains persistence models for anonymous visitor usage.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// VisitorUsage holds the lifetime question counter for one anonymous
// fingerprint. The IP address is informational only and never used for
// limiting; there is no reset window for anonymous visitors.
type VisitorUsage struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	Fingerprint      string       `gorm:"type:text;not null;uniqueIndex"`
	IPAddress        string       `gorm:"type:text"`
	QuestionCount    int          `gorm:"not null;default:0"`
	LastQuestionDate *time.Time   `gorm:""`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (VisitorUsage) TableName() string { return "visitor_usage" }
