// Package domain contains persistence models for metered user accounts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PlanType represents the access tier of an account.
type PlanType string

const (
	PlanFree     PlanType = "free"
	PlanProTrial PlanType = "pro_trial"
	PlanProPaid  PlanType = "pro_paid"
)

// Known reports whether the stored plan value is one this service understands.
// Corrupt plan values are treated as free by the policy layer.
func (p PlanType) Known() bool {
	switch p {
	case PlanFree, PlanProTrial, PlanProPaid:
		return true
	default:
		return false
	}
}

// Account captures the metering-relevant subset of a user account.
type Account struct {
	ID                    snowflake.ID `gorm:"primaryKey"`
	Email                 string       `gorm:"type:text;uniqueIndex"`
	PlanType              PlanType     `gorm:"type:text;not null;default:free"`
	TrialStartDate        *time.Time   `gorm:""`
	MonthlyQuestionCount  int          `gorm:"not null;default:0"`
	LastQuestionResetDate *time.Time   `gorm:""`
	CreatedAt             time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt             time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }

// ResetAnchor is the reference point for the rolling monthly window:
// the last reset if one happened, account creation otherwise.
func (a Account) ResetAnchor() time.Time {
	if a.LastQuestionResetDate != nil {
		return *a.LastQuestionResetDate
	}
	return a.CreatedAt
}
