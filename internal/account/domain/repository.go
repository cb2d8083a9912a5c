package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Repository is the counter store for authenticated accounts.
//
// All mutations are single atomic statements. Increments never read first;
// resets and downgrades carry their staleness predicate in the WHERE clause
// and set absolute values, so concurrent duplicates are harmless.
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id snowflake.ID) (*Account, error)

	// IncrementMonthlyCount adds 1 to monthly_question_count unconditionally.
	IncrementMonthlyCount(ctx context.Context, id snowflake.ID, now time.Time) error

	// ResetMonthlyCount zeroes the monthly counter when the reset anchor is at
	// or before cutoff. Returns true when a row was updated.
	ResetMonthlyCount(ctx context.Context, id snowflake.ID, cutoff, now time.Time) (bool, error)

	// ExpireTrial downgrades a pro_trial account whose trial started at or
	// before cutoff to free, zeroing the monthly counter. Returns true when a
	// row was updated.
	ExpireTrial(ctx context.Context, id snowflake.ID, cutoff, now time.Time) (bool, error)

	// StartTrial moves a free account that has never trialed to pro_trial.
	// Returns false when the account is ineligible.
	StartTrial(ctx context.Context, id snowflake.ID, now time.Time) (bool, error)

	// ActivatePaid moves an account to pro_paid. Returns false when the
	// account is already paid.
	ActivatePaid(ctx context.Context, id snowflake.ID, now time.Time) (bool, error)
}

var (
	ErrAccountExists    = errors.New("account_exists")
	ErrAccountNotFound  = errors.New("account_not_found")
	ErrTrialUnavailable = errors.New("trial_unavailable")
	ErrAlreadyPaid      = errors.New("already_paid")
)
