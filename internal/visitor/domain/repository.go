package domain

import (
	"context"
	"errors"
	"time"
)

// Repository is the counter store for anonymous fingerprints.
//
// Both mutations are single upsert statements keyed on the fingerprint's
// unique index, so concurrent calls for the same fingerprint serialize at the
// store and never lose an update.
type Repository interface {
	// Touch creates the record with a zero counter if absent, otherwise
	// refreshes the last-seen IP. Returns the current record either way.
	Touch(ctx context.Context, fingerprint, ipAddress string, now time.Time) (*VisitorUsage, error)

	// IncrementQuestionCount upserts the record with question_count + 1,
	// stamping last_question_date and refreshing the IP. Returns the record
	// after the increment.
	IncrementQuestionCount(ctx context.Context, fingerprint, ipAddress string, now time.Time) (*VisitorUsage, error)
}

var ErrFingerprintRequired = errors.New("fingerprint_required")
