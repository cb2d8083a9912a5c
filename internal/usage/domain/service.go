package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	visitordomain "github.com/prepdeck/metering/internal/visitor/domain"
)

// Request identifies the caller of a check or track operation. AccountID is
// zero for anonymous callers; identity resolution happens upstream.
type Request struct {
	AccountID   snowflake.ID
	Fingerprint string
	IPAddress   string
}

// Anonymous reports whether the request carries no authenticated identity.
func (r Request) Anonymous() bool { return r.AccountID == 0 }

// Service computes usage status and records consumption.
//
// Check is read-mostly: it may apply the lazy monthly reset and trial
// downgrade, both idempotent conditional writes. Track increments first and
// unconditionally, then recomputes status through the check path.
type Service interface {
	Check(ctx context.Context, req Request) (UsageStatus, error)
	Track(ctx context.Context, req Request) (UsageStatus, error)
}

// ErrFingerprintRequired is surfaced when an anonymous request carries no
// fingerprint. Re-exported so HTTP handlers depend on one domain.
var ErrFingerprintRequired = visitordomain.ErrFingerprintRequired
