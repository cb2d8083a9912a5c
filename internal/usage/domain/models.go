// Package domain contains the derived usage-status value object returned by
// every check and track call. Nothing here is persisted.
package domain

import (
	"encoding/json"
	"fmt"

	accountdomain "github.com/prepdeck/metering/internal/account/domain"
)

// Allowance is a question quota that may be unlimited. Unlimited values
// marshal as the string "Unlimited", bounded values as a plain number.
type Allowance struct {
	Unlimited bool
	Count     int
}

func Limited(n int) Allowance       { return Allowance{Count: n} }
func UnlimitedAllowance() Allowance { return Allowance{Unlimited: true} }

func (a Allowance) MarshalJSON() ([]byte, error) {
	if a.Unlimited {
		return json.Marshal("Unlimited")
	}
	return json.Marshal(a.Count)
}

func (a *Allowance) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*a = Allowance{Count: n}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s != "Unlimited" {
		return fmt.Errorf("invalid allowance %q", s)
	}
	*a = Allowance{Unlimited: true}
	return nil
}

// FeatureLocks is the per-plan capability gate matrix. A true value means the
// feature is locked for the caller.
type FeatureLocks struct {
	Category  bool `json:"category"`
	Voice     bool `json:"voice"`
	Timer     bool `json:"timer"`
	Dashboard bool `json:"dashboard"`
	History   bool `json:"history"`
}

// AllLocked is the anonymous lock matrix: every feature gated.
func AllLocked() FeatureLocks {
	return FeatureLocks{Category: true, Voice: true, Timer: true, Dashboard: true, History: true}
}

// FreeLocks gates category, voice and timer while leaving dashboard and
// history open.
func FreeLocks() FeatureLocks {
	return FeatureLocks{Category: true, Voice: true, Timer: true}
}

// NoneLocked is the pro matrix: everything open.
func NoneLocked() FeatureLocks { return FeatureLocks{} }

// UsageStatus is the access decision computed on every check or track call.
type UsageStatus struct {
	IsAuthenticated     bool                   `json:"isAuthenticated"`
	PlanType            accountdomain.PlanType `json:"planType,omitempty"`
	CanPractice         bool                   `json:"canPractice"`
	QuestionsUsed       int                    `json:"questionsUsed"`
	QuestionsRemaining  Allowance              `json:"questionsRemaining"`
	QuestionsLimit      Allowance              `json:"questionsLimit"`
	LimitMessage        string                 `json:"limitMessage"`
	IsLocked            FeatureLocks           `json:"isLocked"`
	TrialExpired        bool                   `json:"trialExpired,omitempty"`
	TrialHoursRemaining *float64               `json:"trialHoursRemaining,omitempty"`
}
