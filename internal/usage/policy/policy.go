// Package policy derives access decisions from counter snapshots and the
// current time. Everything here is pure: no I/O, no clocks, no stores.
package policy

import (
	"fmt"
	"time"

	accountdomain "github.com/prepdeck/metering/internal/account/domain"
	usagedomain "github.com/prepdeck/metering/internal/usage/domain"
)

// Limits carries the tunable quota knobs. Values come from the hot-reloadable
// quota config; DefaultLimits matches the shipped product behavior.
type Limits struct {
	AnonymousLimit   int
	FreeMonthlyLimit int
	TrialHours       float64
	ResetWindowDays  int
}

func DefaultLimits() Limits {
	return Limits{
		AnonymousLimit:   3,
		FreeMonthlyLimit: 3,
		TrialHours:       48,
		ResetWindowDays:  30,
	}
}

// AnonymousStatus computes status for a fingerprint-keyed caller. The
// anonymous cap is lifetime: there is no reset window.
func AnonymousStatus(questionCount int, limits Limits) usagedomain.UsageStatus {
	remaining := limits.AnonymousLimit - questionCount
	if remaining < 0 {
		remaining = 0
	}
	return usagedomain.UsageStatus{
		IsAuthenticated:    false,
		CanPractice:        questionCount < limits.AnonymousLimit,
		QuestionsUsed:      questionCount,
		QuestionsRemaining: usagedomain.Limited(remaining),
		QuestionsLimit:     usagedomain.Limited(limits.AnonymousLimit),
		LimitMessage:       fmt.Sprintf("%d of %d free questions remaining", remaining, limits.AnonymousLimit),
		IsLocked:           usagedomain.AllLocked(),
	}
}

// AccountStatus computes status for an authenticated account. It assumes the
// lazy monthly reset and trial downgrade have already been applied; it only
// reads the snapshot it is given.
func AccountStatus(account accountdomain.Account, now time.Time, limits Limits) usagedomain.UsageStatus {
	status := usagedomain.UsageStatus{
		IsAuthenticated: true,
		PlanType:        account.PlanType,
		TrialExpired:    trialConsumed(account, now, limits),
	}

	switch account.PlanType {
	case accountdomain.PlanProPaid:
		status.TrialExpired = false
		status.CanPractice = true
		status.QuestionsUsed = account.MonthlyQuestionCount
		status.QuestionsRemaining = usagedomain.UnlimitedAllowance()
		status.QuestionsLimit = usagedomain.UnlimitedAllowance()
		status.LimitMessage = "Unlimited questions"
		status.IsLocked = usagedomain.NoneLocked()
		return status

	case accountdomain.PlanProTrial:
		hours := limits.TrialHours - elapsedTrialHours(account, now)
		if hours < 0 {
			hours = 0
		}
		status.TrialExpired = false
		status.CanPractice = true
		status.QuestionsUsed = account.MonthlyQuestionCount
		status.QuestionsRemaining = usagedomain.UnlimitedAllowance()
		status.QuestionsLimit = usagedomain.UnlimitedAllowance()
		status.LimitMessage = "Unlimited questions during trial"
		status.IsLocked = usagedomain.NoneLocked()
		status.TrialHoursRemaining = &hours
		return status

	default:
		// free, plus unknown plan values which self-heal to free behavior.
		used := account.MonthlyQuestionCount
		if used < 0 {
			used = 0
		}
		remaining := limits.FreeMonthlyLimit - used
		if remaining < 0 {
			remaining = 0
		}
		status.PlanType = accountdomain.PlanFree
		status.CanPractice = used < limits.FreeMonthlyLimit
		status.QuestionsUsed = used
		status.QuestionsRemaining = usagedomain.Limited(remaining)
		status.QuestionsLimit = usagedomain.Limited(limits.FreeMonthlyLimit)
		status.LimitMessage = fmt.Sprintf("%d of %d monthly questions remaining", remaining, limits.FreeMonthlyLimit)
		status.IsLocked = usagedomain.FreeLocks()
		return status
	}
}

// MonthlyResetDue reports whether the rolling window elapsed. Evaluated on
// every status read, before the trial-expiry check.
func MonthlyResetDue(account accountdomain.Account, now time.Time, limits Limits) bool {
	anchor := account.ResetAnchor()
	if anchor.IsZero() {
		return false
	}
	return now.Sub(anchor) >= time.Duration(limits.ResetWindowDays)*24*time.Hour
}

// TrialExpired reports whether a running trial has elapsed its window.
func TrialExpired(account accountdomain.Account, now time.Time, limits Limits) bool {
	if account.PlanType != accountdomain.PlanProTrial {
		return false
	}
	return elapsedTrialHours(account, now) >= limits.TrialHours
}

// TrialCutoff is the latest trial_start_date that counts as expired at now.
func TrialCutoff(now time.Time, limits Limits) time.Time {
	return now.Add(-time.Duration(limits.TrialHours * float64(time.Hour)))
}

// ResetCutoff is the latest reset anchor that counts as stale at now.
func ResetCutoff(now time.Time, limits Limits) time.Time {
	return now.Add(-time.Duration(limits.ResetWindowDays) * 24 * time.Hour)
}

// FallbackStatus is the single fail-open constructor shared by the check and
// track degraded paths: the caller is reported as an anonymous visitor with
// questionsUsed consumed, allowed to practice, with every feature locked.
func FallbackStatus(questionsUsed int, limits Limits) usagedomain.UsageStatus {
	status := AnonymousStatus(questionsUsed, limits)
	status.CanPractice = true
	return status
}

func elapsedTrialHours(account accountdomain.Account, now time.Time) float64 {
	if account.TrialStartDate == nil {
		return 0
	}
	return now.Sub(*account.TrialStartDate).Hours()
}

// trialConsumed reports whether the account ever had a trial that has since
// run out. After the lazy downgrade the account is free again; this keeps the
// reported trialExpired flag truthful for it.
func trialConsumed(account accountdomain.Account, now time.Time, limits Limits) bool {
	if account.TrialStartDate == nil {
		return false
	}
	return now.Sub(*account.TrialStartDate).Hours() >= limits.TrialHours
}
