package policy

import (
	"testing"
	"time"

	accountdomain "github.com/prepdeck/metering/internal/account/domain"
	usagedomain "github.com/prepdeck/metering/internal/usage/domain"
	"github.com/stretchr/testify/assert"
)

func TestAnonymousStatus(t *testing.T) {
	limits := DefaultLimits()

	tests := []struct {
		name          string
		count         int
		wantCan       bool
		wantRemaining int
		wantMessage   string
	}{
		{"fresh fingerprint", 0, true, 3, "3 of 3 free questions remaining"},
		{"one used", 1, true, 2, "2 of 3 free questions remaining"},
		{"at limit", 3, false, 0, "0 of 3 free questions remaining"},
		{"over limit", 5, false, 0, "0 of 3 free questions remaining"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status := AnonymousStatus(tc.count, limits)

			assert.False(t, status.IsAuthenticated)
			assert.Equal(t, tc.wantCan, status.CanPractice)
			assert.Equal(t, tc.count, status.QuestionsUsed)
			assert.Equal(t, usagedomain.Limited(tc.wantRemaining), status.QuestionsRemaining)
			assert.Equal(t, usagedomain.Limited(3), status.QuestionsLimit)
			assert.Equal(t, tc.wantMessage, status.LimitMessage)
			assert.Equal(t, usagedomain.AllLocked(), status.IsLocked)
		})
	}
}

func TestAccountStatus_Free(t *testing.T) {
	limits := DefaultLimits()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	account := accountdomain.Account{
		PlanType:             accountdomain.PlanFree,
		MonthlyQuestionCount: 2,
		CreatedAt:            now.Add(-72 * time.Hour),
	}

	status := AccountStatus(account, now, limits)

	assert.True(t, status.IsAuthenticated)
	assert.Equal(t, accountdomain.PlanFree, status.PlanType)
	assert.True(t, status.CanPractice)
	assert.Equal(t, 2, status.QuestionsUsed)
	assert.Equal(t, usagedomain.Limited(1), status.QuestionsRemaining)
	assert.Equal(t, usagedomain.Limited(3), status.QuestionsLimit)
	assert.Equal(t, "1 of 3 monthly questions remaining", status.LimitMessage)
	assert.Equal(t, usagedomain.FreeLocks(), status.IsLocked)
	assert.False(t, status.TrialExpired)
	assert.Nil(t, status.TrialHoursRemaining)
}

func TestAccountStatus_FreeAtCap(t *testing.T) {
	limits := DefaultLimits()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	account := accountdomain.Account{
		PlanType:             accountdomain.PlanFree,
		MonthlyQuestionCount: 3,
		CreatedAt:            now.Add(-time.Hour),
	}

	status := AccountStatus(account, now, limits)

	assert.False(t, status.CanPractice)
	assert.Equal(t, usagedomain.Limited(0), status.QuestionsRemaining)
}

func TestAccountStatus_Trial(t *testing.T) {
	limits := DefaultLimits()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	started := now.Add(-10 * time.Hour)

	account := accountdomain.Account{
		PlanType:             accountdomain.PlanProTrial,
		TrialStartDate:       &started,
		MonthlyQuestionCount: 7,
	}

	status := AccountStatus(account, now, limits)

	assert.True(t, status.CanPractice)
	assert.Equal(t, usagedomain.UnlimitedAllowance(), status.QuestionsRemaining)
	assert.Equal(t, usagedomain.UnlimitedAllowance(), status.QuestionsLimit)
	assert.Equal(t, "Unlimited questions during trial", status.LimitMessage)
	assert.Equal(t, usagedomain.NoneLocked(), status.IsLocked)
	assert.False(t, status.TrialExpired)
	if assert.NotNil(t, status.TrialHoursRemaining) {
		assert.InDelta(t, 38, *status.TrialHoursRemaining, 0.001)
	}
}

func TestAccountStatus_Paid(t *testing.T) {
	limits := DefaultLimits()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	started := now.Add(-200 * time.Hour)

	account := accountdomain.Account{
		PlanType:             accountdomain.PlanProPaid,
		TrialStartDate:       &started,
		MonthlyQuestionCount: 500,
	}

	status := AccountStatus(account, now, limits)

	assert.True(t, status.CanPractice)
	assert.Equal(t, usagedomain.UnlimitedAllowance(), status.QuestionsRemaining)
	assert.Equal(t, usagedomain.NoneLocked(), status.IsLocked)
	// A past trial never shows as expired once the account is paid.
	assert.False(t, status.TrialExpired)
	assert.Nil(t, status.TrialHoursRemaining)
}

func TestAccountStatus_FreeAfterTrialReportsExpired(t *testing.T) {
	limits := DefaultLimits()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	started := now.Add(-49 * time.Hour)

	account := accountdomain.Account{
		PlanType:       accountdomain.PlanFree,
		TrialStartDate: &started,
		CreatedAt:      now.Add(-50 * time.Hour),
	}

	status := AccountStatus(account, now, limits)

	assert.True(t, status.TrialExpired)
	assert.Equal(t, accountdomain.PlanFree, status.PlanType)
	assert.Equal(t, usagedomain.FreeLocks(), status.IsLocked)
}

func TestAccountStatus_UnknownPlanSelfHeals(t *testing.T) {
	limits := DefaultLimits()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	account := accountdomain.Account{
		PlanType:             accountdomain.PlanType("enterprise"),
		MonthlyQuestionCount: -4,
		CreatedAt:            now,
	}

	status := AccountStatus(account, now, limits)

	assert.Equal(t, accountdomain.PlanFree, status.PlanType)
	assert.Equal(t, 0, status.QuestionsUsed)
	assert.Equal(t, usagedomain.Limited(3), status.QuestionsRemaining)
	assert.True(t, status.CanPractice)
}

func TestMonthlyResetDue(t *testing.T) {
	limits := DefaultLimits()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	lastReset := now.Add(-31 * 24 * time.Hour)
	recentReset := now.Add(-29 * 24 * time.Hour)

	tests := []struct {
		name    string
		account accountdomain.Account
		want    bool
	}{
		{"stale reset date", accountdomain.Account{LastQuestionResetDate: &lastReset}, true},
		{"recent reset date", accountdomain.Account{LastQuestionResetDate: &recentReset}, false},
		{"no reset, old account", accountdomain.Account{CreatedAt: now.Add(-31 * 24 * time.Hour)}, true},
		{"no reset, new account", accountdomain.Account{CreatedAt: now.Add(-24 * time.Hour)}, false},
		{"exactly on the window", accountdomain.Account{CreatedAt: now.Add(-30 * 24 * time.Hour)}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MonthlyResetDue(tc.account, now, limits))
		})
	}
}

func TestTrialExpired(t *testing.T) {
	limits := DefaultLimits()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	fresh := now.Add(-10 * time.Hour)
	stale := now.Add(-49 * time.Hour)
	exact := now.Add(-48 * time.Hour)

	tests := []struct {
		name    string
		account accountdomain.Account
		want    bool
	}{
		{"active trial", accountdomain.Account{PlanType: accountdomain.PlanProTrial, TrialStartDate: &fresh}, false},
		{"elapsed trial", accountdomain.Account{PlanType: accountdomain.PlanProTrial, TrialStartDate: &stale}, true},
		{"boundary counts as expired", accountdomain.Account{PlanType: accountdomain.PlanProTrial, TrialStartDate: &exact}, true},
		{"free never expires", accountdomain.Account{PlanType: accountdomain.PlanFree, TrialStartDate: &stale}, false},
		{"paid never expires", accountdomain.Account{PlanType: accountdomain.PlanProPaid, TrialStartDate: &stale}, false},
		{"trial without start date", accountdomain.Account{PlanType: accountdomain.PlanProTrial}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TrialExpired(tc.account, now, limits))
		})
	}
}

func TestFallbackStatus(t *testing.T) {
	limits := DefaultLimits()

	status := FallbackStatus(0, limits)
	assert.True(t, status.CanPractice)
	assert.Equal(t, 0, status.QuestionsUsed)
	assert.Equal(t, usagedomain.AllLocked(), status.IsLocked)

	// Even an at-cap fallback stays open.
	status = FallbackStatus(3, limits)
	assert.True(t, status.CanPractice)
	assert.Equal(t, 3, status.QuestionsUsed)
}
