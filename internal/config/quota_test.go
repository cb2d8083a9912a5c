package config

import (
	"testing"

	"github.com/prepdeck/metering/internal/usage/policy"
	"github.com/stretchr/testify/assert"
)

func TestNewQuotaHolder_DefaultsWithoutFile(t *testing.T) {
	holder, err := NewQuotaHolder()
	assert.NoError(t, err)
	assert.Equal(t, policy.DefaultLimits(), holder.Limits())
}

func TestStaticQuota(t *testing.T) {
	limits := policy.Limits{AnonymousLimit: 5, FreeMonthlyLimit: 10, TrialHours: 24, ResetWindowDays: 7}
	assert.Equal(t, limits, StaticQuota(limits).Limits())
}

func TestValidateLimits(t *testing.T) {
	valid := policy.DefaultLimits()
	assert.NoError(t, validateLimits(valid))

	tests := []struct {
		name   string
		mutate func(*policy.Limits)
	}{
		{"zero anonymous limit", func(l *policy.Limits) { l.AnonymousLimit = 0 }},
		{"negative monthly limit", func(l *policy.Limits) { l.FreeMonthlyLimit = -1 }},
		{"zero trial hours", func(l *policy.Limits) { l.TrialHours = 0 }},
		{"zero reset window", func(l *policy.Limits) { l.ResetWindowDays = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			limits := valid
			tc.mutate(&limits)
			assert.Error(t, validateLimits(limits))
		})
	}
}
