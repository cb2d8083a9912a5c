package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/prepdeck/metering/internal/usage/policy"
	"github.com/spf13/viper"
)

// QuotaHolder serves the current quota limits and hot-reloads them from
// quota.yml so caps can be tuned without a redeploy.
type QuotaHolder struct {
	current atomic.Value // holds policy.Limits
}

func NewQuotaHolder() (*QuotaHolder, error) {
	v := viper.New()

	v.SetConfigName("quota")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/prepdeck/config") // Volume-mounted config
	v.AddConfigPath("/etc/prepdeck")            // System config
	v.AddConfigPath(".")                        // Current directory (dev mode)

	v.SetEnvPrefix("PREPDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := policy.DefaultLimits()
	v.SetDefault("quota.anonymousLimit", defaults.AnonymousLimit)
	v.SetDefault("quota.freeMonthlyLimit", defaults.FreeMonthlyLimit)
	v.SetDefault("quota.trialHours", defaults.TrialHours)
	v.SetDefault("quota.resetWindowDays", defaults.ResetWindowDays)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	limits, err := readLimits(v)
	if err != nil {
		return nil, err
	}

	holder := &QuotaHolder{}
	holder.current.Store(limits)

	if fileFound {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := readLimits(v)
			if err != nil {
				log.Printf("[quota-config] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[quota-config] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

// StaticQuota returns a holder pinned to the given limits. Test helper.
func StaticQuota(limits policy.Limits) *QuotaHolder {
	holder := &QuotaHolder{}
	holder.current.Store(limits)
	return holder
}

func (h *QuotaHolder) Limits() policy.Limits {
	return h.current.Load().(policy.Limits)
}

func readLimits(v *viper.Viper) (policy.Limits, error) {
	limits := policy.Limits{
		AnonymousLimit:   v.GetInt("quota.anonymousLimit"),
		FreeMonthlyLimit: v.GetInt("quota.freeMonthlyLimit"),
		TrialHours:       v.GetFloat64("quota.trialHours"),
		ResetWindowDays:  v.GetInt("quota.resetWindowDays"),
	}
	return limits, validateLimits(limits)
}

func validateLimits(limits policy.Limits) error {
	if limits.AnonymousLimit <= 0 {
		return errors.New("quota.anonymousLimit must be positive")
	}
	if limits.FreeMonthlyLimit <= 0 {
		return errors.New("quota.freeMonthlyLimit must be positive")
	}
	if limits.TrialHours <= 0 {
		return errors.New("quota.trialHours must be positive")
	}
	if limits.ResetWindowDays <= 0 {
		return errors.New("quota.resetWindowDays must be positive")
	}
	return nil
}
