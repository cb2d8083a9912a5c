// Package seed provisions demo accounts for non-production environments.
package seed

import (
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/prepdeck/metering/internal/account/domain"
	"gorm.io/gorm"
)

// EnsureDemoAccounts creates one account per plan tier if absent, so local
// setups can exercise every branch of the policy engine immediately.
func EnsureDemoAccounts(conn *gorm.DB, genID *snowflake.Node) error {
	now := time.Now().UTC()
	trialStart := now.Add(-2 * time.Hour)

	demos := []accountdomain.Account{
		{
			ID:        genID.Generate(),
			Email:     "demo-free@prepdeck.local",
			PlanType:  accountdomain.PlanFree,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:             genID.Generate(),
			Email:          "demo-trial@prepdeck.local",
			PlanType:       accountdomain.PlanProTrial,
			TrialStartDate: &trialStart,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		{
			ID:        genID.Generate(),
			Email:     "demo-paid@prepdeck.local",
			PlanType:  accountdomain.PlanProPaid,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	for i := range demos {
		err := conn.
			Where(accountdomain.Account{Email: demos[i].Email}).
			FirstOrCreate(&demos[i]).Error
		if err != nil {
			return err
		}
	}
	return nil
}
