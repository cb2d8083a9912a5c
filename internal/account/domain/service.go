package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Service exposes plan transitions. Transitions are one-directional:
// free -> pro_trial -> free (on expiry), and any plan -> pro_paid.
type Service interface {
	GetByID(ctx context.Context, id snowflake.ID) (*Account, error)
	StartTrial(ctx context.Context, id snowflake.ID) (*Account, error)
	ActivatePaid(ctx context.Context, id snowflake.ID) (*Account, error)
}
