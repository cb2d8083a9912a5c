package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/prepdeck/metering/internal/account/domain"
	"github.com/prepdeck/metering/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Accounts accountdomain.Repository
}

type Service struct {
	log      *zap.Logger
	clock    clock.Clock
	accounts accountdomain.Repository
}

func NewService(p ServiceParam) accountdomain.Service {
	return &Service{
		log:      p.Log.Named("account.service"),
		clock:    p.Clock,
		accounts: p.Accounts,
	}
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*accountdomain.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

func (s *Service) StartTrial(ctx context.Context, id snowflake.ID) (*accountdomain.Account, error) {
	now := s.clock.Now()
	started, err := s.accounts.StartTrial(ctx, id, now)
	if err != nil {
		return nil, err
	}
	if !started {
		// Either not free, or the trial was already consumed.
		if _, err := s.accounts.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, accountdomain.ErrTrialUnavailable
	}
	s.log.Info("trial started", zap.String("account_id", id.String()))
	return s.accounts.GetByID(ctx, id)
}

func (s *Service) ActivatePaid(ctx context.Context, id snowflake.ID) (*accountdomain.Account, error) {
	now := s.clock.Now()
	activated, err := s.accounts.ActivatePaid(ctx, id, now)
	if err != nil {
		return nil, err
	}
	if !activated {
		if _, err := s.accounts.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, accountdomain.ErrAlreadyPaid
	}
	s.log.Info("plan activated", zap.String("account_id", id.String()))
	return s.accounts.GetByID(ctx, id)
}
