package service

import (
	"context"
	"strings"

	accountdomain "github.com/prepdeck/metering/internal/account/domain"
	"github.com/prepdeck/metering/internal/clock"
	"github.com/prepdeck/metering/internal/config"
	"github.com/prepdeck/metering/internal/observability/metrics"
	usagedomain "github.com/prepdeck/metering/internal/usage/domain"
	"github.com/prepdeck/metering/internal/usage/policy"
	visitordomain "github.com/prepdeck/metering/internal/visitor/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Quota    *config.QuotaHolder
	Visitors visitordomain.Repository
	Accounts accountdomain.Repository
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	clock    clock.Clock
	quota    *config.QuotaHolder
	visitors visitordomain.Repository
	accounts accountdomain.Repository
	metrics  *metrics.Metrics
}

func NewService(p ServiceParam) usagedomain.Service {
	return &Service{
		log:      p.Log.Named("usage.service"),
		clock:    p.Clock,
		quota:    p.Quota,
		visitors: p.Visitors,
		accounts: p.Accounts,
		metrics:  p.Metrics,
	}
}

func (s *Service) Check(ctx context.Context, req usagedomain.Request) (usagedomain.UsageStatus, error) {
	limits := s.quota.Limits()

	if req.Anonymous() {
		status, err := s.checkAnonymous(ctx, req, limits)
		if err == nil {
			s.countCheck(metrics.IdentityAnonymous)
		}
		return status, err
	}

	status, err := s.checkAccount(ctx, req, limits)
	if err == nil {
		s.countCheck(metrics.IdentityAuthenticated)
	}
	return status, err
}

func (s *Service) Track(ctx context.Context, req usagedomain.Request) (usagedomain.UsageStatus, error) {
	limits := s.quota.Limits()
	now := s.clock.Now()

	if req.Anonymous() {
		fingerprint := strings.TrimSpace(req.Fingerprint)
		if fingerprint == "" {
			return usagedomain.UsageStatus{}, usagedomain.ErrFingerprintRequired
		}
		record, err := s.visitors.IncrementQuestionCount(ctx, fingerprint, req.IPAddress, now)
		if err != nil {
			return usagedomain.UsageStatus{}, err
		}
		s.countTrack(metrics.IdentityAnonymous)
		return policy.AnonymousStatus(record.QuestionCount, limits), nil
	}

	// Increment first, unconditionally; status becomes consistent on the
	// recompute below.
	if err := s.accounts.IncrementMonthlyCount(ctx, req.AccountID, now); err != nil {
		return usagedomain.UsageStatus{}, err
	}
	s.countTrack(metrics.IdentityAuthenticated)
	return s.checkAccount(ctx, req, limits)
}

func (s *Service) checkAnonymous(ctx context.Context, req usagedomain.Request, limits policy.Limits) (usagedomain.UsageStatus, error) {
	fingerprint := strings.TrimSpace(req.Fingerprint)
	if fingerprint == "" {
		return usagedomain.UsageStatus{}, usagedomain.ErrFingerprintRequired
	}
	record, err := s.visitors.Touch(ctx, fingerprint, req.IPAddress, s.clock.Now())
	if err != nil {
		return usagedomain.UsageStatus{}, err
	}
	return policy.AnonymousStatus(record.QuestionCount, limits), nil
}

// checkAccount applies the two lazy transitions before deriving status:
// monthly reset first, then trial expiry. Both writes are conditional and
// idempotent, so a concurrent request applying the same transition is
// harmless.
func (s *Service) checkAccount(ctx context.Context, req usagedomain.Request, limits policy.Limits) (usagedomain.UsageStatus, error) {
	account, err := s.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		return usagedomain.UsageStatus{}, err
	}

	now := s.clock.Now()

	if policy.MonthlyResetDue(*account, now, limits) {
		did, err := s.accounts.ResetMonthlyCount(ctx, account.ID, policy.ResetCutoff(now, limits), now)
		if err != nil {
			return usagedomain.UsageStatus{}, err
		}
		account.MonthlyQuestionCount = 0
		account.LastQuestionResetDate = &now
		if did {
			s.countMonthlyReset()
			s.log.Debug("monthly counter reset",
				zap.String("account_id", account.ID.String()))
		}
	}

	if policy.TrialExpired(*account, now, limits) {
		did, err := s.accounts.ExpireTrial(ctx, account.ID, policy.TrialCutoff(now, limits), now)
		if err != nil {
			return usagedomain.UsageStatus{}, err
		}
		account.PlanType = accountdomain.PlanFree
		account.MonthlyQuestionCount = 0
		account.LastQuestionResetDate = &now
		if did {
			s.countTrialDowngrade()
			s.log.Info("trial expired, downgraded to free",
				zap.String("account_id", account.ID.String()))
		}
	}

	return policy.AccountStatus(*account, now, limits), nil
}

func (s *Service) countCheck(identity string) {
	if s.metrics != nil {
		s.metrics.ChecksTotal.WithLabelValues(identity).Inc()
	}
}

func (s *Service) countTrack(identity string) {
	if s.metrics != nil {
		s.metrics.TracksTotal.WithLabelValues(identity).Inc()
	}
}

func (s *Service) countMonthlyReset() {
	if s.metrics != nil {
		s.metrics.MonthlyResets.Inc()
	}
}

func (s *Service) countTrialDowngrade() {
	if s.metrics != nil {
		s.metrics.TrialDowngrades.Inc()
	}
}
