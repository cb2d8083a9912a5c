package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/prepdeck/metering/internal/account/domain"
	"github.com/prepdeck/metering/pkg/db"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) accountdomain.Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, account *accountdomain.Account) error {
	err := r.db.WithContext(ctx).Create(account).Error
	if db.IsDuplicateKeyErr(err) {
		return accountdomain.ErrAccountExists
	}
	return err
}

func (r *Repository) GetByID(ctx context.Context, id snowflake.ID) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, accountdomain.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *Repository) IncrementMonthlyCount(ctx context.Context, id snowflake.ID, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&accountdomain.Account{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"monthly_question_count": gorm.Expr("monthly_question_count + ?", 1),
			"updated_at":             now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return accountdomain.ErrAccountNotFound
	}
	return nil
}

func (r *Repository) ResetMonthlyCount(ctx context.Context, id snowflake.ID, cutoff, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&accountdomain.Account{}).
		Where("id = ?", id).
		Where("last_question_reset_date <= ? OR (last_question_reset_date IS NULL AND created_at <= ?)", cutoff, cutoff).
		UpdateColumns(map[string]any{
			"monthly_question_count":   0,
			"last_question_reset_date": now,
			"updated_at":               now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) ExpireTrial(ctx context.Context, id snowflake.ID, cutoff, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&accountdomain.Account{}).
		Where("id = ? AND plan_type = ?", id, accountdomain.PlanProTrial).
		Where("trial_start_date IS NOT NULL AND trial_start_date <= ?", cutoff).
		UpdateColumns(map[string]any{
			"plan_type":                accountdomain.PlanFree,
			"monthly_question_count":   0,
			"last_question_reset_date": now,
			"updated_at":               now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) StartTrial(ctx context.Context, id snowflake.ID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&accountdomain.Account{}).
		Where("id = ? AND plan_type = ? AND trial_start_date IS NULL", id, accountdomain.PlanFree).
		UpdateColumns(map[string]any{
			"plan_type":        accountdomain.PlanProTrial,
			"trial_start_date": now,
			"updated_at":       now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) ActivatePaid(ctx context.Context, id snowflake.ID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&accountdomain.Account{}).
		Where("id = ? AND plan_type <> ?", id, accountdomain.PlanProPaid).
		UpdateColumns(map[string]any{
			"plan_type":  accountdomain.PlanProPaid,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
