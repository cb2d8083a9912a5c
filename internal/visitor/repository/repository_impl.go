package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	visitordomain "github.com/prepdeck/metering/internal/visitor/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewRepository(db *gorm.DB, genID *snowflake.Node) visitordomain.Repository {
	return &Repository{db: db, genID: genID}
}

func (r *Repository) Touch(ctx context.Context, fingerprint, ipAddress string, now time.Time) (*visitordomain.VisitorUsage, error) {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return nil, visitordomain.ErrFingerprintRequired
	}

	record := &visitordomain.VisitorUsage{
		ID:          r.genID.Generate(),
		Fingerprint: fingerprint,
		IPAddress:   ipAddress,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "fingerprint"}},
			DoUpdates: clause.Assignments(map[string]any{
				"ip_address": ipAddress,
				"updated_at": now,
			}),
		}).
		Create(record).Error
	if err != nil {
		return nil, err
	}
	return r.getByFingerprint(ctx, fingerprint)
}

func (r *Repository) IncrementQuestionCount(ctx context.Context, fingerprint, ipAddress string, now time.Time) (*visitordomain.VisitorUsage, error) {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return nil, visitordomain.ErrFingerprintRequired
	}

	record := &visitordomain.VisitorUsage{
		ID:               r.genID.Generate(),
		Fingerprint:      fingerprint,
		IPAddress:        ipAddress,
		QuestionCount:    1,
		LastQuestionDate: &now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	// The increment lives inside the conflict clause so two concurrent calls
	// for the same fingerprint both land; there is no read-modify-write.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "fingerprint"}},
			DoUpdates: clause.Assignments(map[string]any{
				"question_count":     gorm.Expr("question_count + ?", 1),
				"last_question_date": now,
				"ip_address":         ipAddress,
				"updated_at":         now,
			}),
		}).
		Create(record).Error
	if err != nil {
		return nil, err
	}
	return r.getByFingerprint(ctx, fingerprint)
}

func (r *Repository) getByFingerprint(ctx context.Context, fingerprint string) (*visitordomain.VisitorUsage, error) {
	var record visitordomain.VisitorUsage
	if err := r.db.WithContext(ctx).First(&record, "fingerprint = ?", fingerprint).Error; err != nil {
		return nil, err
	}
	return &record, nil
}
