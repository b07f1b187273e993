package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shopfinder/internal/submission/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const submissionColumns = `id, submitted_by_user_id, submitted_at, status, brand_key, chain_score, signals, payload,
	reviewed_by_user_id, reviewed_at, review_note, approved_shop_id`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, submission *domain.Submission) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO shop_submissions (
			id, submitted_by_user_id, submitted_at, status, brand_key, chain_score, signals, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		submission.ID,
		submission.SubmittedByUserID,
		submission.SubmittedAt,
		submission.Status,
		submission.BrandKey,
		submission.ChainScore,
		submission.Signals,
		submission.Payload,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Submission, error) {
	var item domain.Submission
	err := db.WithContext(ctx).Raw(
		`SELECT `+submissionColumns+` FROM shop_submissions WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, classifyDecodeError(err)
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindStatus(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Status, error) {
	var rows []struct {
		Status domain.Status
	}
	err := db.WithContext(ctx).Raw(
		`SELECT status FROM shop_submissions WHERE id = ?`,
		id,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0].Status, nil
}

func (r *repo) MarkDecided(ctx context.Context, db *gorm.DB, decided *domain.Submission) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE shop_submissions
		 SET status = ?, reviewed_by_user_id = ?, reviewed_at = ?, review_note = ?, approved_shop_id = ?
		 WHERE id = ? AND status = ?`,
		decided.Status,
		decided.ReviewedByUserID,
		decided.ReviewedAt,
		decided.ReviewNote,
		decided.ApprovedShopID,
		decided.ID,
		domain.StatusPending,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Submission, error) {
	var items []domain.Submission
	stmt := db.WithContext(ctx).
		Model(&domain.Submission{}).
		Select(submissionColumns)
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	err := stmt.
		Order("submitted_at DESC").
		Order("id DESC").
		Limit(filter.Limit).
		Find(&items).Error
	if err != nil {
		return nil, classifyDecodeError(err)
	}
	return items, nil
}

func (r *repo) CountPendingSince(ctx context.Context, db *gorm.DB, userID string, since time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM shop_submissions
		 WHERE submitted_by_user_id = ? AND status = ? AND submitted_at >= ?`,
		userID,
		domain.StatusPending,
		since,
	).Scan(&count).Error
	return count, err
}

// classifyDecodeError marks stored JSON that no longer decodes into the
// typed payload or signals.
func classifyDecodeError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	return err
}
