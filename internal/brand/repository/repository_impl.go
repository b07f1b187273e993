package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/shopfinder/internal/brand/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const brandColumns = `brand_key, display_name, status, known_location_count, last_chain_score, last_signals, updated_at, updated_by_user_id`

const insertBrand = `INSERT INTO brands (` + brandColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?) `

func brandArgs(record *domain.Brand) []any {
	return []any{
		record.BrandKey,
		record.DisplayName,
		record.Status,
		record.KnownLocationCount,
		record.LastChainScore,
		record.LastSignals,
		record.UpdatedAt,
		record.UpdatedByUserID,
	}
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, brandKey string) (*domain.Brand, error) {
	var record domain.Brand
	err := db.WithContext(ctx).Raw(
		`SELECT `+brandColumns+` FROM brands WHERE brand_key = ?`,
		brandKey,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.BrandKey == "" {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) UpsertTelemetry(ctx context.Context, db *gorm.DB, record *domain.Brand) error {
	u := syntaxFor(db, "brands")
	return db.WithContext(ctx).Exec(
		insertBrand+u.onConflict("brand_key", []string{
			"display_name = " + u.incoming("display_name"),
			fmt.Sprintf("known_location_count = COALESCE(%s, %s)", u.incoming("known_location_count"), u.stored("known_location_count")),
			fmt.Sprintf("last_chain_score = COALESCE(%s, %s)", u.incoming("last_chain_score"), u.stored("last_chain_score")),
			"last_signals = " + u.incoming("last_signals"),
			fmt.Sprintf("status = CASE WHEN %s <> '%s' THEN %s ELSE %s END",
				u.incoming("status"), domain.StatusUnknown, u.incoming("status"), u.stored("status")),
			"updated_at = " + u.incoming("updated_at"),
			fmt.Sprintf("updated_by_user_id = COALESCE(%s, %s)", u.incoming("updated_by_user_id"), u.stored("updated_by_user_id")),
		}),
		brandArgs(record)...,
	).Error
}

func (r *repo) UpsertStatus(ctx context.Context, db *gorm.DB, record *domain.Brand) error {
	u := syntaxFor(db, "brands")
	return db.WithContext(ctx).Exec(
		insertBrand+u.onConflict("brand_key", []string{
			"display_name = " + u.incoming("display_name"),
			"status = " + u.incoming("status"),
			"updated_at = " + u.incoming("updated_at"),
			"updated_by_user_id = " + u.incoming("updated_by_user_id"),
		}),
		brandArgs(record)...,
	).Error
}

func (r *repo) UpsertApproved(ctx context.Context, db *gorm.DB, record *domain.Brand) error {
	u := syntaxFor(db, "brands")
	return db.WithContext(ctx).Exec(
		insertBrand+u.onConflict("brand_key", []string{
			"display_name = " + u.incoming("display_name"),
			fmt.Sprintf("status = CASE WHEN %s = '%s' THEN %s ELSE '%s' END",
				u.stored("status"), domain.StatusBlocked, u.stored("status"), domain.StatusAllowed),
			"updated_at = " + u.incoming("updated_at"),
			"updated_by_user_id = " + u.incoming("updated_by_user_id"),
		}),
		brandArgs(record)...,
	).Error
}

// statusPriority orders the admin list: blocked, needs_review, unknown,
// allowed.
const statusPriority = `CASE status WHEN 'blocked' THEN 0 WHEN 'needs_review' THEN 1 WHEN 'unknown' THEN 2 ELSE 3 END`

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Brand, error) {
	var items []domain.Brand
	stmt := db.WithContext(ctx).
		Model(&domain.Brand{}).
		Select(brandColumns)

	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		stmt = stmt.Where(`(brand_key LIKE ? ESCAPE '!' OR LOWER(display_name) LIKE ? ESCAPE '!')`, pattern, pattern)
	}

	err := stmt.
		Order(statusPriority).
		Order("updated_at DESC").
		Limit(filter.Limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertAction(ctx context.Context, db *gorm.DB, action *domain.BrandAction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO brand_actions (id, brand_key, action, reason, payload, actor_user_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		action.ID,
		action.BrandKey,
		action.Action,
		action.Reason,
		action.Payload,
		action.ActorUserID,
		action.CreatedAt,
	).Error
}

func (r *repo) ListActions(ctx context.Context, db *gorm.DB, brandKey string, limit int) ([]domain.BrandAction, error) {
	var items []domain.BrandAction
	err := db.WithContext(ctx).Raw(
		`SELECT id, brand_key, action, reason, payload, actor_user_id, created_at
		 FROM brand_actions WHERE brand_key = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		brandKey,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

var likeEscaper = strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
