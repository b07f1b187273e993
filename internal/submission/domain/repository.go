package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, submission *Submission) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Submission, error)
	// FindStatus reads only the status column, so it works for rows whose
	// payload no longer decodes.
	FindStatus(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Status, error)
	// MarkDecided moves a pending submission to a terminal status. It
	// returns the number of rows changed; zero means the row was missing or
	// no longer pending.
	MarkDecided(ctx context.Context, db *gorm.DB, decided *Submission) (int64, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Submission, error)
	CountPendingSince(ctx context.Context, db *gorm.DB, userID string, since time.Time) (int64, error)
}
