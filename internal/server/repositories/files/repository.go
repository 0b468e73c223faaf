// Package files persists FileRecord rows. The Postgres and SQLite
// implementations share scanning code and differ only in their SQL.
package files

import (
	"context"
	"time"

	"github.com/dmitrijs2005/securelink/internal/server/models"
)

type Repository interface {
	Insert(ctx context.Context, rec *models.FileRecord) error
	GetByID(ctx context.Context, id string) (*models.FileRecord, error)
	GetByToken(ctx context.Context, token string) (*models.FileRecord, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.FileRecord, error)
	// SetToken attaches token and expiry in one statement, but only while
	// the record still holds prevToken (nil when never shared). It reports
	// false when the record is missing or another writer got there first.
	// A duplicate token surfaces as a unique violation (see
	// dbx.IsUniqueViolation).
	SetToken(ctx context.Context, id string, prevToken *string, token string, expiresAt time.Time) (bool, error)
}
