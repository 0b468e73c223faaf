package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/securelink/internal/common"
	"github.com/dmitrijs2005/securelink/internal/dbx"
	"github.com/dmitrijs2005/securelink/internal/server/models"
)

type queries struct {
	insert      string
	getByID     string
	getByToken  string
	listByOwner string
	setToken    string
}

// sqlRepository is the dialect-neutral part of both implementations.
type sqlRepository struct {
	db dbx.DBTX
	q  queries
}

const columns = `id, owner_id, filename, storage_key, token, token_expires_at, uploaded_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.FileRecord, error) {
	var (
		rec   models.FileRecord
		token sql.NullString
		exp   sql.NullTime
	)
	if err := row.Scan(&rec.ID, &rec.OwnerID, &rec.Filename, &rec.StorageKey, &token, &exp, &rec.UploadedAt); err != nil {
		return nil, err
	}
	if token.Valid {
		t := token.String
		rec.Token = &t
	}
	if exp.Valid {
		e := exp.Time.UTC()
		rec.TokenExpiresAt = &e
	}
	rec.UploadedAt = rec.UploadedAt.UTC()
	return &rec, nil
}

func (r *sqlRepository) Insert(ctx context.Context, rec *models.FileRecord) error {
	var (
		token any
		exp   any
	)
	if rec.Token != nil {
		token = *rec.Token
	}
	if rec.TokenExpiresAt != nil {
		exp = rec.TokenExpiresAt.UTC()
	}

	_, err := r.db.ExecContext(ctx, r.q.insert,
		rec.ID, rec.OwnerID, rec.Filename, rec.StorageKey, token, exp, rec.UploadedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func (r *sqlRepository) getOne(ctx context.Context, query string, arg any) (*models.FileRecord, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("select file: %w", err)
	}
	return rec, nil
}

func (r *sqlRepository) GetByID(ctx context.Context, id string) (*models.FileRecord, error) {
	return r.getOne(ctx, r.q.getByID, id)
}

func (r *sqlRepository) GetByToken(ctx context.Context, token string) (*models.FileRecord, error) {
	return r.getOne(ctx, r.q.getByToken, token)
}

func (r *sqlRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.FileRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.q.listByOwner, ownerID)
	if err != nil {
		return nil, fmt.Errorf("select files: %w", err)
	}
	defer rows.Close()

	result := []*models.FileRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *sqlRepository) SetToken(ctx context.Context, id string, prevToken *string, token string, expiresAt time.Time) (bool, error) {
	var prev any
	if prevToken != nil {
		prev = *prevToken
	}

	res, err := r.db.ExecContext(ctx, r.q.setToken, token, expiresAt.UTC(), id, prev)
	if err != nil {
		return false, fmt.Errorf("set token: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	switch n {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected rows affected: %d", n)
	}
}
