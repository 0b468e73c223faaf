// Package services contains the server-side business logic: share link
// issuance, OTP challenges, access checks and the owner/recipient file
// flows built on top of them.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/securelink/internal/common"
	"github.com/dmitrijs2005/securelink/internal/dbx"
	"github.com/dmitrijs2005/securelink/internal/server/config"
	"github.com/dmitrijs2005/securelink/internal/server/models"
	"github.com/dmitrijs2005/securelink/internal/server/repositories/repomanager"
)

const (
	tokenBytes      = 32
	tokenIssueTries = 3
	defaultLinkTTL  = 15 * time.Minute
)

// TokenIssuer attaches share-link tokens to file records.
type TokenIssuer struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ttl         time.Duration
	now         func() time.Time
	newToken    func() (string, error)
}

func NewTokenIssuer(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *TokenIssuer {
	ttl := cfg.LinkTTL
	if ttl <= 0 {
		ttl = defaultLinkTTL
	}
	return &TokenIssuer{
		db:          db,
		repomanager: m,
		ttl:         ttl,
		now:         time.Now,
		newToken:    func() (string, error) { return common.MakeRandHexString(tokenBytes) },
	}
}

// Issue returns the record with an active link token. A record that already
// holds an unexpired token is returned as is; otherwise a fresh 64-hex-char
// token valid for the configured TTL is attached. Token collisions are
// retried a few times before giving up.
//
// The token is swapped in only if the record still carries the token read
// here, so concurrent shares of one record agree on a single token and an
// active token is never overwritten. No transaction is used: a unique
// violation aborts a Postgres transaction, and each retry has to run as its
// own statement.
func (s *TokenIssuer) Issue(ctx context.Context, ownerID, fileID string) (*models.FileRecord, error) {
	repo := s.repomanager.Files(s.db)

	rec, err := repo.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("issue token: %w", err)
	}
	if rec.OwnerID != ownerID {
		return nil, common.ErrorForbidden
	}

	now := s.now().UTC()
	if rec.LinkActive(now) {
		return rec, nil
	}

	for attempt := 0; attempt < tokenIssueTries; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return nil, fmt.Errorf("generate token: %w", err)
		}
		expiresAt := now.Add(s.ttl)

		swapped, err := repo.SetToken(ctx, rec.ID, rec.Token, token, expiresAt)
		if dbx.IsUniqueViolation(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("issue token: %w", err)
		}

		if swapped {
			rec.Token = &token
			rec.TokenExpiresAt = &expiresAt
			return rec, nil
		}

		// the record changed since it was read
		rec, err = repo.GetByID(ctx, fileID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("issue token: %w", err)
		}
		if rec.LinkActive(now) {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%w: no unique token after %d attempts", common.ErrorInternal, tokenIssueTries)
}
