package files

import "github.com/dmitrijs2005/securelink/internal/dbx"

// PostgresRepository stores records in PostgreSQL through pgx/stdlib.
type PostgresRepository struct {
	sqlRepository
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{sqlRepository{db: db, q: queries{
		insert: `INSERT INTO files (` + columns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		getByID:     `SELECT ` + columns + ` FROM files WHERE id = $1`,
		getByToken:  `SELECT ` + columns + ` FROM files WHERE token = $1`,
		listByOwner: `SELECT ` + columns + ` FROM files WHERE owner_id = $1 ORDER BY uploaded_at DESC, id`,
		setToken: `UPDATE files SET token = $1, token_expires_at = $2
			WHERE id = $3 AND token IS NOT DISTINCT FROM $4`,
	}}}
}
