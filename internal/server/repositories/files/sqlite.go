package files

import "github.com/dmitrijs2005/securelink/internal/dbx"

// SQLiteRepository stores records in SQLite (modernc.org/sqlite).
type SQLiteRepository struct {
	sqlRepository
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{sqlRepository{db: db, q: queries{
		insert: `INSERT INTO files (` + columns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		getByID:     `SELECT ` + columns + ` FROM files WHERE id = ?`,
		getByToken:  `SELECT ` + columns + ` FROM files WHERE token = ?`,
		listByOwner: `SELECT ` + columns + ` FROM files WHERE owner_id = ? ORDER BY uploaded_at DESC, id`,
		setToken: `UPDATE files SET token = ?, token_expires_at = ?
			WHERE id = ? AND token IS ?`,
	}}}
}
