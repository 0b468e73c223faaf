package models

import "time"

// FileRecord is the persisted metadata of one uploaded file. The content
// itself lives in an encrypted container addressed by StorageKey.
//
// Token and TokenExpiresAt are either both nil (never shared) or both set.
type FileRecord struct {
	ID             string     `db:"id" json:"id"`
	OwnerID        string     `db:"owner_id" json:"owner_id"`
	Filename       string     `db:"filename" json:"filename"`
	StorageKey     string     `db:"storage_key" json:"-"`
	Token          *string    `db:"token" json:"-"`
	TokenExpiresAt *time.Time `db:"token_expires_at" json:"token_expires_at,omitempty"`
	UploadedAt     time.Time  `db:"uploaded_at" json:"uploaded_at"`
}

// Shared reports whether a link token is attached.
func (r *FileRecord) Shared() bool {
	return r.Token != nil && r.TokenExpiresAt != nil
}

// LinkActive reports whether the record carries a token that has not yet
// expired at now. The boundary instant itself still counts as active.
func (r *FileRecord) LinkActive(now time.Time) bool {
	return r.Shared() && !now.After(*r.TokenExpiresAt)
}
