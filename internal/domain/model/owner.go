package model

import "time"

// Owner is an authenticated operator who registers and controls hosts.
type Owner struct {
	ID           int64
	Username     string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// APIToken is a bearer token issued to an owner. Only the digest of the
// token is stored; the raw value is returned once at issue time.
type APIToken struct {
	Digest    string
	OwnerID   int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is no longer valid at the given instant.
func (t APIToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
