package model

import "time"

// Host represents a registered remote Windows machine reachable over WinRM.
// EncryptedSecret holds the vault-sealed password; the plaintext is never persisted.
type Host struct {
	ID              int64
	Address         string
	Username        string
	EncryptedSecret string
	Description     string
	OwnerID         int64
	CreatedAt       time.Time
}

// OwnedBy reports whether the host belongs to the given owner.
func (h Host) OwnedBy(ownerID int64) bool {
	return h.OwnerID == ownerID
}
