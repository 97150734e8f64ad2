package apikey

import "time"

// Permission grants access to a class of wallet operations.
type Permission string

const (
	PermissionRead     Permission = "read"
	PermissionDeposit  Permission = "deposit"
	PermissionTransfer Permission = "transfer"
)

// AllPermissions returns the full permission set, granted to session callers.
func AllPermissions() []Permission {
	return []Permission{PermissionRead, PermissionDeposit, PermissionTransfer}
}

// Status is derived at read time from the revoked flag and expiry; it is never
// persisted.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"
)

// Key is a stored credential. The plaintext secret is returned once at
// issuance and never stored; only the bcrypt hash and a short lookup prefix
// remain. Keys are kept for audit and never deleted.
type Key struct {
	ID          string
	UserID      string
	Prefix      string
	Hash        []byte
	Name        string
	Permissions []Permission
	ExpiresAt   time.Time
	Revoked     bool
	CreatedAt   time.Time
}

// StatusAt derives the key status at the given instant.
func (k Key) StatusAt(now time.Time) Status {
	switch {
	case k.Revoked:
		return StatusRevoked
	case !k.ExpiresAt.After(now):
		return StatusExpired
	default:
		return StatusActive
	}
}
