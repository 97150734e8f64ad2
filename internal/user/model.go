package user

import "time"

// User represents a registered wallet owner. Identity is established by the
// external auth layer; this service only stores the resulting profile.
type User struct {
	ID        string
	GoogleID  string
	Email     string
	Name      string
	CreatedAt time.Time
}
