package domain

import "time"

// Role classifies what an account is allowed to do.
type Role string

const (
	// RoleProfessor views aggregated results, the full listing and the export.
	RoleProfessor Role = "professor"
	// RoleFavor submits and reviews votes in favor.
	RoleFavor Role = "favor"
	// RoleContra submits and reviews votes against.
	RoleContra Role = "contra"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleProfessor, RoleFavor, RoleContra:
		return true
	}
	return false
}

// Account represents an authenticated principal.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
