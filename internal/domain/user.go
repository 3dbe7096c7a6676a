package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuthProvider represents an OAuth provider.
type AuthProvider string

const (
	AuthProviderGoogle AuthProvider = "google"
	AuthProviderGitHub AuthProvider = "github"
)

// Role is the pipeline role an actor plays.
type Role string

const (
	RoleCandidate     Role = "candidate"
	RoleRecruiter     Role = "recruiter"
	RoleHiringManager Role = "hiring_manager"
	RoleHR            Role = "hr"
	RoleAdmin         Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCandidate, RoleRecruiter, RoleHiringManager, RoleHR, RoleAdmin:
		return true
	default:
		return false
	}
}

// Actor is the authenticated caller of a command.
type Actor struct {
	ID            uuid.UUID `json:"id"`
	Role          Role      `json:"role"`
	VerifiedStaff bool      `json:"verified_staff"`
}

// User represents an authenticated user.
type User struct {
	ID            uuid.UUID    `json:"id" db:"id"`
	Provider      AuthProvider `json:"provider" db:"provider"`
	ProviderID    string       `json:"provider_id" db:"provider_id"`
	Email         string       `json:"email" db:"email"`
	DisplayName   string       `json:"display_name" db:"display_name"`
	AvatarURL     *string      `json:"avatar_url,omitempty" db:"avatar_url"`
	Role          Role         `json:"role" db:"role"`
	VerifiedStaff bool         `json:"verified_staff" db:"verified_staff"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
}

// Actor returns the actor identity carried in access tokens for u.
func (u User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role, VerifiedStaff: u.VerifiedStaff}
}
