package models

import "time"

// UserRole enumerates access levels.
type UserRole string

const (
	RolePlatformAdmin UserRole = "PLATFORM_ADMIN"
	RoleSchoolAdmin   UserRole = "SCHOOL_ADMIN"
	RoleTeacher       UserRole = "TEACHER"
)

// User is an account able to authenticate against the API. Platform admins
// have no tenant; every other role belongs to exactly one.
type User struct {
	ID           string    `db:"id" json:"id"`
	TenantID     *string   `db:"tenant_id" json:"tenant_id,omitempty"`
	Email        string    `db:"email" json:"email"`
	FullName     string    `db:"full_name" json:"full_name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         UserRole  `db:"role" json:"role"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// RefreshToken is a persisted refresh credential.
type RefreshToken struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Token     string    `db:"token" json:"token"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	Revoked   bool      `db:"revoked" json:"revoked"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
