package models

import "time"

// Subject is a taught discipline within a tenant's curriculum.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter defines filter criteria for listing subjects.
type SubjectFilter struct {
	Search   string
	Page     int
	PageSize int
}
