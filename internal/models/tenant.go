package models

import "time"

// Tenant is a single school organization. All domain data is partitioned by
// tenant id.
type Tenant struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TenantFilter defines filters supported by the platform admin listing.
type TenantFilter struct {
	Search   string
	Active   *bool
	Page     int
	PageSize int
}
