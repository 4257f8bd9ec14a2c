package models

import "time"

// AuditLog records a mutating API action for later review.
type AuditLog struct {
	ID        string    `db:"id" json:"id"`
	TenantID  *string   `db:"tenant_id" json:"tenant_id,omitempty"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	Action    string    `db:"action" json:"action"`
	Resource  string    `db:"resource" json:"resource"`
	Detail    []byte    `db:"detail" json:"detail,omitempty"`
	IPAddress string    `db:"ip_address" json:"ip_address"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
