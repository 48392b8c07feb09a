package auditlog

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records every domain mutation (booking, slot, payment) with the
// acting user, the target center and a JSON detail blob.
type AuditLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    *uint          `gorm:"index" json:"user_id"`
	CenterID  *uint          `gorm:"index" json:"center_id"`
	Action    string         `gorm:"type:varchar(64);not null;index" json:"action"`
	Details   datatypes.JSON `gorm:"type:jsonb" json:"details"`
	IPAddress string         `gorm:"type:varchar(45)" json:"ip_address"`
	Status    string         `gorm:"type:varchar(16);not null" json:"status"` // success / failure
	CreatedAt time.Time      `json:"created_at"`
}

// AuditLogFilter narrows the admin listing.
type AuditLogFilter struct {
	UserID   *uint
	CenterID *uint
	Action   string
	Status   string
	From     *time.Time
	To       *time.Time
	Page     int
	Limit    int
}

// PaginatedAuditLogs is the admin listing response.
type PaginatedAuditLogs struct {
	Data       []AuditLog `json:"data"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"total_pages"`
}
