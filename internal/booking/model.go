package booking

import "time"

// Booking statuses. PENDING and CONFIRMED hold a seat; the other three are
// terminal and never transition again.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
	StatusNoShow    = "NO_SHOW"
)

// IsTerminal reports whether a booking status can never change again.
func IsTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type Booking struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	BookingNumber string `gorm:"type:varchar(32);not null;uniqueIndex" json:"booking_number"`

	UserID    uint `gorm:"not null;index" json:"user_id"`
	CenterID  uint `gorm:"not null;index" json:"center_id"`
	SlotID    uint `gorm:"not null;index" json:"slot_id"`
	VehicleID uint `gorm:"not null;index" json:"vehicle_id"`

	Status string `gorm:"type:varchar(16);not null;default:'PENDING';index" json:"status"`

	// Amount is the inspection fee in MAD.
	Amount float64 `gorm:"not null" json:"amount"`
	Notes  string  `gorm:"type:text" json:"notes,omitempty"`

	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type CreateBookingRequest struct {
	SlotID    uint   `json:"slot_id" binding:"required"`
	VehicleID uint   `json:"vehicle_id" binding:"required"`
	Notes     string `json:"notes"`
}

type BookingFilter struct {
	CenterID uint
	Status   string
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PageSize int
}

type PaginatedBookings struct {
	Bookings []Booking `json:"bookings"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}
