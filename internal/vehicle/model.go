package vehicle

import "time"

// Vehicle is a customer car registered for inspection bookings.
type Vehicle struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;uniqueIndex:idx_vehicles_owner_plate" json:"user_id"`

	// PlateNumber is unique per owner, not globally, because a plate can be
	// re-registered under a new owner after a sale.
	PlateNumber string `gorm:"type:varchar(32);not null;uniqueIndex:idx_vehicles_owner_plate" json:"plate_number"`

	Make         string `gorm:"type:varchar(64);not null" json:"make"`
	Model        string `gorm:"type:varchar(64);not null" json:"model"`
	Year         int    `gorm:"not null" json:"year"`
	FuelType     string `gorm:"type:varchar(32)" json:"fuel_type"`
	CategoryCode string `gorm:"type:varchar(16);default:'M1'" json:"category_code"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateVehicleRequest struct {
	PlateNumber  string `json:"plate_number" binding:"required"`
	Make         string `json:"make" binding:"required"`
	Model        string `json:"model" binding:"required"`
	Year         int    `json:"year" binding:"required,min=1950"`
	FuelType     string `json:"fuel_type"`
	CategoryCode string `json:"category_code"`
}
