package center

import "time"

// InspectionCenter is a physical station where appointments take place.
type InspectionCenter struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Name    string `gorm:"type:varchar(255);not null" json:"name"`
	Email   string `gorm:"type:varchar(255)" json:"email"`
	Phone   string `gorm:"type:varchar(32);not null" json:"phone"`
	Address string `gorm:"type:text;not null" json:"address"`
	City    string `gorm:"type:varchar(128);not null;index" json:"city"`

	// Lanes is the number of inspection lines, informational only; slot
	// capacity is managed per time slot.
	Lanes    int  `gorm:"default:1" json:"lanes"`
	IsActive bool `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateCenterRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"omitempty,email"`
	Phone   string `json:"phone" binding:"required"`
	Address string `json:"address" binding:"required"`
	City    string `json:"city" binding:"required"`
	Lanes   int    `json:"lanes"`
}
