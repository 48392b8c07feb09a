package slot

import (
	"fmt"
	"time"
)

// TimeSlot is a bookable window at a center. BookedCount never exceeds
// Capacity; reservations go through the guarded update in the repository,
// never through a read-modify-write.
type TimeSlot struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	CenterID uint      `gorm:"not null;uniqueIndex:idx_slots_center_date_start" json:"center_id"`
	Date     time.Time `gorm:"type:date;not null;uniqueIndex:idx_slots_center_date_start" json:"date"`

	// StartTime and EndTime are local wall-clock times in HH:MM form.
	StartTime string `gorm:"type:varchar(5);not null;uniqueIndex:idx_slots_center_date_start" json:"start_time"`
	EndTime   string `gorm:"type:varchar(5);not null" json:"end_time"`

	Capacity    int  `gorm:"not null" json:"capacity"`
	BookedCount int  `gorm:"not null;default:0" json:"booked_count"`
	IsAvailable bool `gorm:"not null;default:true" json:"is_available"`

	// Price is the inspection fee in MAD for this window.
	Price float64 `gorm:"not null" json:"price"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StartDateTime combines Date and StartTime in the given location.
func (s *TimeSlot) StartDateTime(loc *time.Location) time.Time {
	t, err := time.ParseInLocation("15:04", s.StartTime, loc)
	if err != nil {
		return time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), 0, 0, 0, 0, loc)
	}
	return time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}

// Remaining is the number of seats still open.
func (s *TimeSlot) Remaining() int {
	rem := s.Capacity - s.BookedCount
	if rem < 0 {
		return 0
	}
	return rem
}

func (s *TimeSlot) Label() string {
	return fmt.Sprintf("%s %s-%s", s.Date.Format("2006-01-02"), s.StartTime, s.EndTime)
}

// SlotTemplate is one recurring window used by bulk generation.
type SlotTemplate struct {
	StartTime string  `json:"start_time" binding:"required"`
	EndTime   string  `json:"end_time" binding:"required"`
	Capacity  int     `json:"capacity" binding:"required,min=1"`
	Price     float64 `json:"price" binding:"required,gt=0"`
}

type BulkCreateRequest struct {
	CenterID     uint           `json:"center_id" binding:"required"`
	StartDate    string         `json:"start_date" binding:"required"`
	EndDate      string         `json:"end_date" binding:"required"`
	Templates    []SlotTemplate `json:"templates" binding:"required,min=1,dive"`
	SkipWeekends bool           `json:"skip_weekends"`
}

type UpdateSlotRequest struct {
	Capacity    *int  `json:"capacity"`
	IsAvailable *bool `json:"is_available"`
}

type BulkCreateResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}
